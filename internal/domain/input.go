package domain

// ListingInput is the schema of a listing payload as submitted by a client
// under the "listing" key. The mapstructure names are the wire names; the
// validate tags are the rules enforced by the validation gate.
//
// Optional fields are pointers so that an omitted field can be told apart from
// one explicitly cleared: ApplyTo only overwrites what was supplied.
type ListingInput struct {
	Title       string      `mapstructure:"title"       validate:"required,max=200"`
	Description *string     `mapstructure:"description" validate:"omitempty,max=5000"`
	Image       *ImageInput `mapstructure:"image"`
	Price       *float64    `mapstructure:"price"       validate:"omitempty,gte=0"`
	Location    *string     `mapstructure:"location"    validate:"omitempty,max=200"`
	Country     *string     `mapstructure:"country"     validate:"omitempty,max=200"`
}

// ImageInput is the image part of a ListingInput.
type ImageInput struct {
	Filename *string `mapstructure:"filename" validate:"omitempty,max=255"`
	URL      string  `mapstructure:"url"      validate:"omitempty,max=2048,imageref"`
}

// NewListing builds an unsaved Listing from in.
func NewListing(in ListingInput) *Listing {
	l := &Listing{Reviews: []string{}}
	in.ApplyTo(l)
	return l
}

// ApplyTo merges the supplied fields of in over l.
//
// Title is always replaced. Optional fields are replaced only when present in
// the payload. The image URL falls back to PlaceholderImageURL unless the
// payload carries a non-empty image.url; a supplied filename replaces the
// stored one.
func (in ListingInput) ApplyTo(l *Listing) {
	l.Title = in.Title
	if in.Description != nil {
		l.Description = *in.Description
	}
	if in.Price != nil {
		p := *in.Price
		l.Price = &p
	}
	if in.Location != nil {
		l.Location = *in.Location
	}
	if in.Country != nil {
		l.Country = *in.Country
	}

	url := ""
	if in.Image != nil {
		if in.Image.Filename != nil {
			l.Image.Filename = *in.Image.Filename
		}
		url = in.Image.URL
	}
	l.Image.SetURL(url)
}
