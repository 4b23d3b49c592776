// Package validation implements the gate that checks a listing payload
// against the domain.ListingInput schema before any persistence logic runs.
//
// The gate decodes a loosely typed payload (as produced from form fields or a
// JSON body) with mapstructure, validates it with go-playground/validator and
// reports every violation at once, joined into a single 400 *apperr.Error.
package validation

import (
	"fmt"
	"math"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/tbourn/go-listings/internal/apperr"
	"github.com/tbourn/go-listings/internal/domain"
)

// PayloadKey is the request body key the listing payload lives under.
const PayloadKey = "listing"

// imageRefTag is the validator tag for image locations: absolute http(s)
// URLs or relative references such as "cabin.jpg".
const imageRefTag = "imageref"

// Gate validates listing payloads. It is safe for concurrent use.
type Gate struct {
	v     *validator.Validate
	order map[string]int
	kinds map[string]string
}

// New returns a Gate for the domain.ListingInput schema.
func New() *Gate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation(imageRefTag, isImageRef); err != nil {
		panic(err)
	}
	order, kinds := schemaFields(reflect.TypeOf(domain.ListingInput{}))
	return &Gate{v: v, order: order, kinds: kinds}
}

// isImageRef accepts any parseable URL reference without whitespace whose
// scheme, when present, is http or https.
func isImageRef(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == 0x7f }) {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		return u.Host == "" && u.Path != ""
	case "http", "https":
		return u.Host != ""
	default:
		return false
	}
}

// violation is one failed rule for one field path (e.g. "image.url").
type violation struct {
	field string
	msg   string
}

// Listing validates raw, the value found under PayloadKey. A nil map means
// the key was absent. On success the decoded input is returned; otherwise the
// error is a 400 *apperr.Error listing all violations separated by ", ".
func (g *Gate) Listing(raw map[string]any) (domain.ListingInput, error) {
	var in domain.ListingInput
	if raw == nil {
		return in, apperr.BadRequest(quote(PayloadKey) + " is required")
	}

	payload, violations := normalize(raw)

	// Strict decoding: form values arrive as strings already and a JSON
	// number is not a title.
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: &in,
	})
	if err != nil {
		return in, fmt.Errorf("validation: build decoder: %w", err)
	}
	if err := dec.Decode(payload); err != nil {
		violations = append(violations, g.decodeViolations(err)...)
	}
	in.Title = strings.TrimSpace(in.Title)

	// A field that failed to decode already has its violation.
	reported := make(map[string]bool, len(violations))
	for _, v := range violations {
		reported[v.field] = true
	}

	if err := g.v.Struct(in); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return in, fmt.Errorf("validation: %w", err)
		}
		for _, fe := range verrs {
			if path := fieldPath(fe); !reported[path] {
				violations = append(violations, violation{field: path, msg: describe(fe)})
			}
		}
	}

	if len(violations) == 0 {
		return in, nil
	}
	return in, g.aggregate(violations)
}

// aggregate orders violations by schema field order and joins them.
func (g *Gate) aggregate(vs []violation) error {
	rank := func(field string) int {
		if i, ok := g.order[field]; ok {
			return i
		}
		return len(g.order)
	}
	sort.SliceStable(vs, func(i, j int) bool { return rank(vs[i].field) < rank(vs[j].field) })

	msgs := make([]string, 0, len(vs))
	for _, v := range vs {
		msgs = append(msgs, v.msg)
	}
	return apperr.BadRequest(strings.Join(msgs, ", "))
}

// normalize copies raw and coerces the fields that need more than plain
// decoding: a blank price means "no price", a non-numeric or non-finite price
// is a violation, and image must be an object.
func normalize(raw map[string]any) (map[string]any, []violation) {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	var vs []violation
	if p, ok := out["price"]; ok {
		switch pv := p.(type) {
		case nil:
			delete(out, "price")
		case string:
			s := strings.TrimSpace(pv)
			if s == "" {
				delete(out, "price")
				break
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil || !finite(f) {
				delete(out, "price")
				vs = append(vs, violation{field: "price", msg: quote("price") + " must be a number"})
				break
			}
			out["price"] = f
		case float64:
			// YAML seed files can carry .inf and .nan.
			if !finite(pv) {
				delete(out, "price")
				vs = append(vs, violation{field: "price", msg: quote("price") + " must be a number"})
			}
		case float32:
			if !finite(float64(pv)) {
				delete(out, "price")
				vs = append(vs, violation{field: "price", msg: quote("price") + " must be a number"})
			}
		case int, int64, int32:
		default:
			delete(out, "price")
			vs = append(vs, violation{field: "price", msg: quote("price") + " must be a number"})
		}
	}

	if img, ok := out["image"]; ok {
		switch img.(type) {
		case nil:
			delete(out, "image")
		case map[string]any:
		default:
			delete(out, "image")
			vs = append(vs, violation{field: "image", msg: quote("image") + " must be of type object"})
		}
	}
	return out, vs
}

func finite(f float64) bool { return !math.IsInf(f, 0) && !math.IsNaN(f) }

// decodeViolations turns mapstructure failures into schema-style messages.
// The decoder text names Go types and echoes the submitted value, so only
// the field name is kept from it.
func (g *Gate) decodeViolations(err error) []violation {
	me, ok := err.(*mapstructure.Error)
	if !ok {
		return []violation{{msg: quote(PayloadKey) + " is invalid"}}
	}
	out := make([]violation, 0, len(me.Errors))
	for _, e := range me.Errors {
		field := ""
		if strings.HasPrefix(e, "'") {
			if end := strings.Index(e[1:], "'"); end >= 0 {
				field = e[1 : end+1]
			}
		}
		out = append(out, violation{field: field, msg: g.typeMessage(field)})
	}
	return out
}

// typeMessage is the violation for a field holding a value of the wrong type.
func (g *Gate) typeMessage(field string) string {
	if field == "" {
		return quote(PayloadKey) + " is invalid"
	}
	switch g.kinds[field] {
	case "string":
		return quote(field) + " must be a string"
	case "number":
		return quote(field) + " must be a number"
	case "object":
		return quote(field) + " must be of type object"
	default:
		return quote(field) + " is invalid"
	}
}

// fieldPath strips the struct name from a validator namespace:
// "ListingInput.image.url" becomes "image.url".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

// describe renders a validator failure in a user-facing form.
func describe(fe validator.FieldError) string {
	name := quote(fieldPath(fe))
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s length must be less than or equal to %s characters long", name, fe.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", name, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", name, fe.Param())
	case "url", imageRefTag:
		return name + " must be a valid uri"
	default:
		return fmt.Sprintf("%s failed the %q rule", name, fe.Tag())
	}
}

func quote(field string) string { return `"` + field + `"` }

// schemaFields maps every (nested) mapstructure path of root to its
// declaration order, so violations are reported in schema order, and to the
// kind of value it expects ("string", "number" or "object").
func schemaFields(root reflect.Type) (map[string]int, map[string]string) {
	order := map[string]int{}
	kinds := map[string]string{}
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
			if name == "" || name == "-" {
				continue
			}
			path := prefix + name
			order[path] = len(order)
			ft := f.Type
			if ft.Kind() == reflect.Ptr {
				ft = ft.Elem()
			}
			switch ft.Kind() {
			case reflect.String:
				kinds[path] = "string"
			case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
				kinds[path] = "number"
			case reflect.Struct:
				kinds[path] = "object"
				walk(ft, path+".")
			}
		}
	}
	walk(root, "")
	return order, kinds
}
