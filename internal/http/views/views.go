// Package views holds the HTML templates and static assets of the listings
// site, both embedded into the binary.
//
// Every page is a named template ("listings/index", "listings/show", ...)
// wrapped by the "header" and "footer" partials, so the set can be handed to
// gin's Engine.SetHTMLTemplate and rendered with c.HTML by name.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Page template names.
const (
	ListingsIndex = "listings/index"
	ListingsNew   = "listings/new"
	ListingsShow  = "listings/show"
	ListingsEdit  = "listings/edit"
	Error         = "error"
)

//go:embed templates/*.html templates/*/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// priceLocale matches the grouping the site has always shown prices in.
var priceLocale = language.MustParse("en-IN")

// Funcs returns the helper functions available to every template.
func Funcs() template.FuncMap {
	p := message.NewPrinter(priceLocale)
	return template.FuncMap{
		"formatPrice": func(v *float64) string {
			if v == nil {
				return ""
			}
			return p.Sprintf("%v", number.Decimal(*v, number.MaxFractionDigits(2)))
		},
	}
}

// New parses the embedded template set.
func New() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(Funcs()).ParseFS(templateFS, "templates/*.html", "templates/*/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return tmpl, nil
}

// Must is New that panics on error. The templates are compiled in, so a
// failure here is a build defect.
func Must() *template.Template {
	t, err := New()
	if err != nil {
		panic(err)
	}
	return t
}

// Static returns the asset filesystem served under /static. A non-empty dir
// replaces the embedded assets with the contents of that directory.
func Static(dir string) (fs.FS, error) {
	if dir != "" {
		if st, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("static dir: %w", err)
		} else if !st.IsDir() {
			return nil, fmt.Errorf("static dir: %s is not a directory", dir)
		}
		return os.DirFS(dir), nil
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("creating static sub-fs: %w", err)
	}
	return sub, nil
}
