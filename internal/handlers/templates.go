package handlers

import (
	"embed"
	"html/template"

	"github.com/shopspring/decimal"

	"storefront/internal/pricing"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the page templates. Each page is named after its file.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"money":    money,
		"deref":    deref,
		"discount": pricing.Discount,
	}).ParseFS(templateFS, "templates/*.html")
}

func money(v float64) string {
	return "$" + decimal.NewFromFloat(v).StringFixed(2)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
