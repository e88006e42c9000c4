package http

import (
	"fmt"
	"html/template"
	"strings"

	"lori/internal/core"
)

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"reais":     core.FormatReais,
	"translate": translateX,
}

// translateX renders a row offset as an inline transform.
func translateX(px float64) template.CSS {
	return template.CSS(fmt.Sprintf("transform: translateX(%gpx)", px))
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return result
}
