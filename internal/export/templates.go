package export

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var contractTemplate = template.Must(
	template.New("contract.html").Funcs(template.FuncMap{
		"lower": strings.ToLower,
		"money": func(v float64) string {
			if v <= 0 {
				return "—"
			}
			return fmt.Sprintf("$%.2f", v)
		},
	}).ParseFS(templateFS, "templates/contract.html"),
)

// renderHTML produces the HTML page both exporters start from.
func renderHTML(c Contract) (string, error) {
	var buf bytes.Buffer
	if err := contractTemplate.Execute(&buf, c); err != nil {
		return "", fmt.Errorf("render contract template: %w", err)
	}
	return buf.String(), nil
}
