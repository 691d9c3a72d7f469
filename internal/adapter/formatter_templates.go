package adapter

import (
	"embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/paiml/rosetta-ruchy-sub000/internal/domain"
)

//go:embed templates/*.tmpl
var formatterTemplateFS embed.FS

var (
	formatterTemplates *template.Template
	formatterOnce      sync.Once
	formatterErr       error
)

func executeFormatterTemplate(name string, data any) (string, error) {
	formatterOnce.Do(func() {
		funcMap := template.FuncMap{
			"add": func(a, b int) int { return a + b },
			"pct": func(v float64) string { return fmt.Sprintf("%+.1f%%", v*100) },
			"join": func(names []domain.AnalyzerName) string {
				parts := make([]string, 0, len(names))
				for _, n := range names {
					parts = append(parts, string(n))
				}
				return strings.Join(parts, ", ")
			},
		}
		tmpl := template.New("formatter").Funcs(funcMap)
		formatterTemplates, formatterErr = tmpl.ParseFS(formatterTemplateFS, "templates/*.tmpl")
	})

	if formatterErr != nil {
		return "", formatterErr
	}

	var builder strings.Builder
	if err := formatterTemplates.ExecuteTemplate(&builder, name, data); err != nil {
		return "", err
	}

	return strings.TrimRight(builder.String(), "\n"), nil
}
