// Package template renders rule failure messages and reasoning prompts.
package template

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
)

var funcs = template.FuncMap{
	"json": func(v any) string {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(b)
	},
	"join": func(items []string, sep string) string {
		return strings.Join(items, sep)
	},
	"upper": strings.ToUpper,
	"lower": strings.ToLower,
}

// Parse compiles a template so definitions can be checked before use.
func Parse(templateStr string) (*template.Template, error) {
	tmpl, err := template.New("lineforge").Funcs(funcs).Option("missingkey=zero").Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	return tmpl, nil
}

// Render executes templateStr against data and returns the trimmed text.
func Render(templateStr string, data any) (string, error) {
	tmpl, err := Parse(templateStr)
	if err != nil {
		return "", err
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	return strings.TrimSpace(buf.String()), nil
}

// NeedsTemplating reports whether input contains template actions.
func NeedsTemplating(input string) bool {
	return strings.Contains(input, "{{") && strings.Contains(input, "}}")
}
