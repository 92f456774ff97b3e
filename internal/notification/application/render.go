package application

import (
	"encoding/json"
	"strings"
	"text/template"
)

// renderTemplate substitutes the stored context JSON into a subject or
// body template. Templates are standard text/template over the context
// map; a malformed template or context counts as a send failure for the
// row rather than a crash.
func renderTemplate(tmpl, contextJSON string) (string, error) {
	var data map[string]any
	if contextJSON != "" {
		if err := json.Unmarshal([]byte(contextJSON), &data); err != nil {
			return "", err
		}
	}
	t, err := template.New("message").Option("missingkey=zero").Parse(tmpl)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", err
	}
	return sb.String(), nil
}
