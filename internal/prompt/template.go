// Package prompt renders the grounded-answer prompts.
package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// Template is a prompt with {{variable}} placeholders.
type Template string

// Render replaces every placeholder with its value. All placeholders must be
// supplied; extra values are ignored.
func (t Template) Render(vars map[string]string) (string, error) {
	if missing := t.missing(vars); len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	return variablePattern.ReplaceAllStringFunc(string(t), func(match string) string {
		return vars[match[2:len(match)-2]]
	}), nil
}

// MustRender is Render for templates whose variables are fixed in code.
func (t Template) MustRender(vars map[string]string) string {
	s, err := t.Render(vars)
	if err != nil {
		panic(err)
	}
	return s
}

// Variables lists the distinct placeholder names in order of appearance.
func (t Template) Variables() []string {
	seen := make(map[string]bool)
	var vars []string
	for _, m := range variablePattern.FindAllStringSubmatch(string(t), -1) {
		if !seen[m[1]] {
			vars = append(vars, m[1])
			seen[m[1]] = true
		}
	}
	return vars
}

func (t Template) missing(vars map[string]string) []string {
	var missing []string
	for _, v := range t.Variables() {
		if _, ok := vars[v]; !ok {
			missing = append(missing, v)
		}
	}
	return missing
}
