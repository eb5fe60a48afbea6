package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// Vars maps placeholder names to substitution values. Supported values are
// strings, integers, floats and Text (which substitutes per language).
type Vars map[string]any

var placeholderRE = regexp.MustCompile(`\{([^{}]+)\}`)

// Render substitutes {name} placeholders in both languages of tmpl.
// It returns false when the template is absent. Placeholders without a
// matching entry in vars are left as written.
func Render(tmpl Text, vars Vars) (Text, bool) {
	if tmpl.IsZero() {
		return Text{}, false
	}
	return Text{
		Bn: renderOne(tmpl.Bn, vars, func(t Text) string { return t.Bn }),
		En: renderOne(tmpl.En, vars, func(t Text) string { return t.En }),
	}, true
}

func renderOne(s string, vars Vars, side func(Text) string) string {
	if s == "" || len(vars) == 0 {
		return s
	}
	return placeholderRE.ReplaceAllStringFunc(s, func(token string) string {
		v, ok := vars[token[1:len(token)-1]]
		if !ok {
			return token
		}
		return formatVar(v, side)
	})
}

func formatVar(v any, side func(Text) string) string {
	switch x := v.(type) {
	case string:
		return x
	case Text:
		return side(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	default:
		return fmt.Sprint(x)
	}
}

// Placeholders returns the distinct placeholder names used in either language
// of tmpl, in order of first appearance.
func Placeholders(tmpl Text) []string {
	var names []string
	seen := make(map[string]bool)
	for _, s := range []string{tmpl.En, tmpl.Bn} {
		for _, m := range placeholderRE.FindAllStringSubmatch(s, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				names = append(names, m[1])
			}
		}
	}
	return names
}
