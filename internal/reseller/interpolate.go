package reseller

import "regexp"

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// Vars are the values substituted into a template.
type Vars map[string]string

// Interpolate replaces each {key} in template with vars[key]. A key is any
// non-empty run of characters other than braces. Substitution
// is a single pass: values are never re-scanned, and placeholders without
// a value are left as written.
func Interpolate(template string, vars Vars) string {
	if len(vars) == 0 {
		return template
	}
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

// Placeholders lists the keys referenced by template in order of first
// appearance.
func Placeholders(template string) []string {
	matches := placeholderRe.FindAllStringSubmatch(template, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	keys := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return keys
}
