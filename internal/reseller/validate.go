package reseller

import (
	"errors"
	"fmt"
	"path"
	"reflect"
	"sort"
	"strings"
	_ "time/tzdata" // zone database for the timezone rule

	"github.com/go-playground/validator/v10"
)

// allowedPlaceholders are the interpolation keys any string may carry.
var allowedPlaceholders = map[string]bool{
	"name":    true,
	"plan":    true,
	"percent": true,
	"days":    true,
	"count":   true,
	"score":   true,
}

// placeholderText are values left behind by an unfinished translation.
var placeholderText = []string{"todo", "tbd", "fixme", "xxx", "lorem ipsum"}

// ValidationError lists every problem found in one entry. It unwraps to
// ErrMalformedEntry.
type ValidationError struct {
	ID       string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reseller %q: %d problem(s): %s", e.ID, len(e.Problems), strings.Join(e.Problems, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrMalformedEntry }

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("planid", func(fl validator.FieldLevel) bool {
		return PlanID(fl.Field().String()).Valid()
	})
	return v
}

// Validate checks that cfg is complete and internally consistent. It
// returns nil or a *ValidationError.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &ValidationError{Problems: []string{"entry is nil"}}
	}
	var problems []string
	walkComplete(reflect.ValueOf(cfg).Elem(), "", &problems)
	problems = append(problems, formatProblems(cfg)...)
	problems = append(problems, consistencyProblems(cfg)...)
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{ID: cfg.ID, Problems: problems}
}

// walkComplete reports every required leaf that is empty or still holds
// placeholder text, and every string using an unknown interpolation key.
func walkComplete(v reflect.Value, path string, problems *[]string) {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() {
			*problems = append(*problems, path+": missing")
			return
		}
		walkComplete(v.Elem(), path, problems)
	case reflect.Struct:
		if c, ok := v.Interface().(Cell); ok {
			if c.empty() {
				*problems = append(*problems, path+": missing")
			}
			return
		}
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			fv := v.Field(i)
			if f.Tag.Get("reseller") == "optional" && fv.IsZero() {
				continue
			}
			walkComplete(fv, joinPath(path, fieldName(f)), problems)
		}
	case reflect.String:
		s := strings.TrimSpace(v.String())
		if s == "" {
			*problems = append(*problems, path+": missing")
			return
		}
		if isPlaceholderText(s) {
			*problems = append(*problems, fmt.Sprintf("%s: placeholder text %q", path, s))
		}
		for _, key := range Placeholders(s) {
			if !allowedPlaceholders[key] {
				*problems = append(*problems, fmt.Sprintf("%s: unknown placeholder {%s}", path, key))
			}
		}
	case reflect.Slice:
		if v.Len() == 0 {
			*problems = append(*problems, path+": missing")
			return
		}
		for i := 0; i < v.Len(); i++ {
			walkComplete(v.Index(i), fmt.Sprintf("%s[%d]", path, i), problems)
		}
	case reflect.Map:
		if v.Len() == 0 {
			*problems = append(*problems, path+": missing")
			return
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		for _, k := range keys {
			walkComplete(v.MapIndex(k), joinPath(path, k.String()), problems)
		}
	}
}

func formatProblems(cfg *Config) []string {
	err := structValidator.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace is rooted at the Go type name.
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		if fe.Param() != "" {
			out = append(out, fmt.Sprintf("%s: fails %s=%s (%q)", ns, fe.Tag(), fe.Param(), fe.Value()))
		} else {
			out = append(out, fmt.Sprintf("%s: fails %s (%q)", ns, fe.Tag(), fe.Value()))
		}
	}
	return out
}

func consistencyProblems(cfg *Config) []string {
	var out []string

	seen := make(map[PlanID]bool)
	for i, p := range cfg.Plans.Upgrade {
		if seen[p.ID] {
			out = append(out, fmt.Sprintf("plans.upgrade[%d].id: duplicate %q", i, p.ID))
		}
		seen[p.ID] = true
		if p.ID == PlanFree {
			out = append(out, fmt.Sprintf("plans.upgrade[%d].id: free is not purchasable", i))
		}
	}

	names := make(map[string]bool)
	for i, p := range cfg.Plans.Homepage {
		if names[p.Name] {
			out = append(out, fmt.Sprintf("plans.homepage[%d].name: duplicate %q", i, p.Name))
		}
		names[p.Name] = true
		if p.Popular && strings.TrimSpace(p.PopularBadge) == "" {
			out = append(out, fmt.Sprintf("plans.homepage[%d].popularBadge: required when popular", i))
		}
	}

	if _, ok := cfg.Strings.PlanDetails[PlanPro]; !ok {
		out = append(out, "strings.planDetails: missing pro entry")
	}

	for _, key := range []string{string(PlanFree), "default"} {
		if _, ok := cfg.Strings.Dashboard.ScansPerDay[key]; !ok {
			out = append(out, fmt.Sprintf("strings.dashboard.scansPerDay: missing %s entry", key))
		}
	}

	width := len(cfg.Strings.Comparison.Competitors)
	for i, row := range cfg.Strings.Comparison.Rows {
		if len(row.Values) != width {
			out = append(out, fmt.Sprintf("strings.comparison.rows[%d].values: has %d values for %d competitors", i, len(row.Values), width))
		}
	}

	sources := make(map[string]bool)
	for i, r := range cfg.Redirects {
		if sources[r.Source] {
			out = append(out, fmt.Sprintf("redirects[%d].source: duplicate %q", i, r.Source))
		}
		sources[r.Source] = true
		if r.Source == r.Destination {
			out = append(out, fmt.Sprintf("redirects[%d]: redirects to itself", i))
		}
		if problem := sourceProblem(r.Source); problem != "" {
			out = append(out, fmt.Sprintf("redirects[%d].source: %s", i, problem))
		}
	}
	return out
}

// reservedPaths are served by the application itself; a redirect may not
// shadow them or anything below them.
var reservedPaths = []string{"/api", "/health", "/metrics"}

// sourceProblem checks that a redirect source is a literal path that does
// not collide with an application route.
func sourceProblem(src string) string {
	if !strings.HasPrefix(src, "/") {
		return "" // reported by the startswith rule
	}
	clean := path.Clean(src)
	if strings.ContainsAny(src, ":*?#%\\ ") || (clean != src && clean+"/" != src) {
		return fmt.Sprintf("%q is not a plain path", src)
	}
	for _, reserved := range reservedPaths {
		if src == reserved || strings.HasPrefix(src, reserved+"/") {
			return fmt.Sprintf("%q is reserved for %s", src, reserved)
		}
	}
	return ""
}

func isPlaceholderText(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range placeholderText {
		if lower == p || strings.HasPrefix(lower, p+":") || (p == "lorem ipsum" && strings.Contains(lower, p)) {
			return true
		}
	}
	return false
}

func fieldName(f reflect.StructField) string {
	if name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]; name != "" {
		return name
	}
	return f.Name
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}
