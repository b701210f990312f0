package reseller

import (
	"reflect"
	"testing"
)

func TestInterpolate(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     Vars
		want     string
	}{
		{"known and unknown", "Hi {name}, {pct}% done", Vars{"name": "Ana"}, "Hi Ana, {pct}% done"},
		{"repeated key", "{x}-{x}", Vars{"x": "9"}, "9-9"},
		{"no placeholders", "plain text", Vars{"x": "1"}, "plain text"},
		{"nil vars", "Hi {name}", nil, "Hi {name}"},
		{"single pass", "{a}", Vars{"a": "{b}", "b": "nope"}, "{b}"},
		{"unbalanced braces", "{name {name}", Vars{"name": "Ana"}, "{name Ana"},
		{"empty value", "[{plan}]", Vars{"plan": ""}, "[]"},
		{"punctuated keys", "Hi {first-name}, {plan.name} ends in {days left}", Vars{"first-name": "Ana", "plan.name": "Pro", "days left": "3"}, "Hi Ana, Pro ends in 3"},
		{"empty braces", "{}{name}", Vars{"": "x", "name": "Ana"}, "{}Ana"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interpolate(tt.template, tt.vars); got != tt.want {
				t.Errorf("Interpolate(%q) = %q, want %q", tt.template, got, tt.want)
			}
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{plan}: {count} scans, {plan} again, {plan.name}, {}")
	want := []string{"plan", "count", "plan.name"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders = %v, want %v", got, want)
	}
	if Placeholders("none") != nil {
		t.Error("expected nil for a template without placeholders")
	}
}
