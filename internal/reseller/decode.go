package reseller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Feature names a capability a tenant can switch on or off.
type Feature string

const (
	FeatureFileUpload          Feature = "fileUpload"
	FeatureAPIAccess           Feature = "apiAccess"
	FeatureTeamManagement      Feature = "teamManagement"
	FeatureDemoPage            Feature = "demoPage"
	FeatureHeroDemo            Feature = "heroDemo"
	FeaturePlagiarismDetection Feature = "plagiarismDetection"
)

// Features is the set of capability flags. Every flag must be spelled out
// in the entry; a missing flag is a malformed entry, not an implicit false.
type Features struct {
	FileUpload          bool `json:"fileUpload"`
	APIAccess           bool `json:"apiAccess"`
	TeamManagement      bool `json:"teamManagement"`
	DemoPage            bool `json:"demoPage"`
	HeroDemo            bool `json:"heroDemo"`
	PlagiarismDetection bool `json:"plagiarismDetection"`
}

func (f *Features) flags() map[Feature]*bool {
	return map[Feature]*bool{
		FeatureFileUpload:          &f.FileUpload,
		FeatureAPIAccess:           &f.APIAccess,
		FeatureTeamManagement:      &f.TeamManagement,
		FeatureDemoPage:            &f.DemoPage,
		FeatureHeroDemo:            &f.HeroDemo,
		FeaturePlagiarismDetection: &f.PlagiarismDetection,
	}
}

// Enabled reports whether feat is switched on.
func (f Features) Enabled(feat Feature) bool {
	p, ok := f.flags()[feat]
	return ok && *p
}

func (f *Features) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]bool
	if err := node.Decode(&raw); err != nil {
		return err
	}
	flags := f.flags()
	var problems []string
	for name := range raw {
		if _, ok := flags[Feature(name)]; !ok {
			problems = append(problems, fmt.Sprintf("unknown flag %q", name))
		}
	}
	for name, dst := range flags {
		v, ok := raw[string(name)]
		if !ok {
			problems = append(problems, fmt.Sprintf("flag %q missing", name))
			continue
		}
		*dst = v
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("line %d: features: %s", node.Line, strings.Join(problems, "; "))
	}
	return nil
}

func (f Features) MarshalYAML() (interface{}, error) {
	out := make(map[string]bool, 6)
	for name, v := range f.flags() {
		out[string(name)] = *v
	}
	return out, nil
}

// Cell is one value of a comparison row: either a check mark (bool) or
// free text such as "10/jour".
type Cell struct {
	text   string
	check  bool
	isBool bool
}

// TextCell and CheckCell build cells in code.
func TextCell(s string) Cell { return Cell{text: s} }
func CheckCell(b bool) Cell { return Cell{check: b, isBool: true} }

// Bool returns the check value and whether the cell is a check mark.
func (c Cell) Bool() (bool, bool) { return c.check, c.isBool }

func (c Cell) String() string {
	if c.isBool {
		if c.check {
			return "✓"
		}
		return "✗"
	}
	return c.text
}

func (c Cell) empty() bool { return !c.isBool && strings.TrimSpace(c.text) == "" }

func (c *Cell) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: comparison value must be a string or a bool", node.Line)
	}
	if node.ShortTag() == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*c = CheckCell(b)
		return nil
	}
	*c = TextCell(node.Value)
	return nil
}

func (c Cell) MarshalYAML() (interface{}, error) {
	if c.isBool {
		return c.check, nil
	}
	return c.text, nil
}

func (c Cell) MarshalJSON() ([]byte, error) {
	if c.isBool {
		return json.Marshal(c.check)
	}
	return json.Marshal(c.text)
}

// Decode parses one YAML entry. Unknown keys are rejected so that a typo
// cannot silently drop a string.
func Decode(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}
	return &cfg, nil
}
