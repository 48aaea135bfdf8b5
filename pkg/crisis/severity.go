// Package crisis implements the crisis risk screening pipeline: pattern
// classification of user messages, per-conversation risk accumulation,
// tiered supportive responses and the professional alert lifecycle.
package crisis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RiskSeverity 风险等级，按 rank 比较，不按字符串比较
type RiskSeverity int

const (
	SeverityNone RiskSeverity = iota
	SeverityDistressed
	SeverityElevated
	SeverityImmediate
)

var severityNames = [...]string{"none", "distressed", "elevated", "immediate"}

func (s RiskSeverity) String() string {
	if s < SeverityNone || s > SeverityImmediate {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Valid reports whether s is one of the four defined tiers.
func (s RiskSeverity) Valid() bool {
	return s >= SeverityNone && s <= SeverityImmediate
}

// AtLeast reports whether s ranks at or above other.
func (s RiskSeverity) AtLeast(other RiskSeverity) bool {
	return s >= other
}

// Alertable reports whether an alert may be raised at this severity.
func (s RiskSeverity) Alertable() bool {
	return s == SeverityElevated || s == SeverityImmediate
}

// MaxSeverity returns the higher-ranked of a and b.
func MaxSeverity(a, b RiskSeverity) RiskSeverity {
	if b > a {
		return b
	}
	return a
}

// ParseSeverity 解析等级名称（大小写不敏感）
func ParseSeverity(name string) (RiskSeverity, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, v := range severityNames {
		if v == n {
			return RiskSeverity(i), nil
		}
	}
	return SeverityNone, fmt.Errorf("unknown severity: %q", name)
}

func (s RiskSeverity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *RiskSeverity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	v, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalYAML / UnmarshalYAML let pattern tables name tiers in YAML files.
func (s RiskSeverity) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

func (s *RiskSeverity) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	v, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Category 命中的模式类别
type Category string

const (
	CategoryNone            Category = ""
	CategoryMethods         Category = "methods"
	CategoryPlanning        Category = "planning"
	CategoryDirectIdeation  Category = "directIdeation"
	CategorySelfHarm        Category = "selfHarm"
	CategoryPassiveIdeation Category = "passiveIdeation"
	CategoryHopelessness    Category = "hopelessness"
	CategoryCrisisState     Category = "crisisState"
)

// tierOf maps every category to the only tier it may appear in. Tiers are
// disjoint, so a table entry whose tier disagrees is rejected on load.
var tierOf = map[Category]RiskSeverity{
	CategoryMethods:         SeverityImmediate,
	CategoryPlanning:        SeverityImmediate,
	CategoryDirectIdeation:  SeverityElevated,
	CategorySelfHarm:        SeverityElevated,
	CategoryPassiveIdeation: SeverityDistressed,
	CategoryHopelessness:    SeverityDistressed,
	CategoryCrisisState:     SeverityDistressed,
}

// Tier returns the severity tier the category belongs to.
func (c Category) Tier() (RiskSeverity, bool) {
	t, ok := tierOf[c]
	return t, ok
}
