package crisis

import (
	"strings"
)

// ClassificationResult is produced fresh for every message and never stored
// by the pipeline. Pattern and TableVersion are for audit logs only.
type ClassificationResult struct {
	Severity        RiskSeverity `json:"severity"`
	MatchedCategory Category     `json:"matchedCategory,omitempty"`
	Pattern         string       `json:"-"`
	TableVersion    string       `json:"tableVersion,omitempty"`
}

// Concerning reports whether the message counts as a crisis indicator.
func (r ClassificationResult) Concerning() bool {
	return r.Severity != SeverityNone
}

// tierOrder is the fixed check order; the first tier with a match wins.
var tierOrder = [...]RiskSeverity{SeverityImmediate, SeverityElevated, SeverityDistressed}

type compiledPattern struct {
	category Category
	pattern  string
}

// Classifier 基于子串匹配的风险分级器，构建后只读，可并发使用
type Classifier struct {
	version string
	tiers   map[RiskSeverity][]compiledPattern
}

// NewClassifier builds a classifier over a validated table. Patterns are
// case-folded once here so Classify only folds the input.
func NewClassifier(table PatternTable) (*Classifier, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	c := &Classifier{
		version: table.Version,
		tiers:   make(map[RiskSeverity][]compiledPattern, len(tierOrder)),
	}
	for _, e := range table.Entries {
		c.tiers[e.Tier] = append(c.tiers[e.Tier], compiledPattern{
			category: e.Category,
			pattern:  strings.ToLower(e.Pattern),
		})
	}
	return c, nil
}

// MustNewClassifier is NewClassifier for tables known to be valid.
func MustNewClassifier(table PatternTable) *Classifier {
	c, err := NewClassifier(table)
	if err != nil {
		panic(err)
	}
	return c
}

// Version returns the version of the table the classifier was built from.
func (c *Classifier) Version() string { return c.version }

// Classify maps text to a severity tier. Empty or whitespace-only text is
// always SeverityNone.
func (c *Classifier) Classify(text string) ClassificationResult {
	none := ClassificationResult{Severity: SeverityNone, TableVersion: c.version}
	if strings.TrimSpace(text) == "" {
		return none
	}
	lowered := strings.ToLower(text)
	for _, tier := range tierOrder {
		for _, p := range c.tiers[tier] {
			if strings.Contains(lowered, p.pattern) {
				return ClassificationResult{
					Severity:        tier,
					MatchedCategory: p.category,
					Pattern:         p.pattern,
					TableVersion:    c.version,
				}
			}
		}
	}
	return none
}

// ContainsConcerningContent reports whether text matches any tier.
func (c *Classifier) ContainsConcerningContent(text string) bool {
	return c.Classify(text).Concerning()
}

var defaultClassifier = MustNewClassifier(DefaultPatternTable())

// DefaultClassifier returns the classifier over the compiled-in table.
func DefaultClassifier() *Classifier { return defaultClassifier }

// Classify classifies text with the compiled-in table.
func Classify(text string) ClassificationResult {
	return defaultClassifier.Classify(text)
}

// ContainsConcerningContent checks text against the compiled-in table.
func ContainsConcerningContent(text string) bool {
	return defaultClassifier.ContainsConcerningContent(text)
}
