package crisis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		severity RiskSeverity
		category Category
	}{
		{"overdose is immediate", "I'm going to overdose tonight", SeverityImmediate, CategoryMethods},
		{"note is planning", "I already wrote a note for my sister", SeverityImmediate, CategoryPlanning},
		{"immediate beats lower tiers", "I feel hopeless, I want to die and I bought a gun", SeverityImmediate, CategoryPlanning},
		{"direct ideation", "Sometimes I want to die", SeverityElevated, CategoryDirectIdeation},
		{"self harm", "I keep cutting myself", SeverityElevated, CategorySelfHarm},
		{"elevated beats distressed", "It's hopeless, I might hurt myself", SeverityElevated, CategorySelfHarm},
		{"passive ideation", "There's no point in living like this", SeverityDistressed, CategoryPassiveIdeation},
		{"hopelessness", "Everything feels hopeless", SeverityDistressed, CategoryHopelessness},
		{"crisis state", "I can't breathe, I'm losing control", SeverityDistressed, CategoryCrisisState},
		{"case folded", "I WANT TO DIE", SeverityElevated, CategoryDirectIdeation},
		{"ordinary day", "I had a long day at work", SeverityNone, CategoryNone},
		{"sad but not concerning", "I'm feeling sad", SeverityNone, CategoryNone},
		{"empty", "", SeverityNone, CategoryNone},
		{"whitespace", "  \n\t ", SeverityNone, CategoryNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			assert.Equal(t, tt.severity, got.Severity)
			assert.Equal(t, tt.category, got.MatchedCategory)
			assert.Equal(t, DefaultPatternVersion, got.TableVersion)
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	for _, text := range []string{"I bought a gun and wrote a note", "no point", "nice weather"} {
		assert.Equal(t, Classify(text), Classify(text))
	}
}

func TestClassifyPunctuationIsNotNormalized(t *testing.T) {
	// patterns are plain substrings, so punctuation inside a phrase breaks it
	assert.Equal(t, SeverityNone, Classify("want-to-die").Severity)
	assert.Equal(t, SeverityElevated, Classify("...want to die...").Severity)
}

func TestEveryDefaultPatternClassifiesToItsTier(t *testing.T) {
	table := DefaultPatternTable()
	require.NoError(t, table.Validate())
	for _, e := range table.Entries {
		got := Classify(e.Pattern)
		assert.Equal(t, e.Tier, got.Severity, "pattern %q", e.Pattern)
	}
}

func TestContainsConcerningContent(t *testing.T) {
	assert.True(t, ContainsConcerningContent("I want to die"))
	assert.True(t, ContainsConcerningContent("I can't go on like this"))
	assert.True(t, ContainsConcerningContent("I feel hopeless"))
	assert.False(t, ContainsConcerningContent("I had a hard day"))
	assert.False(t, ContainsConcerningContent("Session was intense"))
}

func TestCustomTable(t *testing.T) {
	c, err := NewClassifier(PatternTable{
		Version: "test-1",
		Entries: []PatternEntry{
			{Tier: SeverityDistressed, Category: CategoryHopelessness, Pattern: "Grey Fog"},
		},
	})
	require.NoError(t, err)

	got := c.Classify("it's that grey fog again")
	assert.Equal(t, SeverityDistressed, got.Severity)
	assert.Equal(t, "test-1", got.TableVersion)
	assert.Equal(t, SeverityNone, c.Classify("I want to die").Severity)
}

func TestParsePatternTable(t *testing.T) {
	data := []byte(`
version: "2025.03"
entries:
  - tier: immediate
    category: methods
    pattern: "jump off"
  - tier: distressed
    category: crisisState
    pattern: "panic attack"
`)
	table, err := ParsePatternTable(data)
	require.NoError(t, err)
	assert.Equal(t, "2025.03", table.Version)
	assert.Equal(t, map[RiskSeverity]int{SeverityImmediate: 1, SeverityDistressed: 1}, table.Count())

	jsonTable, err := ParsePatternTable([]byte(`{"version":"j1","entries":[{"tier":"elevated","category":"selfHarm","pattern":"hurt myself"}]}`))
	require.NoError(t, err)
	assert.Equal(t, SeverityElevated, jsonTable.Entries[0].Tier)
}

func TestParsePatternTableRejectsMisplacedCategory(t *testing.T) {
	_, err := ParsePatternTable([]byte(`
version: bad
entries:
  - tier: distressed
    category: methods
    pattern: overdose
`))
	assert.Error(t, err)

	_, err = ParsePatternTable([]byte(`{"version":"x","entries":[{"tier":"elevated","category":"selfHarm","pattern":"  "}]}`))
	assert.Error(t, err)

	_, err = ParsePatternTable([]byte(`{"version":"x","entries":[{"tier":"severe","category":"selfHarm","pattern":"a"}]}`))
	assert.Error(t, err)
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityNone < SeverityDistressed)
	assert.True(t, SeverityDistressed < SeverityElevated)
	assert.True(t, SeverityElevated < SeverityImmediate)
	assert.Equal(t, SeverityElevated, MaxSeverity(SeverityElevated, SeverityDistressed))

	s, err := ParseSeverity(" Immediate ")
	require.NoError(t, err)
	assert.Equal(t, SeverityImmediate, s)

	var decoded RiskSeverity
	require.NoError(t, decoded.UnmarshalJSON([]byte(`"elevated"`)))
	assert.Equal(t, SeverityElevated, decoded)
}
