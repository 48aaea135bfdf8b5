package crisis

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// PatternEntry is one (tier, category, pattern) row of a pattern table.
type PatternEntry struct {
	Tier     RiskSeverity `json:"tier" yaml:"tier"`
	Category Category     `json:"category" yaml:"category"`
	Pattern  string       `json:"pattern" yaml:"pattern"`
}

// PatternTable is a versioned list of screening patterns. Tier priority is
// fixed (immediate, elevated, distressed); only the rows are swappable.
type PatternTable struct {
	Version string         `json:"version" yaml:"version"`
	Entries []PatternEntry `json:"entries" yaml:"entries"`
}

// ParsePatternTable 解析 YAML 或 JSON 格式的模式表
func ParsePatternTable(data []byte) (PatternTable, error) {
	var table PatternTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return PatternTable{}, fmt.Errorf("parse pattern table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return PatternTable{}, err
	}
	return table, nil
}

// Validate checks that every row names a known category, that the row's
// tier is the category's tier and that no pattern is blank.
func (t PatternTable) Validate() error {
	if strings.TrimSpace(t.Version) == "" {
		return fmt.Errorf("pattern table: missing version")
	}
	if len(t.Entries) == 0 {
		return fmt.Errorf("pattern table %s: no entries", t.Version)
	}
	for i, e := range t.Entries {
		tier, ok := e.Category.Tier()
		if !ok {
			return fmt.Errorf("pattern table %s: entry %d: unknown category %q", t.Version, i, e.Category)
		}
		if e.Tier != tier {
			return fmt.Errorf("pattern table %s: entry %d: category %s belongs to tier %s, not %s",
				t.Version, i, e.Category, tier, e.Tier)
		}
		if strings.TrimSpace(e.Pattern) == "" {
			return fmt.Errorf("pattern table %s: entry %d: empty pattern", t.Version, i)
		}
	}
	return nil
}

// Count returns the number of rows per tier.
func (t PatternTable) Count() map[RiskSeverity]int {
	out := make(map[RiskSeverity]int, 3)
	for _, e := range t.Entries {
		out[e.Tier]++
	}
	return out
}

const DefaultPatternVersion = "2024.1"

func rows(tier RiskSeverity, category Category, patterns ...string) []PatternEntry {
	out := make([]PatternEntry, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, PatternEntry{Tier: tier, Category: category, Pattern: p})
	}
	return out
}

// DefaultPatternTable returns the compiled-in screening table.
func DefaultPatternTable() PatternTable {
	var entries []PatternEntry

	// immediate: methods, planning and decisive intent
	entries = append(entries, rows(SeverityImmediate, CategoryMethods,
		"jump off", "jump from", "jump off a bridge",
		"slit my wrists", "cut my wrists",
		"overdose", "take all my pills", "take all the pills",
		"hang myself", "hanging myself",
		"shoot myself", "shooting myself",
		"drown myself", "drowning myself",
		"step in front of", "throw myself",
		"stab myself",
	)...)
	entries = append(entries, rows(SeverityImmediate, CategoryPlanning,
		"writing a note", "wrote a note", "goodbye letter",
		"giving away my things", "gave away my stuff",
		"saying goodbye to everyone", "said my goodbyes",
		"making arrangements", "made arrangements",
		"before i go", "when i'm gone", "after i'm gone",
		"i've decided to end", "decided to kill",
		"made up my mind", "i have a plan",
		"bought a gun", "found a way",
	)...)

	// elevated: direct ideation and self-harm
	entries = append(entries, rows(SeverityElevated, CategoryDirectIdeation,
		"want to die", "i want to die",
		"kill myself", "killing myself",
		"end my life", "end it all", "take my own life", "take my life",
		"suicide", "suicidal",
		"better off dead", "rather be dead",
		"wish i was dead", "wish i were dead", "wish i wasn't alive",
		"don't want to live", "don't want to be alive",
		"not worth living", "life isn't worth",
	)...)
	entries = append(entries, rows(SeverityElevated, CategorySelfHarm,
		"hurt myself", "hurting myself", "harm myself", "harming myself",
		"cutting myself", "cut myself",
		"burn myself", "burning myself",
		"punish myself", "punishing myself",
		"hitting myself", "hit myself",
	)...)

	// distressed: passive ideation, hopelessness, acute crisis state
	entries = append(entries, rows(SeverityDistressed, CategoryPassiveIdeation,
		"can't go on", "cannot go on",
		"no point", "no point in living", "no point in trying",
		"better off without me", "world would be better without",
		"don't want to be here", "don't want to wake up",
		"wish i wasn't here", "wish i could disappear",
		"nobody would care if", "nobody would miss me",
		"nobody would notice", "no one would care",
		"wouldn't matter if i", "the world would be better",
	)...)
	entries = append(entries, rows(SeverityDistressed, CategoryHopelessness,
		"hopeless", "completely hopeless",
		"no way out", "trapped forever", "never get better",
		"nothing will change", "nothing ever changes",
		"given up", "give up", "giving up on everything",
		"what's the point", "there's no point",
		"can't take it", "can't take it anymore",
		"too much to handle", "too much to bear",
		"can't do this anymore", "i can't anymore",
		"no reason to live", "no reason to keep going",
	)...)
	entries = append(entries, rows(SeverityDistressed, CategoryCrisisState,
		"panic attack", "having a panic attack",
		"flashback", "having a flashback",
		"dissociating", "i'm dissociating",
		"not in my body", "can't feel my body",
		"losing control", "losing my mind",
		"can't breathe", "i can't breathe",
	)...)

	return PatternTable{Version: DefaultPatternVersion, Entries: entries}
}
