package parser

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Rules holds every lookup table the title parser consumes.
type Rules struct {
	Version        int               `yaml:"version"`
	Teams          []TeamRule        `yaml:"teams"`
	HelmetTypes    []PatternRule     `yaml:"helmet_types"`
	DesignTypes    []PatternRule     `yaml:"design_types"`
	AuthCompanies  []PatternRule     `yaml:"auth_companies"`
	HelmetKeywords []string          `yaml:"helmet_keywords"`
	KnownPlayers   []string          `yaml:"known_players"`
	Blocklist      []string          `yaml:"blocklist"`
	BlockedPhrases []string          `yaml:"blocked_phrases"`
	ProductWords   []string          `yaml:"product_words"`
	Corrections    map[string]string `yaml:"corrections"`
}

// TeamRule maps a set of aliases (city, mascot, nickname) to a canonical team name.
type TeamRule struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// PatternRule yields Value when Pattern matches (case-insensitive).
type PatternRule struct {
	Value   string `yaml:"value"`
	Pattern string `yaml:"pattern"`
}

// DefaultRules decodes the embedded rule tables.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRules)
}

// LoadRules reads rule tables from a YAML file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes and sanity-checks rule tables.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(r.Teams) == 0 {
		return nil, fmt.Errorf("rules: no teams defined")
	}
	if len(r.HelmetTypes) == 0 {
		return nil, fmt.Errorf("rules: no helmet types defined")
	}
	return &r, nil
}

// rule is a compiled (predicate, result) pair.
type rule struct {
	re    *regexp.Regexp
	value string
}

// ruleList evaluates rules in priority order.
type ruleList []rule

func (rl ruleList) first(s string) (string, bool) {
	for _, r := range rl {
		if r.re.MatchString(s) {
			return r.value, true
		}
	}
	return "", false
}

func compilePatterns(rules []PatternRule) (ruleList, error) {
	out := make(ruleList, 0, len(rules))
	for _, pr := range rules {
		re, err := regexp.Compile("(?i)" + pr.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: invalid pattern %q: %w", pr.Value, pr.Pattern, err)
		}
		out = append(out, rule{re: re, value: pr.Value})
	}
	return out, nil
}

// phrasePattern builds a case-insensitive, word-bounded matcher for a literal phrase.
// Inner whitespace matches any run of whitespace or hyphens.
func phrasePattern(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(words, `[\s\-]+`)
	return regexp.MustCompile(`(?i)(?:^|[^\w'])(` + body + `)(?:$|[^\w'])`)
}

// compileTeams orders aliases longest phrase first so "baltimore colts" is
// tried before "baltimore"; within the same length table order is kept.
func compileTeams(teams []TeamRule) ruleList {
	type entry struct {
		phrase string
		team   string
	}
	var entries []entry
	for _, t := range teams {
		for _, alias := range t.Aliases {
			entries = append(entries, entry{alias, t.Name})
		}
		entries = append(entries, entry{t.Name, t.Name})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return len(strings.Fields(entries[i].phrase)) > len(strings.Fields(entries[j].phrase))
	})

	out := make(ruleList, 0, len(entries))
	for _, e := range entries {
		out = append(out, rule{re: phrasePattern(e.phrase), value: e.team})
	}
	return out
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return set
}
