package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// minTitleLength is the shortest title the player extractor will look at.
const minTitleLength = 10

// Candidate is the structured record extracted from a title or spreadsheet row.
// Player, Team and AuthCompany are nil when nothing could be extracted.
type Candidate struct {
	Player      *string
	Team        *string
	HelmetType  catalog.HelmetType
	DesignType  catalog.DesignType
	AuthCompany *string
	IsValid     bool
}

// PlayerName returns the player or "".
func (c Candidate) PlayerName() string {
	if c.Player == nil {
		return ""
	}
	return *c.Player
}

// TeamName returns the team or "".
func (c Candidate) TeamName() string {
	if c.Team == nil {
		return ""
	}
	return *c.Team
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s / %s / %s / %s", c.PlayerName(), c.TeamName(), c.HelmetType, c.DesignType)
}

var (
	tokenRe = `[A-Z][a-zA-Z'.\-]+`

	// "Capitalized Capitalized" (up to three tokens) right before Autographed/Signed.
	beforeKeywordRe = regexp.MustCompile(`\b((?:` + tokenRe + `\s+){1,2}` + tokenRe + `)\s+(?:Hand\s+)?(?:Autographed|Signed|AUTOGRAPHED|SIGNED)\b`)

	// Two capitalized words at the start of the title.
	leadingRe = regexp.MustCompile(`^\s*(` + tokenRe + `\s+` + tokenRe + `)`)

	// "signed by First Last".
	signedByRe = regexp.MustCompile(`(?i:signed\s+by)\s+(` + tokenRe + `(?:\s+` + tokenRe + `){1,2})`)
)

// Parser maps unstructured product titles to Candidates.
// It never returns errors: failure is reported through Candidate.IsValid.
type Parser struct {
	rules          *Rules
	teams          ruleList
	helmetTypes    ruleList
	designTypes    ruleList
	authCompanies  ruleList
	knownPlayers   ruleList
	helmetKeywords []*regexp.Regexp
	blocklist      map[string]bool
	blockedPhrases []*regexp.Regexp
	players        map[string]bool
	productWords   map[string]bool
	teamWords      map[string]bool
	teamPhrases    [][]string
	corrections    map[string]string
	logger         *slog.Logger
}

// New compiles rule tables into a Parser.
func New(rules *Rules, logger *slog.Logger) (*Parser, error) {
	p := &Parser{
		rules:        rules,
		teams:        compileTeams(rules.Teams),
		blocklist:    wordSet(rules.Blocklist),
		productWords: wordSet(rules.ProductWords),
		teamWords:    make(map[string]bool),
		corrections:  make(map[string]string, len(rules.Corrections)),
		logger:       logger.With("component", "title_parser"),
	}

	var err error
	if p.helmetTypes, err = compilePatterns(rules.HelmetTypes); err != nil {
		return nil, err
	}
	for _, r := range p.helmetTypes {
		if !catalog.HelmetType(r.value).Valid() {
			return nil, fmt.Errorf("rules: unknown helmet type %q", r.value)
		}
	}
	if p.designTypes, err = compilePatterns(rules.DesignTypes); err != nil {
		return nil, err
	}
	if p.authCompanies, err = compilePatterns(rules.AuthCompanies); err != nil {
		return nil, err
	}

	p.players = make(map[string]bool, len(rules.KnownPlayers))
	for _, name := range rules.KnownPlayers {
		p.knownPlayers = append(p.knownPlayers, rule{re: phrasePattern(name), value: name})
		p.players[strings.ToLower(name)] = true
	}
	for _, phrase := range rules.BlockedPhrases {
		p.blockedPhrases = append(p.blockedPhrases, phrasePattern(phrase))
	}
	for _, kw := range rules.HelmetKeywords {
		p.helmetKeywords = append(p.helmetKeywords, phrasePattern(kw))
	}
	for _, t := range rules.Teams {
		p.teamWords[strings.ToLower(t.Name)] = true
		p.teamPhrases = append(p.teamPhrases, strings.Fields(strings.ToLower(t.Name)))
		for _, alias := range t.Aliases {
			p.teamPhrases = append(p.teamPhrases, strings.Fields(strings.ToLower(alias)))
		}
	}
	for bad, good := range rules.Corrections {
		p.corrections[strings.ToLower(bad)] = good
	}

	p.logger.Debug("title parser ready",
		"rules_version", rules.Version,
		"teams", len(rules.Teams),
		"known_players", len(rules.KnownPlayers),
	)
	return p, nil
}

// NewDefault builds a Parser from the embedded rule tables.
func NewDefault(logger *slog.Logger) (*Parser, error) {
	rules, err := DefaultRules()
	if err != nil {
		return nil, err
	}
	return New(rules, logger)
}

// Version returns the rule table version.
func (p *Parser) Version() int { return p.rules.Version }

// Parse extracts a Candidate from a title. defaultType is used when no
// helmet-type keyword is present.
func (p *Parser) Parse(title string, defaultType catalog.HelmetType) Candidate {
	title = strings.Join(strings.Fields(title), " ")

	c := Candidate{
		HelmetType: p.HelmetType(title, defaultType),
		DesignType: p.DesignType(title),
	}
	if team, ok := p.Team(title); ok {
		c.Team = &team
	}
	if auth, ok := p.AuthCompany(title); ok {
		c.AuthCompany = &auth
	}
	if player, ok := p.Player(title); ok {
		c.Player = &player
		c.IsValid = true
	}
	return c
}

// ParseListing parses a listing title and lets source-provided hints override
// the parsed fields.
func (p *Parser) ParseListing(l *types.Listing, defaultType catalog.HelmetType) Candidate {
	c := p.Parse(l.Title, defaultType)

	if v := l.Hint(types.HintPlayer); v != "" {
		if name, ok := p.cleanName(v); ok {
			c.Player = &name
			c.IsValid = true
		}
	}
	if v := l.Hint(types.HintTeam); v != "" {
		if team, ok := p.Team(v); ok {
			c.Team = &team
		}
	}
	if v := l.Hint(types.HintHelmetType); v != "" {
		if ht := catalog.HelmetType(strings.ToLower(v)); ht.Valid() {
			c.HelmetType = ht
		} else {
			c.HelmetType = p.HelmetType(v, c.HelmetType)
		}
	}
	if v := l.Hint(types.HintDesignType); v != "" {
		c.DesignType = p.DesignType(v)
	}
	if v := l.Hint(types.HintAuthCompany); v != "" {
		if auth, ok := p.AuthCompany(v); ok {
			c.AuthCompany = &auth
		} else {
			c.AuthCompany = catalog.StrPtr(v)
		}
	}
	return c
}

// Team returns the canonical team for the first alias found in s.
func (p *Parser) Team(s string) (string, bool) {
	return p.teams.first(s)
}

// HelmetType classifies s, falling back to def (or fullsize-replica when def is empty).
func (p *Parser) HelmetType(s string, def catalog.HelmetType) catalog.HelmetType {
	if v, ok := p.helmetTypes.first(s); ok {
		return catalog.HelmetType(v)
	}
	if def == "" {
		return catalog.HelmetReplica
	}
	return def
}

// LookupHelmetType returns the helmet type s names, either as a canonical
// value or through the helmet type patterns.
func (p *Parser) LookupHelmetType(s string) (catalog.HelmetType, bool) {
	s = strings.TrimSpace(s)
	if ht := catalog.HelmetType(strings.ToLower(s)); ht.Valid() {
		return ht, true
	}
	v, ok := p.helmetTypes.first(s)
	return catalog.HelmetType(v), ok
}

// DesignType returns the first cosmetic variant found in s, or regular.
func (p *Parser) DesignType(s string) catalog.DesignType {
	if v, ok := p.designTypes.first(s); ok {
		return catalog.DesignType(v)
	}
	return catalog.DesignRegular
}

// AuthCompany returns the authenticator named in s.
func (p *Parser) AuthCompany(s string) (string, bool) {
	return p.authCompanies.first(s)
}

// Player runs the name extraction strategies in order and returns the first
// name that survives cleaning.
func (p *Parser) Player(title string) (string, bool) {
	if len(strings.TrimSpace(title)) < minTitleLength || !p.isHelmetTitle(title) {
		return "", false
	}

	if name, ok := p.knownPlayers.first(title); ok {
		return name, true
	}

	strategies := []struct {
		name string
		re   *regexp.Regexp
	}{
		{"before_keyword", beforeKeywordRe},
		{"leading_words", leadingRe},
		{"signed_by", signedByRe},
	}
	for _, s := range strategies {
		m := s.re.FindStringSubmatch(title)
		if len(m) < 2 {
			continue
		}
		if name, ok := p.cleanName(m[1]); ok {
			p.logger.Debug("player extracted", "strategy", s.name, "player", name, "title", title)
			return name, true
		}
	}
	return "", false
}

// Correct returns the fixed spelling for a known-bad player name.
func (p *Parser) Correct(name string) (string, bool) {
	fixed, ok := p.corrections[strings.ToLower(strings.TrimSpace(name))]
	if !ok || fixed == name {
		return "", false
	}
	return fixed, true
}

// IsTeamName reports whether s is exactly a team name or alias.
func (p *Parser) IsTeamName(s string) bool {
	words := strings.Fields(strings.ToLower(s))
	if len(words) == 0 {
		return false
	}
	for _, phrase := range p.teamPhrases {
		if equalWords(words, phrase) {
			return true
		}
	}
	return false
}

// IsBlocked reports whether any word of s is on the player blocklist or s
// contains a blocked phrase.
func (p *Parser) IsBlocked(s string) bool {
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if p.blocklist[strings.Trim(w, ",;:()")] {
			return true
		}
	}
	for _, re := range p.blockedPhrases {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsKnownPlayer reports whether name is in the known players table.
func (p *Parser) IsKnownPlayer(name string) bool {
	return p.players[strings.ToLower(strings.Join(strings.Fields(name), " "))]
}

func (p *Parser) isHelmetTitle(title string) bool {
	for _, re := range p.helmetKeywords {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// cleanName strips leading product words and a leading team phrase, cuts
// the name at the first team alias and rejects names that collide with the
// blocklist or are too short. A leading team phrase is only stripped when two
// words remain, so "Dallas Goedert" keeps its first name.
func (p *Parser) cleanName(raw string) (string, bool) {
	words := strings.Fields(raw)
	for i, w := range words {
		words[i] = strings.Trim(w, ",;:()|/")
	}

	for len(words) > 0 {
		if p.productWords[strings.ToLower(words[0])] {
			words = words[1:]
			continue
		}
		if n := p.teamPhraseLen(words); n > 0 && len(words)-n >= 2 {
			words = words[n:]
			continue
		}
		break
	}
	for i := 1; i < len(words); i++ {
		lw := strings.ToLower(words[i])
		if p.productWords[lw] || p.blocklist[lw] || p.startsTeamPhrase(words[i:]) {
			words = words[:i]
			break
		}
	}

	name := strings.Join(words, " ")
	if len(name) < 3 || len(words) < 2 {
		return "", false
	}
	if p.IsBlocked(name) || p.IsTeamName(name) {
		return "", false
	}
	for _, w := range words {
		if p.teamWords[strings.ToLower(w)] {
			return "", false
		}
	}
	return name, true
}

func (p *Parser) startsTeamPhrase(words []string) bool {
	return p.teamPhraseLen(words) > 0
}

// teamPhraseLen returns the word count of the longest team phrase words
// starts with, or 0.
func (p *Parser) teamPhraseLen(words []string) int {
	lower := make([]string, len(words))
	for i, w := range words {
		lower[i] = strings.ToLower(w)
	}
	longest := 0
	for _, phrase := range p.teamPhrases {
		if len(phrase) > longest && len(phrase) <= len(lower) && equalWords(lower[:len(phrase)], phrase) {
			longest = len(phrase)
		}
	}
	return longest
}

func equalWords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
