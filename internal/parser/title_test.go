package parser

import (
	"strings"
	"testing"

	"github.com/IshaanNene/HelmetPulse/internal/catalog"
	"github.com/IshaanNene/HelmetPulse/internal/types"
)

func newTestParser(t *testing.T) *Parser {
	t.Helper()
	p, err := NewDefault(testLogger)
	if err != nil {
		t.Fatalf("build parser: %v", err)
	}
	return p
}

func TestParseMahomesAuthentic(t *testing.T) {
	p := newTestParser(t)
	c := p.Parse("Patrick Mahomes Kansas City Chiefs Autographed Full-Size Authentic Helmet JSA", catalog.HelmetReplica)

	if !c.IsValid {
		t.Fatal("expected valid candidate")
	}
	if c.PlayerName() != "Patrick Mahomes" {
		t.Errorf("player: expected Patrick Mahomes, got %q", c.PlayerName())
	}
	if c.TeamName() != "Chiefs" {
		t.Errorf("team: expected Chiefs, got %q", c.TeamName())
	}
	if c.HelmetType != catalog.HelmetAuthentic {
		t.Errorf("helmet type: expected fullsize-authentic, got %q", c.HelmetType)
	}
	if c.DesignType != catalog.DesignRegular {
		t.Errorf("design type: expected regular, got %q", c.DesignType)
	}
	if c.AuthCompany == nil || *c.AuthCompany != "JSA" {
		t.Errorf("auth company: expected JSA, got %v", c.AuthCompany)
	}
}

func TestParseNoPlayer(t *testing.T) {
	p := newTestParser(t)
	c := p.Parse("NFL Eclipse Mini Helmet Signed", catalog.HelmetReplica)

	if c.IsValid {
		t.Error("expected invalid candidate")
	}
	if c.Player != nil {
		t.Errorf("expected nil player, got %q", *c.Player)
	}
	if c.HelmetType != catalog.HelmetMini {
		t.Errorf("expected mini, got %q", c.HelmetType)
	}
	if c.DesignType != catalog.DesignEclipse {
		t.Errorf("expected eclipse, got %q", c.DesignType)
	}
}

func TestTeamAliases(t *testing.T) {
	p := newTestParser(t)
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("rules: %v", err)
	}

	for _, team := range rules.Teams {
		for _, alias := range append([]string{team.Name}, team.Aliases...) {
			variants := []string{alias, strings.ToUpper(alias), strings.ToLower(alias)}
			for _, v := range variants {
				title := "Someone Else " + v + " Signed Mini Helmet"
				got, ok := p.Team(title)
				if !ok || got != team.Name {
					t.Errorf("alias %q: expected %s, got %q (ok=%v)", v, team.Name, got, ok)
				}
			}
		}
	}
}

func TestHelmetTypePriority(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		title    string
		def      catalog.HelmetType
		expected catalog.HelmetType
	}{
		{"Josh Allen Signed Authentic Mini Helmet", catalog.HelmetReplica, catalog.HelmetMini},
		{"Josh Allen Signed Midi Authentic Helmet", catalog.HelmetReplica, catalog.HelmetMidi},
		{"Josh Allen Signed Speedflex Authentic Helmet", catalog.HelmetReplica, catalog.HelmetSpeedflex},
		{"Josh Allen Signed Replica Authentic Helmet", catalog.HelmetAuthentic, catalog.HelmetReplica},
		{"Josh Allen Signed Full Size Authentic Helmet", catalog.HelmetReplica, catalog.HelmetAuthentic},
		{"Josh Allen Signed Full Size Helmet", catalog.HelmetAuthentic, catalog.HelmetAuthentic},
		{"Josh Allen Signed Full Size Helmet", "", catalog.HelmetReplica},
		{"JOSH ALLEN SIGNED MINI HELMET", catalog.HelmetReplica, catalog.HelmetMini},
	}

	for _, tt := range tests {
		if got := p.HelmetType(tt.title, tt.def); got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.title, tt.expected, got)
		}
	}
}

func TestLookupHelmetType(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		input    string
		expected catalog.HelmetType
		ok       bool
	}{
		{"fullsize-authentic", catalog.HelmetAuthentic, true},
		{"MINI", catalog.HelmetMini, true},
		{"Speed Flex", catalog.HelmetSpeedflex, true},
		{"replica", catalog.HelmetReplica, true},
		{"bobblehead", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := p.LookupHelmetType(tt.input)
		if ok != tt.ok || got != tt.expected {
			t.Errorf("%q: expected (%s, %v), got (%s, %v)", tt.input, tt.expected, tt.ok, got, ok)
		}
	}
}

func TestDesignType(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		title    string
		expected catalog.DesignType
	}{
		{"Josh Allen Signed Mini Helmet", catalog.DesignRegular},
		{"Josh Allen Signed Eclipse Mini Helmet", catalog.DesignEclipse},
		{"Josh Allen Salute To Service Authentic Helmet", catalog.DesignSalute},
		{"Josh Allen Signed Throwback Speedflex", catalog.DesignThrowback},
		{"Jerry Rice Signed Camo Mini", catalog.DesignCamo},
		{"Jerry Rice Signed Lunar Eclipse Mini", catalog.DesignEclipse},
		{"Tom Brady Color Rush Replica Helmet", catalog.DesignColorRush},
		{"Tom Brady Flat White Replica Helmet", catalog.DesignFlatWhite},
	}

	for _, tt := range tests {
		if got := p.DesignType(tt.title); got != tt.expected {
			t.Errorf("%q: expected %s, got %s", tt.title, tt.expected, got)
		}
	}
}

func TestPlayerStrategies(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{"known player", "NFL Signed Tom Brady Mini Helmet", "Tom Brady"},
		{"before keyword", "Kenny Pickett Signed Steelers Mini Helmet", "Kenny Pickett"},
		{"leading words", "Bucky Irving Buccaneers Mini Helmet Beckett", "Bucky Irving"},
		{"signed by", "Riddell Mini Helmet signed by Kenny Pickett", "Kenny Pickett"},
		{"team cut", "Malik Nabers New York Giants Autographed Authentic Helmet", "Malik Nabers"},
		{"leading team", "New York Giants Lawrence Taylor Signed Helmet", "Lawrence Taylor"},
		{"leading mascot", "Steelers Justin Fields Signed Mini Helmet", "Justin Fields"},
		{"city as first name", "Dallas Goedert Signed Eagles Mini Helmet", "Dallas Goedert"},
		{"surname is a common word", "Breece Hall New York Jets Signed Mini Helmet", "Breece Hall"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := p.Player(tt.title)
			if !ok {
				t.Fatalf("%q: no player extracted", tt.title)
			}
			if got != tt.expected {
				t.Errorf("%q: expected %q, got %q", tt.title, tt.expected, got)
			}
		})
	}
}

func TestPlayerRejects(t *testing.T) {
	p := newTestParser(t)

	titles := []string{
		"",
		"Mini",
		"Helmet JSA",
		"Kenny Pickett Signed Photo 8x10",
		"Kansas City Chiefs Signed Mini Helmet",
		"Riddell Speed Mini Helmet Autographed",
		"Super Bowl LVII Champions Mini Helmet",
	}

	for _, title := range titles {
		if name, ok := p.Player(title); ok {
			t.Errorf("%q: expected no player, got %q", title, name)
		}
		c := p.Parse(title, catalog.HelmetMini)
		if c.IsValid || c.Player != nil {
			t.Errorf("%q: expected invalid candidate", title)
		}
	}
}

func TestParseListingHints(t *testing.T) {
	p := newTestParser(t)

	l := types.NewListing("pristine", "Signed Mini Helmet", "$150", "")
	l.SetHint(types.HintPlayer, "Bijan Robinson")
	l.SetHint(types.HintTeam, "Atlanta Falcons")
	l.SetHint(types.HintHelmetType, "Speed Mini")

	c := p.ParseListing(l, catalog.HelmetReplica)
	if !c.IsValid || c.PlayerName() != "Bijan Robinson" {
		t.Errorf("expected hinted player, got %q (valid=%v)", c.PlayerName(), c.IsValid)
	}
	if c.TeamName() != "Falcons" {
		t.Errorf("expected Falcons, got %q", c.TeamName())
	}
	if c.HelmetType != catalog.HelmetMini {
		t.Errorf("expected mini, got %q", c.HelmetType)
	}
}

func TestCorrections(t *testing.T) {
	p := newTestParser(t)

	if fixed, ok := p.Correct("Jim Mc"); !ok || fixed != "Jim McMahon" {
		t.Errorf("expected Jim McMahon, got %q (ok=%v)", fixed, ok)
	}
	if fixed, ok := p.Correct("ceedee lamb"); !ok || fixed != "CeeDee Lamb" {
		t.Errorf("expected CeeDee Lamb, got %q (ok=%v)", fixed, ok)
	}
	if _, ok := p.Correct("Patrick Mahomes"); ok {
		t.Error("correct name should not be changed")
	}
}

func TestIsTeamName(t *testing.T) {
	p := newTestParser(t)

	for _, s := range []string{"Chiefs", "kansas city chiefs", "Green Bay", "49ERS"} {
		if !p.IsTeamName(s) {
			t.Errorf("%q should be a team name", s)
		}
	}
	for _, s := range []string{"Patrick Mahomes", "Green", ""} {
		if p.IsTeamName(s) {
			t.Errorf("%q should not be a team name", s)
		}
	}
}

func TestIsBlocked(t *testing.T) {
	p := newTestParser(t)

	tests := []struct {
		name     string
		expected bool
	}{
		{"Breece Hall", false},
		{"Hall of Fame", true},
		{"Pro Football Hall-of-Fame", true},
		{"Super Bowl", true},
		{"Riddell Speed", true},
		{"Puka Nacua", false},
	}

	for _, tt := range tests {
		if got := p.IsBlocked(tt.name); got != tt.expected {
			t.Errorf("%q: expected %v, got %v", tt.name, tt.expected, got)
		}
	}
}

func TestIsKnownPlayer(t *testing.T) {
	p := newTestParser(t)

	if !p.IsKnownPlayer("tom  brady") {
		t.Error("expected Tom Brady to be a known player")
	}
	if p.IsKnownPlayer("Kenny Pickett") {
		t.Error("expected Kenny Pickett to be unknown")
	}
}

func TestParseRulesRejectsBadPattern(t *testing.T) {
	rules, err := ParseRules([]byte(`
version: 1
teams:
  - name: Bills
    aliases: [buffalo]
helmet_types:
  - value: mini
    pattern: '(unclosed'
`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := New(rules, testLogger); err == nil {
		t.Error("expected compile error for bad pattern")
	}

	if _, err := ParseRules([]byte("version: 1\n")); err == nil {
		t.Error("expected error for empty tables")
	}
}
