package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// HelmetType is the physical helmet format.
type HelmetType string

const (
	HelmetMini      HelmetType = "mini"
	HelmetMidi      HelmetType = "midi"
	HelmetAuthentic HelmetType = "fullsize-authentic"
	HelmetReplica   HelmetType = "fullsize-replica"
	HelmetSpeedflex HelmetType = "fullsize-speedflex"
)

// HelmetTypes lists every known helmet type.
var HelmetTypes = []HelmetType{HelmetMini, HelmetMidi, HelmetAuthentic, HelmetReplica, HelmetSpeedflex}

// Valid reports whether t is a known helmet type.
func (t HelmetType) Valid() bool {
	for _, known := range HelmetTypes {
		if t == known {
			return true
		}
	}
	return false
}

// DesignType is the cosmetic finish of a helmet.
type DesignType string

const (
	DesignRegular   DesignType = "regular"
	DesignEclipse   DesignType = "eclipse"
	DesignCamo      DesignType = "camo"
	DesignSalute    DesignType = "salute-to-service"
	DesignThrowback DesignType = "throwback"
	DesignLunar     DesignType = "lunar"
	DesignFlash     DesignType = "flash"
	DesignChrome    DesignType = "chrome"
	DesignBlaze     DesignType = "blaze"
	DesignRave      DesignType = "rave"
	DesignAmp       DesignType = "amp"
	DesignSlate     DesignType = "slate"
	DesignTribute   DesignType = "tribute"
	DesignAlternate DesignType = "alternate"
	DesignFlatWhite DesignType = "flat-white"
	DesignColorRush DesignType = "color-rush"
	DesignHistoric  DesignType = "historic"
)

// Source is a named marketplace or vendor price feed.
type Source string

const (
	SourceEbay            Source = "ebay"
	SourceFanatics        Source = "fanatics"
	SourceRSA             Source = "rsa"
	SourceRadtke          Source = "radtke"
	SourcePristine        Source = "pristine"
	SourceSignatureSports Source = "signaturesports"
	SourceGreatSports     Source = "greatsports"
)

// Sources is the allow-list of price sources.
var Sources = []Source{
	SourceEbay, SourceFanatics, SourceRSA, SourceRadtke,
	SourcePristine, SourceSignatureSports, SourceGreatSports,
}

// ParseSource validates s against the allow-list.
func ParseSource(s string) (Source, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, src := range Sources {
		if string(src) == s {
			return src, nil
		}
	}
	return "", fmt.Errorf("%w: %q", types.ErrUnknownSource, s)
}

// Item is one distinct helmet product/variant tracked for pricing (table helmets).
type Item struct {
	ID              int64
	Name            string
	Player          *string
	Team            *string
	HelmetType      HelmetType
	DesignType      DesignType
	AuthCompany     *string
	EbaySearchQuery string
	IsActive        bool
	CreatedAt       time.Time
}

// PlayerName returns the player or "".
func (i *Item) PlayerName() string { return deref(i.Player) }

// TeamName returns the team or "".
func (i *Item) TeamName() string { return deref(i.Team) }

// Key returns the normalized natural key used for duplicate detection.
func (i *Item) Key() NaturalKey {
	return NaturalKey{
		Player:     normalizeKeyPart(i.PlayerName()),
		Team:       normalizeKeyPart(i.TeamName()),
		HelmetType: i.HelmetType,
		DesignType: i.DesignType,
	}
}

// NaturalKey is the intended-unique tuple of a catalog item.
type NaturalKey struct {
	Player     string
	Team       string
	HelmetType HelmetType
	DesignType DesignType
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s|%s|%s|%s", k.Player, k.Team, k.HelmetType, k.DesignType)
}

// PriceObservation is one source-specific price snapshot (table helmet_prices).
type PriceObservation struct {
	ID           int64
	HelmetID     int64
	Source       Source
	MedianPrice  float64
	MinPrice     float64
	MaxPrice     float64
	TotalResults int
	EbayURL      *string
	ScrapedAt    time.Time
}

// DisplayName builds the catalog name for a player/team/type/design tuple,
// e.g. "Patrick Mahomes Chiefs Eclipse Mini Helmet".
func DisplayName(player, team string, ht HelmetType, dt DesignType) string {
	parts := make([]string, 0, 5)
	if player != "" {
		parts = append(parts, player)
	}
	if team != "" {
		parts = append(parts, team)
	}
	if dt != "" && dt != DesignRegular {
		parts = append(parts, titleWords(string(dt)))
	}
	switch ht {
	case HelmetMini:
		parts = append(parts, "Mini")
	case HelmetMidi:
		parts = append(parts, "Midi")
	case HelmetAuthentic:
		parts = append(parts, "Full Size Authentic")
	case HelmetReplica:
		parts = append(parts, "Full Size Replica")
	case HelmetSpeedflex:
		parts = append(parts, "Full Size Speedflex")
	}
	parts = append(parts, "Helmet")
	return strings.Join(parts, " ")
}

// SearchQuery builds the eBay search key for a catalog entry.
func SearchQuery(player, team string, ht HelmetType, dt DesignType) string {
	q := []string{player, team}
	if dt != "" && dt != DesignRegular {
		q = append(q, strings.ReplaceAll(string(dt), "-", " "))
	}
	switch ht {
	case HelmetMini:
		q = append(q, "mini")
	case HelmetMidi:
		q = append(q, "midi")
	case HelmetAuthentic:
		q = append(q, "authentic")
	case HelmetReplica:
		q = append(q, "replica")
	case HelmetSpeedflex:
		q = append(q, "speedflex")
	}
	q = append(q, "signed helmet")
	return strings.ToLower(strings.Join(strings.Fields(strings.Join(q, " ")), " "))
}

// StrPtr returns nil for "" and a pointer otherwise.
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func normalizeKeyPart(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func titleWords(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == ' ' })
	for i, w := range words {
		if w == "to" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
