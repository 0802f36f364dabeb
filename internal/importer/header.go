package importer

import (
	"regexp"
	"strings"

	"github.com/IshaanNene/HelmetPulse/internal/types"
)

// headerScanRows is how far down a sheet the header row may sit.
const headerScanRows = 25

// Columns holds the index of each recognised column, -1 when absent.
type Columns struct {
	Title  int
	Price  int
	Player int
	Team   int
	Type   int
	Design int
	Auth   int
}

// columnRules classify a header cell; the first matching rule wins, so the
// specific headers ("player name", "sale price") are tried before "name".
var columnRules = []struct {
	re  *regexp.Regexp
	set func(c *Columns) *int
}{
	{regexp.MustCompile(`\b(player|athlete)\b`), func(c *Columns) *int { return &c.Player }},
	{regexp.MustCompile(`\bteam\b`), func(c *Columns) *int { return &c.Team }},
	{regexp.MustCompile(`\b(auth|authentication|authenticator|coa)\b`), func(c *Columns) *int { return &c.Auth }},
	{regexp.MustCompile(`price|cost|retail|msrp|\bsale\b|wholesale`), func(c *Columns) *int { return &c.Price }},
	{regexp.MustCompile(`\b(type|size|style)\b`), func(c *Columns) *int { return &c.Type }},
	{regexp.MustCompile(`\b(design|variant|finish)\b`), func(c *Columns) *int { return &c.Design }},
	{regexp.MustCompile(`description|\bitem\b|product|title|\bname\b`), func(c *Columns) *int { return &c.Title }},
}

// FindHeader returns the first row within the scan window that has both a
// title-like and a price-like header, and the columns it names.
func FindHeader(rows [][]string) (Columns, int, error) {
	for i := 0; i < len(rows) && i < headerScanRows; i++ {
		cols := classify(rows[i])
		if cols.Title >= 0 && cols.Price >= 0 {
			return cols, i, nil
		}
	}
	return Columns{}, -1, types.ErrNoHeaderRow
}

func classify(row []string) Columns {
	cols := Columns{Title: -1, Price: -1, Player: -1, Team: -1, Type: -1, Design: -1, Auth: -1}
	for i, cell := range row {
		h := strings.ToLower(strings.TrimSpace(cell))
		if h == "" {
			continue
		}
		for _, rule := range columnRules {
			if rule.re.MatchString(h) {
				if p := rule.set(&cols); *p < 0 {
					*p = i
				}
				break
			}
		}
	}
	return cols
}

// cell returns row[i] trimmed, or "" when the column is absent or the row short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
