package notifier

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// WatchItem is one helmet a subscriber follows.
type WatchItem struct {
	Player     string `json:"player"`
	Team       string `json:"team"`
	HelmetType string `json:"helmet_type"`
}

// Label is the human-readable form used in the email.
func (w WatchItem) Label() string {
	parts := []string{w.Player}
	if w.Team != "" {
		parts = append(parts, w.Team)
	}
	if w.HelmetType != "" {
		parts = append(parts, w.HelmetType)
	}
	return strings.Join(parts, " / ")
}

// Subscriber is one line of the subscribers file.
type Subscriber struct {
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Watchlist []WatchItem `json:"watchlist"`
}

// LoadSubscribers reads the newline-delimited JSON subscribers file.
func LoadSubscribers(path string, logger *slog.Logger) ([]Subscriber, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open subscribers: %w", err)
	}
	defer f.Close()
	return ReadSubscribers(f, logger)
}

// ReadSubscribers decodes one subscriber per line. Blank lines are ignored;
// malformed lines and entries without an email or watchlist are logged and skipped.
func ReadSubscribers(r io.Reader, logger *slog.Logger) ([]Subscriber, error) {
	var subs []Subscriber
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for sc.Scan() {
		line++
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var s Subscriber
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			logger.Warn("skipping malformed subscriber line", "line", line, "error", err)
			continue
		}
		s.Email = strings.TrimSpace(s.Email)
		if !strings.Contains(s.Email, "@") {
			logger.Warn("skipping subscriber without email", "line", line)
			continue
		}
		if len(s.Watchlist) == 0 {
			logger.Debug("skipping subscriber with empty watchlist", "line", line, "email", s.Email)
			continue
		}
		subs = append(subs, s)
	}
	if err := sc.Err(); err != nil {
		return subs, fmt.Errorf("read subscribers: %w", err)
	}
	return subs, nil
}
