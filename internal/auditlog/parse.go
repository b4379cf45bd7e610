package auditlog

import (
	"bufio"
	"os"
	"strings"
	"time"
)

// Entry is one parsed audit line. Lines that cannot be parsed are kept with
// EventType PARSE_ERROR so the admin view never silently drops history.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	UserEmail string    `json:"user_email,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Raw       string    `json:"-"`
}

// ParseLine decodes a single audit line.
func ParseLine(line string) Entry {
	raw := strings.TrimRight(line, "\n")
	fallback := Entry{EventType: "PARSE_ERROR", Message: strings.TrimSpace(raw), Raw: raw}

	if !strings.HasPrefix(raw, "[") {
		return fallback
	}
	closing := strings.Index(raw, "]")
	if closing < 0 {
		return fallback
	}
	ts, err := time.ParseInLocation(timeLayout, raw[1:closing], time.Local)
	if err != nil {
		return fallback
	}

	rest := strings.TrimSpace(raw[closing+1:])
	colon := strings.Index(rest, ":")
	if colon < 0 {
		return fallback
	}
	entry := Entry{
		Timestamp: ts,
		EventType: strings.TrimSpace(rest[:colon]),
		Raw:       raw,
	}

	segments := strings.Split(rest[colon+1:], "|")
	entry.Message = strings.TrimSpace(segments[0])
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		switch {
		case strings.HasPrefix(seg, "User:"):
			entry.UserEmail = strings.TrimSpace(strings.TrimPrefix(seg, "User:"))
		case strings.HasPrefix(seg, "IP:"):
			entry.IP = strings.TrimSpace(strings.TrimPrefix(seg, "IP:"))
		}
	}
	return entry
}

// ReadEntries loads and parses the whole trail, oldest first. A missing file
// yields an empty slice: a fresh deployment simply has no history yet.
func (t *Trail) ReadEntries() ([]Entry, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, ParseLine(line))
	}
	return entries, scanner.Err()
}
