// Package auditlog keeps the append-only administrative audit trail. Each
// event is one human-readable line:
//
//	[2006-01-02 15:04:05] EVENT_TYPE: message | User: email | IP: addr
//
// The trailing User/IP segments are optional. Entries are mirrored to slog so
// they also appear in the structured application log.
package auditlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// Trail appends audit events to a single log file.
type Trail struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewTrail creates the trail, ensuring the parent directory exists.
func NewTrail(path string, logger *slog.Logger) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}
	return &Trail{path: path, logger: logger}, nil
}

// Path returns the audit log file location.
func (t *Trail) Path() string { return t.path }

// Event appends an event without actor context.
func (t *Trail) Event(eventType, message string) {
	t.EventFor(eventType, message, "", "")
}

// EventFor appends an event, optionally tagged with the acting user's email
// and client IP. Write failures are logged and swallowed: the audit trail is
// never allowed to fail the operation it describes.
func (t *Trail) EventFor(eventType, message, userEmail, ip string) {
	line := formatLine(time.Now(), eventType, message, userEmail, ip)

	t.mu.Lock()
	err := t.appendLine(line)
	t.mu.Unlock()

	if err != nil {
		t.logger.Error("audit log write failed", slog.Any("error", err))
	}
	t.logger.Info("audit event",
		slog.String("event_type", strings.ToUpper(eventType)),
		slog.String("message", message),
	)
}

func (t *Trail) appendLine(line string) error {
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

func formatLine(ts time.Time, eventType, message, userEmail, ip string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", ts.Format(timeLayout), strings.ToUpper(eventType), message)
	if userEmail != "" {
		fmt.Fprintf(&b, " | User: %s", userEmail)
	}
	if ip != "" {
		fmt.Fprintf(&b, " | IP: %s", ip)
	}
	return b.String()
}
