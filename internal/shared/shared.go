// package shared defines shared helpers
package shared

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger creates a [log.Logger] that appends to the file at path, creating parent directories as needed.
//
// Used by the TUI so log output does not corrupt the terminal.
func NewFileLogger(path string) (*log.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewLogger(f), nil
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// ParseLogLevel converts a config level name into a [log.Level], defaulting to info.
func ParseLogLevel(level string) log.Level {
	ll, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return ll
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewCommentID returns a comment identifier of the form comment_<unix millis>_<9 base36 chars>.
//
// Uniqueness is probabilistic: the millisecond timestamp plus 36^9 random suffixes.
func NewCommentID() string {
	return NewCommentIDAt(time.Now())
}

// NewCommentIDAt is [NewCommentID] with an explicit clock.
func NewCommentIDAt(now time.Time) string {
	var b strings.Builder
	radix := big.NewInt(int64(len(base36)))
	for range 9 {
		n, err := rand.Int(rand.Reader, radix)
		if err != nil {
			b.WriteByte(base36[now.UnixNano()%int64(len(base36))])
			continue
		}
		b.WriteByte(base36[n.Int64()])
	}
	return fmt.Sprintf("comment_%d_%s", now.UnixMilli(), b.String())
}

// Timestamp formats t as the portable ISO-8601 string used on every model read.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// FormatDuration renders seconds as M:SS (e.g. 217 -> "3:37").
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// FormatTime renders fractional seconds as M:SS, truncating the fraction.
func FormatTime(seconds float64) string {
	return FormatDuration(int(seconds))
}
