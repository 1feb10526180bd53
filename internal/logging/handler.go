// Package logging provides a custom slog handler that mirrors WARN and
// ERROR level records into the security log, so operational failures show
// up in the same audit trail the admin dashboard reads.
package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/ieeeucsc/codequest/internal/model"
	"github.com/ieeeucsc/codequest/internal/store"
)

// SecurityLogHandler is a slog.Handler that wraps another handler and also
// writes WARN and ERROR level logs to the security_logs table.
type SecurityLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level // Minimum level to mirror (default: WARN)
}

// NewSecurityLogHandler creates a handler that wraps inner. Records at WARN
// level and above are written to both the wrapped handler and the database.
func NewSecurityLogHandler(inner slog.Handler, db *sql.DB) *SecurityLogHandler {
	return &SecurityLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   slog.LevelWarn,
	}
}

// Enabled implements slog.Handler.
func (h *SecurityLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecurityLogHandler) Handle(ctx context.Context, r slog.Record) error {
	// Always forward to the inner handler first
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToSecurityLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *SecurityLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SecurityLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
	}
}

// WithGroup implements slog.Handler.
func (h *SecurityLogHandler) WithGroup(name string) slog.Handler {
	return &SecurityLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
	}
}

// writeToSecurityLog mirrors one log record into the security_logs table.
// Failures are dropped silently: logging about a failed log write from
// inside the handler would loop.
func (h *SecurityLogHandler) writeToSecurityLog(r slog.Record) {
	risk := model.RiskMedium
	if r.Level >= slog.LevelError {
		risk = model.RiskHigh
	}

	// Background context so the row lands even if the request context is cancelled
	_, _ = h.queries.CreateSecurityLog(context.Background(), store.CreateSecurityLogParams{
		EventType:      model.EventSystemAlert,
		UserIdentifier: "system",
		EventDetails:   recordDetails(r),
		Success:        false,
		RiskLevel:      risk,
		CreatedAt:      r.Time,
	})
}

// recordDetails collects the message and all attributes into a JSON string.
func recordDetails(r slog.Record) string {
	var sb strings.Builder
	sb.WriteString(`{"message":"`)
	sb.WriteString(escapeJSON(r.Message))
	sb.WriteString(`"`)

	r.Attrs(func(a slog.Attr) bool {
		sb.WriteString(`,"`)
		sb.WriteString(escapeJSON(a.Key))
		sb.WriteString(`":"`)
		sb.WriteString(escapeJSON(a.Value.String()))
		sb.WriteString(`"`)
		return true
	})

	sb.WriteString("}")
	return sb.String()
}

// escapeJSON escapes special characters in a string for JSON.
func escapeJSON(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
