package log

import (
	"context"
	"log/slog"
	"strings"

	"github.com/evse-go/iso15118/pkg/v2gtp"
)

// SlogAdapter mirrors protocol events into an operational slog.Logger.
// Frames, messages and state changes are logged at Debug. Failure responses
// and error events are raised to Warn.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes event as one record.
func (a *SlogAdapter) Log(event Event) {
	level := slog.LevelDebug
	msg := "v2g event"
	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.String("conn_id", event.ConnectionID),
		slog.String("layer", event.Layer.String()),
	)
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}

	switch {
	case event.Frame != nil:
		f := event.Frame
		msg = "v2gtp frame"
		attrs = append(attrs,
			slog.String("direction", event.Direction.String()),
			slog.String("payload_type", v2gtp.PayloadType(f.PayloadType).String()),
			slog.Int("size", f.Size),
		)
		if f.Truncated {
			attrs = append(attrs, slog.Bool("truncated", true))
		}

	case event.Message != nil:
		m := event.Message
		msg = m.Type.String()
		attrs = append(attrs, slog.String("direction", event.Direction.String()))
		if m.ResponseCode != nil {
			attrs = append(attrs, slog.String("response_code", m.ResponseCode.String()))
			if m.ResponseCode.IsFailure() {
				level = slog.LevelWarn
			}
		}
		if m.ProcessingTime != nil {
			attrs = append(attrs, slog.Duration("processing_time", *m.ProcessingTime))
		}

	case event.StateChange != nil:
		sc := event.StateChange
		msg = strings.ToLower(sc.Entity.String()) + " state"
		attrs = append(attrs,
			slog.String("from", sc.OldState),
			slog.String("to", sc.NewState),
		)
		if sc.Reason != "" {
			attrs = append(attrs, slog.String("reason", sc.Reason))
		}

	case event.Error != nil:
		level = slog.LevelWarn
		msg = event.Error.Message
		attrs = append(attrs, slog.String("error_layer", event.Error.Layer.String()))
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
