package telemetry

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/xerrors"
)

// NewLogger builds the process logger. Records are JSON on w with keys renamed
// to the OpenTelemetry log data model, or plain text when debug is set. The
// level comes from GO_LOG and defaults to info.
func NewLogger(w io.Writer, debug bool) (*slog.Logger, error) {
	handler, err := NewHandler(w, debug)
	if err != nil {
		return nil, err
	}
	return slog.New(handler), nil
}

func NewHandler(w io.Writer, debug bool) (slog.Handler, error) {
	logLevel := slog.LevelInfo
	if v, ok := os.LookupEnv("GO_LOG"); ok {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, xerrors.Errorf("failed to parse log level: %w", err)
		}
	}
	handlerOpts := &slog.HandlerOptions{
		Level: logLevel,
		// https://opentelemetry.io/docs/specs/otel/logs/data-model/
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				a.Key = "severitytext"
			case slog.MessageKey:
				a.Key = "body"
			}
			return a
		},
	}

	if debug {
		return slog.NewTextHandler(w, handlerOpts), nil
	}
	return slog.NewJSONHandler(w, handlerOpts), nil
}
