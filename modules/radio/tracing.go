package radio

import (
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// errHandler ends span, recording err on it and in the log when non-nil.
func errHandler(span trace.Span, err error, msg string, l *slog.Logger) error {
	defer span.End()

	if err != nil {
		if l != nil {
			l.Error(msg, "err", err)
		}
		span.SetStatus(codes.Error, fmt.Errorf("%s: %w", msg, err).Error())
	} else {
		span.SetStatus(codes.Ok, "ok")
	}
	return err
}
