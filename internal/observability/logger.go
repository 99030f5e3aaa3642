package observability

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type trackingIDKey struct{}

// NewLogger builds the shared production logger. Levels follow zap's
// textual names; an empty level means info.
func NewLogger(level string) (*zap.Logger, error) {
	parsedLevel, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsedLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.DisableStacktrace = true

	logger, err := cfg.Build(zap.AddCaller(), zap.Fields(zap.String("service", "sms-dispatch")))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

func parseLevel(level string) (zapcore.Level, error) {
	var parsed zapcore.Level
	normalized := strings.ToLower(strings.TrimSpace(level))
	if normalized == "" {
		normalized = "info"
	}

	if err := parsed.UnmarshalText([]byte(normalized)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	return parsed, nil
}

// WithTrackingID stamps the message tracking id onto the context so every
// log line along the dispatch path can carry it.
func WithTrackingID(ctx context.Context, trackingID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, trackingIDKey{}, trackingID)
}

func TrackingIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}

	trackingID, ok := ctx.Value(trackingIDKey{}).(string)
	if !ok || trackingID == "" {
		return "", false
	}

	return trackingID, true
}

// WithContextLogger returns the logger annotated with the context's tracking
// id, or the logger unchanged when none is set.
func WithContextLogger(logger *zap.Logger, ctx context.Context) *zap.Logger {
	if logger == nil {
		return nil
	}

	trackingID, ok := TrackingIDFromContext(ctx)
	if !ok {
		return logger
	}

	return logger.With(zap.String("trackingId", trackingID))
}
