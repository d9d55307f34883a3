package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// The session guard and request-id middleware populate them, so handlers and services
// never repeat account or request identifiers by hand.
type LogFields struct {
	AccountID *int64  // Authenticated account
	BotID     *int64  // Bot being operated on
	RequestID *string // X-Request-ID of the inbound request
	Component string  // Component name, e.g. "server.service.bot_deletion"
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.AccountID != nil {
		result.AccountID = new.AccountID
	}
	if new.BotID != nil {
		result.BotID = new.BotID
	}
	if new.RequestID != nil {
		result.RequestID = new.RequestID
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{BotID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
