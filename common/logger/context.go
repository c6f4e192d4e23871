package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, so business context (item_id, party_id, etc.)
// is included in every log statement without passing it around.
type LogFields struct {
	ItemKind  *string // offer, co_investment_opportunity, co_investment_offer
	ItemID    *int64  // Workflow item ID
	PartyID   *int64  // Acting party from the bearer token
	Gate      *string // Gate being decided
	MessageID *string // Redis stream message ID
	RequestID *string // HTTP request ID
	EventType *string // Lifecycle event type (e.g., "submitted", "decided")
	Component string  // Component name (OTel semantic convention style, e.g., "broker.worker.reclaimer")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
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

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.ItemKind != nil {
		result.ItemKind = new.ItemKind
	}
	if new.ItemID != nil {
		result.ItemID = new.ItemID
	}
	if new.PartyID != nil {
		result.PartyID = new.PartyID
	}
	if new.Gate != nil {
		result.Gate = new.Gate
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.RequestID != nil {
		result.RequestID = new.RequestID
	}
	if new.EventType != nil {
		result.EventType = new.EventType
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{ItemID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like queries or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
