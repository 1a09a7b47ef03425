package services

import "context"

type contextKey string

const (
	listingIDKey contextKey = "listing_id"
	jobIDKey     contextKey = "job_id"
	stageKey     contextKey = "stage"
)

// WithListingID annotates context with the listing identifier.
func WithListingID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, listingIDKey, id)
}

// ListingIDFromContext extracts the listing identifier if present.
func ListingIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(listingIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithJobID annotates context with the job identifier.
func WithJobID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(jobIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
