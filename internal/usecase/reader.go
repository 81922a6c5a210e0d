package usecase

import (
	"context"
	"fmt"

	"MentionScanner/internal/domain"
	"MentionScanner/internal/ports"
)

// Reader serves the most recent stored mentions to the front end.
type Reader struct {
	store        ports.MentionStore
	defaultLimit int
}

// NewReader wires the mention store behind the read path.
func NewReader(store ports.MentionStore, defaultLimit int) *Reader {
	if defaultLimit <= 0 {
		defaultLimit = 200
	}
	return &Reader{store: store, defaultLimit: defaultLimit}
}

// Latest returns up to limit mentions, most recent first. A non-positive
// limit selects the configured default; out-of-band values are clamped.
// An empty index yields an empty slice, never nil and never an error.
func (r *Reader) Latest(ctx context.Context, limit int) ([]domain.Mention, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	limit = domain.ClampLatestLimit(limit)

	mentions, err := r.store.Latest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read latest: %w", err)
	}
	if mentions == nil {
		mentions = []domain.Mention{}
	}

	return mentions, nil
}
