package digest

import "context"

// Repository port for digest preferences. Get returns (nil, nil) when the user has
// never saved preferences.
type Repository interface {
	Get(ctx context.Context, userID string) (*Preferences, error)
	Upsert(ctx context.Context, p *Preferences) error
}
