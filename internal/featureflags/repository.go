package featureflags

import "context"

// Repository stores flag overrides. Keys without a stored override read as
// their default.
type Repository interface {
	// GetFlag returns the stored override for key or ErrFlagNotFound.
	GetFlag(ctx context.Context, key string) (*Flag, error)

	// ListFlags returns every stored override ordered by key.
	ListFlags(ctx context.Context) ([]*Flag, error)

	// SaveFlags upserts the given overrides in one transaction.
	SaveFlags(ctx context.Context, flags []*Flag) error
}
