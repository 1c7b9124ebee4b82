package sheets

import (
	"context"

	"monetra/internal/core"
)

// Ports for outbound mirror adapters.
type (
	// TransactionWriter mirrors a transaction row, keyed by its id. An
	// existing row with the same id is overwritten in place.
	TransactionWriter interface {
		Upsert(ctx context.Context, tx core.Transaction) (rowRef string, err error)
	}

	// TransactionDeleter removes a mirrored row by id. Deleting an id that
	// was never mirrored is not an error.
	TransactionDeleter interface {
		Delete(ctx context.Context, id string) error
	}
)
