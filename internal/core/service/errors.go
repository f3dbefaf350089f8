package service

import (
	"fmt"

	"github.com/safedev/accessgate/internal/core/domain"
)

// storeErr tags a persistence error so callers can match domain.ErrStoreFailure
// while keeping the backend cause in the chain.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreFailure, err)
}
