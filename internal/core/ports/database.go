// internal/core/ports/database.go
package ports

import (
	"context"
)

// Database abstracts the storage backend for health reporting, so handlers do
// not depend on a concrete driver.
type Database interface {
	Ping(ctx context.Context) error
	Health(ctx context.Context) map[string]interface{}
}
