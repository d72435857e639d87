// Package storage provides object-store enumeration for discovering the
// clips a compute run produced. It defines the Lister port and S3 and
// in-memory implementations.
package storage

import "context"

// Lister defines the interface for enumerating objects under a namespace
// prefix. The workflow uses it as the source of truth for what the compute
// endpoint actually produced.
type Lister interface {
	// ListByPrefix returns all object keys under the given prefix.
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)
}
