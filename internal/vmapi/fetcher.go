package vmapi

import "context"

// Fetcher lists raw VM records matching a filter. Implementations surface
// transport failures as *TransportError and never retry.
type Fetcher interface {
	ListVMs(ctx context.Context, filter Filter) ([]VM, error)
}
