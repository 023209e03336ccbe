package health

import "context"

// DBPinger checks backing store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}
