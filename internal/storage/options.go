package storage

import (
	"github.com/KilimcininKorOglu/cloudkv/internal/logging"
)

// DefaultPartitions is the partition count used when none is configured.
// Real deployments can raise it considerably (840 divides evenly across
// most small cluster sizes).
const DefaultPartitions = 4

// Options configures a Store.
type Options struct {
	// Partitions is the number of partitions N. Keys map to hash(key) mod N,
	// so N must stay fixed for the lifetime of the data.
	// Default: DefaultPartitions.
	Partitions int

	// Logger receives partition lifecycle events.
	// Default: no-op logger.
	Logger logging.Logger
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		Partitions: DefaultPartitions,
		Logger:     logging.NewNop(),
	}
}

// Validate fills in defaults for unset fields.
func (o *Options) Validate() error {
	if o.Partitions < 0 {
		return ErrInvalidPartition
	}
	if o.Partitions == 0 {
		o.Partitions = DefaultPartitions
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return nil
}

// WithPartitions sets the partition count.
func (o Options) WithPartitions(n int) Options {
	o.Partitions = n
	return o
}

// WithLogger sets the logger.
func (o Options) WithLogger(logger logging.Logger) Options {
	o.Logger = logger
	return o
}
