package repository

// options collects construction settings shared by the in-memory stores.
type options struct {
	shardCount int
}

// Option applies a configuration option to a store constructor.
type Option func(*options)

// WithShardCount sets the number of directory shards.
func WithShardCount(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.shardCount = n
		}
	}
}
