package delivery

// Option applies a configuration option to the tracker.
type Option func(*inMemoryTracker)

// WithMaxSize bounds the number of tracked keys. Zero or negative means
// unbounded.
func WithMaxSize(size int) Option {
	return func(t *inMemoryTracker) {
		t.maxSize = size
	}
}
