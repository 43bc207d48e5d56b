package api

import "github.com/emberlink/ember/pkg/logger"

// HandlerOption configures the Handler.
type HandlerOption func(*Handler)

// WithMaxLimit caps the leaderboard limit parameter.
func WithMaxLimit(n int) HandlerOption {
	return func(h *Handler) {
		if n > 0 {
			h.maxLimit = n
		}
	}
}

// WithLogger replaces the handler logger.
func WithLogger(l logger.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}
