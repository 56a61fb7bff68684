package wsock

import "github.com/rs/zerolog"

// Every Conn and Listener carries its own zerolog.Logger rather than
// calling a package-level global, defaulting to zerolog.Nop() so the
// library is silent unless a caller opts in with WithLogger.

// Option configures a Listener or Conn at construction time.
type Option func(*options)

type options struct {
	logger         zerolog.Logger
	maxMessageSize int
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger attaches l to the Listener or Conn being constructed. Handshake
// outcomes, protocol errors, and close/ping/pong events are logged at
// Debug/Trace/Error levels.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMaxMessageSize overrides the default cap (64 MiB) on the declared
// payload length of each incoming data frame; a length above it fails Recv
// with KindNoMem instead of being trusted outright. See conn.go's
// defaultMaxMessageSize doc comment for why this exists at all.
func WithMaxMessageSize(n int) Option {
	return func(o *options) { o.maxMessageSize = n }
}
