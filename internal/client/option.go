package client

import (
	"KoordeDHT/internal/logger"

	"google.golang.org/grpc"
	"google.golang.org/grpc/stats"
)

type Option func(pool *Pool)

// WithLogger sets the logger used by the client pool.
func WithLogger(l logger.Logger) Option {
	return func(p *Pool) {
		p.lgr = l
	}
}

// WithDialOptions overrides the default (insecure) gRPC dial options used
// for every connection the pool opens, e.g. to add transport credentials.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(p *Pool) {
		p.dialOpts = opts
	}
}

// WithStatsHandler appends a gRPC stats handler (e.g. otelgrpc's client
// handler) to every connection the pool opens, without disturbing the
// transport credentials set by the default dial options or WithDialOptions.
func WithStatsHandler(h stats.Handler) Option {
	return func(p *Pool) {
		p.dialOpts = append(p.dialOpts, grpc.WithStatsHandler(h))
	}
}
