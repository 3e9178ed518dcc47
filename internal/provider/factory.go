package provider

import (
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/qoracle/internal/querysql"
	"github.com/roach88/qoracle/internal/store"
)

// Factory creates contexts over one store.
type Factory struct {
	store    *store.Store
	compiler *querysql.SQLCompiler
	logger   *slog.Logger
	newID    func() string
}

// Option configures a Factory.
type Option func(*Factory)

// WithLogger sets the logger contexts report operations to.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithIDGenerator replaces the random context ids, typically with
// testutil.SequentialIDs for reproducible logs.
func WithIDGenerator(next func() string) Option {
	return func(f *Factory) {
		f.newID = next
	}
}

// NewFactory creates a factory. Logging is discarded unless WithLogger is given.
func NewFactory(s *store.Store, opts ...Option) *Factory {
	f := &Factory{
		store:    s,
		compiler: querysql.NewSQLCompiler(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateContext returns a new context with an empty change tracker.
func (f *Factory) CreateContext() *Context {
	id := f.newID()
	return &Context{
		id:       id,
		store:    f.store,
		compiler: f.compiler,
		logger:   f.logger.With("context", id),
		tracker:  newTracker(),
	}
}
