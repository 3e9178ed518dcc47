package oracle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/qoracle/internal/config"
	"github.com/roach88/qoracle/internal/fixture"
	"github.com/roach88/qoracle/internal/provider"
	"github.com/roach88/qoracle/internal/query"
	"github.com/roach88/qoracle/internal/snapshot"
	"github.com/roach88/qoracle/internal/store"
)

// Context is the live side of a check. *provider.Context implements it.
type Context interface {
	query.Source
	query.Streamer
	ID() string
	Entries() []query.Entry
	Close() error
}

var _ Context = (*provider.Context)(nil)

// ContextFactory returns a fresh context with an empty change tracker.
type ContextFactory func() (Context, error)

// Fixture pairs a context factory with the baseline snapshot. One fixture
// serves many checks; every check gets its own context.
type Fixture struct {
	newContext ContextFactory
	snapshot   *snapshot.Snapshot
	cfg        config.Config
	logger     *slog.Logger
	newID      func() string
	closers    []func() error
}

// Option configures a Fixture.
type Option func(*Fixture)

// WithConfig sets attempts and timeouts. Open also takes the store
// settings from it.
func WithConfig(cfg config.Config) Option {
	return func(f *Fixture) {
		f.cfg = cfg
	}
}

// WithLogger sets the logger for the fixture and, under Open, the provider.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fixture) {
		f.logger = logger
	}
}

// WithContextIDs replaces the random context ids under Open.
func WithContextIDs(next func() string) Option {
	return func(f *Fixture) {
		f.newID = next
	}
}

// NewFixture creates a fixture over an existing factory and snapshot.
func NewFixture(factory ContextFactory, snap *snapshot.Snapshot, opts ...Option) *Fixture {
	f := &Fixture{
		newContext: factory,
		snapshot:   snap,
		cfg:        config.Default(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Open creates a fixture backed by a seeded store. The store is opened per
// the configured driver and DSN and seeded with the Northwind data set
// unless it already holds it.
func Open(ctx context.Context, opts ...Option) (*Fixture, error) {
	f := NewFixture(nil, snapshot.Northwind(), opts...)
	if err := f.cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := store.Open(f.cfg.DSN, store.WithDriver(f.cfg.Driver))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	if err := s.Seed(ctx, fixture.Northwind()); err != nil && !errors.Is(err, store.ErrAlreadySeeded) {
		s.Close()
		return nil, fmt.Errorf("seed store: %w", err)
	}

	popts := []provider.Option{provider.WithLogger(f.logger)}
	if f.newID != nil {
		popts = append(popts, provider.WithIDGenerator(f.newID))
	}
	factory := provider.NewFactory(s, popts...)
	f.newContext = func() (Context, error) {
		return factory.CreateContext(), nil
	}
	f.closers = append(f.closers, s.Close)

	f.logger.Info("fixture opened", "driver", s.Driver(), "dsn", f.cfg.DSN)
	return f, nil
}

// Snapshot returns the baseline.
func (f *Fixture) Snapshot() *snapshot.Snapshot {
	return f.snapshot
}

// Config returns the fixture's settings.
func (f *Fixture) Config() config.Config {
	return f.cfg
}

// NewContext returns a fresh live context.
func (f *Fixture) NewContext() (Context, error) {
	if f.newContext == nil {
		return nil, errors.New("fixture has no context factory")
	}
	c, err := f.newContext()
	if err != nil {
		return nil, fmt.Errorf("create context: %w", err)
	}
	return c, nil
}

// Close releases the snapshot and anything Open acquired.
func (f *Fixture) Close() error {
	f.snapshot.Close()
	var errs []error
	for _, c := range f.closers {
		errs = append(errs, c())
	}
	f.closers = nil
	return errors.Join(errs...)
}
