package interpreter

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rhino1998/minipy/pkg/memory"
)

// Session owns the pool, the reference table and the global scope. Values and
// bindings persist across statements until Close.
type Session struct {
	ID uuid.UUID

	logger *slog.Logger
	config Config

	pool  *memory.Pool
	table *memory.Table
	scope *Scope

	// Sweeper, when set, runs after every mark phase started by Collect.
	Sweeper Sweeper
}

func New(logger *slog.Logger, config Config) (*Session, error) {
	return newSession(logger, config, uuid.New())
}

func newSession(logger *slog.Logger, config Config, id uuid.UUID) (*Session, error) {
	err := config.Validate(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to validate interpreter config: %w", err)
	}

	pool, err := memory.NewPool(config.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	logger = logger.With("session", id.String())

	logger.Debug("session started", "pool_size", config.PoolSize, "max_references", config.MaxReferences)

	return &Session{
		ID:     id,
		logger: logger,
		config: config,
		pool:   pool,
		table:  memory.NewTable(logger, pool, config.InitialTableSize, config.MaxReferences),
		scope:  newScope(logger),
	}, nil
}

func (s *Session) Config() Config {
	return s.config
}

func (s *Session) Table() *memory.Table {
	return s.table
}

func (s *Session) Pool() *memory.Pool {
	return s.pool
}

// Globals returns the global bindings in table order.
func (s *Session) Globals() []Variable {
	return s.scope.Variables()
}

// Lookup returns the reference bound to a global.
func (s *Session) Lookup(name string) (memory.RefID, error) {
	return s.scope.Get(name)
}

func (s *Session) Dump(w io.Writer) error {
	return s.pool.Dump(w)
}

// Close tears down the arena. The session must not be used afterwards.
func (s *Session) Close() error {
	s.pool.Close()
	s.scope = newScope(s.logger)

	s.logger.Debug("session closed")

	return nil
}
