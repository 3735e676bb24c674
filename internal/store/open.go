package store

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a ConversationStore implementation.
type Options struct {
	Driver     string
	SQLitePath string
	Redis      RedisOptions
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the store named by opts.Driver. The returned closer releases
// the underlying connection.
func Open(ctx context.Context, opts Options, logger zerolog.Logger) (ConversationStore, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case DriverMemory:
		return NewMemoryStore(), nopCloser{}, nil
	case DriverSQLite, "":
		s, err := NewSQLite(opts.SQLitePath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	case DriverRedis:
		s, err := NewRedis(ctx, opts.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	default:
		return nil, nil, errors.Errorf("unknown store driver %q", opts.Driver)
	}
}

// OpenOrUnavailable behaves like Open but degrades to Unavailable when the
// durable store cannot be opened, so widgets still mount without persistence.
func OpenOrUnavailable(ctx context.Context, opts Options, logger zerolog.Logger) (ConversationStore, io.Closer) {
	s, closer, err := Open(ctx, opts, logger)
	if err != nil {
		logger.Warn().Err(err).Str("driver", opts.Driver).Msg("conversation store unavailable, identities will not persist")
		return Unavailable{}, nopCloser{}
	}
	return s, closer
}
