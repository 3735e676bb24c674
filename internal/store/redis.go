package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisStore persists identities as plain Redis string keys without TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

var _ ConversationStore = (*RedisStore)(nil)

// RedisOptions selects the Redis server and key namespace.
type RedisOptions struct {
	Addr   string
	DB     int
	Prefix string
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions, logger zerolog.Logger) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis store: empty address")
	}
	client := redis.NewClient(&redis.Options{Addr: opts.Addr, DB: opts.DB})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "ping redis at %s", opts.Addr)
	}
	return newRedisWithClient(client, opts.Prefix, logger), nil
}

func newRedisWithClient(client *redis.Client, prefix string, logger zerolog.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: logger.With().Str("store", "redis").Logger(),
	}
}

func (s *RedisStore) key(chatbotID string) string {
	return s.prefix + Key(chatbotID)
}

// Load returns the identity stored for chatbotID. Errors other than a
// missing key are logged and reported as absent.
func (s *RedisStore) Load(ctx context.Context, chatbotID string) (string, bool) {
	id, err := s.client.Get(ctx, s.key(chatbotID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("chatbot_id", chatbotID).Msg("load conversation id failed")
		return "", false
	}
	return id, true
}

// Save overwrites the identity stored for chatbotID.
func (s *RedisStore) Save(ctx context.Context, chatbotID, conversationID string) error {
	if err := s.client.Set(ctx, s.key(chatbotID), conversationID, 0).Err(); err != nil {
		return errors.Wrap(err, "save conversation id")
	}
	return nil
}

// Close releases the client connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
