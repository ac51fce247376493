package deadletter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"avatar-bridge/internal/domain/webhook"
)

const defaultKeyPrefix = "avatar-bridge:deadletters"

// RedisStore keeps dead letters in a hash with a sorted-set index scored by
// failure time.
type RedisStore struct {
	client   redis.UniversalClient
	hashKey  string
	indexKey string
	limit    int
	log      zerolog.Logger
}

var _ webhook.DeadLetterStore = (*RedisStore)(nil)

// NewRedisStore connects to redisURL (one URL or a comma separated list of
// cluster addresses) and verifies the connection.
func NewRedisStore(ctx context.Context, redisURL string, limit int, log zerolog.Logger) (*RedisStore, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis URL must be provided")
	}
	opts, err := BuildUniversalOptions(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewUniversalClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	store := NewRedisStoreWithClient(client, defaultKeyPrefix, limit, log)
	store.log.Info().Int("limit", store.limit).Msg("connected to Redis dead-letter store")
	return store, nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client redis.UniversalClient, prefix string, limit int, log zerolog.Logger) *RedisStore {
	if limit <= 0 {
		limit = 1000
	}
	hashKey, indexKey := storeKeys(prefix)
	return &RedisStore{
		client:   client,
		hashKey:  hashKey,
		indexKey: indexKey,
		limit:    limit,
		log:      log.With().Str("component", "deadletter-redis").Logger(),
	}
}

// storeKeys wraps prefix in a hash tag so the hash and its index land in the
// same cluster slot, which the transactional pipelines require.
func storeKeys(prefix string) (hashKey, indexKey string) {
	prefix = strings.Trim(strings.TrimSpace(prefix), "{}")
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	hashKey = "{" + prefix + "}"
	return hashKey, hashKey + ":index"
}

// BuildUniversalOptions parses a Redis URL or comma separated address list.
func BuildUniversalOptions(raw string) (*redis.UniversalOptions, error) {
	opts := &redis.UniversalOptions{}
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !strings.Contains(part, "://") {
			opts.Addrs = append(opts.Addrs, part)
			continue
		}

		parsed, err := redis.ParseURL(part)
		if err != nil {
			return nil, err
		}
		opts.Addrs = append(opts.Addrs, parsed.Addr)
		if opts.Username == "" {
			opts.Username = parsed.Username
		}
		if opts.Password == "" {
			opts.Password = parsed.Password
		}
		if opts.DB == 0 {
			opts.DB = parsed.DB
		}
		if opts.TLSConfig == nil {
			opts.TLSConfig = parsed.TLSConfig
		}
	}
	if len(opts.Addrs) == 0 {
		return nil, fmt.Errorf("no Redis addresses provided")
	}
	if len(opts.Addrs) > 1 {
		// cluster mode has no databases
		opts.DB = 0
	}
	return opts, nil
}

// Put stores dl and trims the oldest entries beyond the limit.
func (s *RedisStore) Put(ctx context.Context, dl *webhook.DeadLetter) error {
	data, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.hashKey, dl.ID, data)
	pipe.ZAdd(ctx, s.indexKey, redis.Z{Score: float64(dl.FailedAt.UnixNano()), Member: dl.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store dead letter: %w", err)
	}
	return s.trim(ctx)
}

func (s *RedisStore) trim(ctx context.Context) error {
	count, err := s.client.ZCard(ctx, s.indexKey).Result()
	if err != nil {
		return err
	}
	excess := count - int64(s.limit)
	if excess <= 0 {
		return nil
	}
	ids, err := s.client.ZRange(ctx, s.indexKey, 0, excess-1).Result()
	if err != nil || len(ids) == 0 {
		return err
	}

	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, s.hashKey, ids...)
	pipe.ZRem(ctx, s.indexKey, members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	s.log.Debug().Int("evicted", len(ids)).Msg("trimmed dead letters")
	return nil
}

// Get returns the dead letter with id.
func (s *RedisStore) Get(ctx context.Context, id string) (*webhook.DeadLetter, error) {
	data, err := s.client.HGet(ctx, s.hashKey, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, webhook.ErrDeadLetterNotFound
	}
	if err != nil {
		return nil, err
	}
	var dl webhook.DeadLetter
	if err := json.Unmarshal(data, &dl); err != nil {
		return nil, fmt.Errorf("decode dead letter %s: %w", id, err)
	}
	return &dl, nil
}

// List returns up to limit dead letters, newest first.
func (s *RedisStore) List(ctx context.Context, limit int) ([]*webhook.DeadLetter, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRevRange(ctx, s.indexKey, 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*webhook.DeadLetter{}, nil
	}

	values, err := s.client.HMGet(ctx, s.hashKey, ids...).Result()
	if err != nil {
		return nil, err
	}
	out := make([]*webhook.DeadLetter, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			// index entry without a body; removed concurrently
			continue
		}
		var dl webhook.DeadLetter
		if err := json.Unmarshal([]byte(str), &dl); err != nil {
			s.log.Warn().Err(err).Str("id", ids[i]).Msg("skipping undecodable dead letter")
			continue
		}
		out = append(out, &dl)
	}
	return out, nil
}

// Delete removes the dead letter with id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	del := pipe.HDel(ctx, s.hashKey, id)
	pipe.ZRem(ctx, s.indexKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if del.Val() == 0 {
		return webhook.ErrDeadLetterNotFound
	}
	return nil
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
