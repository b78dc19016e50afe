package embed

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	tserrors "github.com/Aman-CERP/titlesearch/internal/errors"
)

// DefaultRedisTTL is how long shared vectors live in Redis.
const DefaultRedisTTL = 24 * time.Hour

// RedisStore is a VectorStore backed by Redis. Failures are logged and
// treated as cache misses.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

var _ VectorStore = (*RedisStore)(nil)

// ConnectRedis opens a client and pings it with retries.
func ConnectRedis(ctx context.Context, addr, password string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:            addr,
		Password:        password,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     time.Second,
		WriteTimeout:    time.Second,
	})

	err := tserrors.Retry(ctx, tserrors.DefaultRetryConfig(), func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}

	logger.Info("redis embedding cache connected", slog.String("addr", addr), slog.Duration("ttl", ttl))
	return &RedisStore{client: client, prefix: "titlesearch:emb:", ttl: ttl, logger: logger}, nil
}

// Get implements VectorStore.
func (s *RedisStore) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug("redis get failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	vec, ok := decodeVector(data)
	return vec, ok
}

// Set implements VectorStore.
func (s *RedisStore) Set(ctx context.Context, key string, vec []float32) {
	if err := s.client.Set(ctx, s.prefix+key, encodeVector(vec), s.ttl).Err(); err != nil {
		s.logger.Debug("redis set failed", slog.String("error", err.Error()))
	}
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, bool) {
	if len(b)%4 != 0 {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}
