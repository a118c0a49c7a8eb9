package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ironsheep/gabarito-omr/internal/answerkey"
)

// ErrKeyNotFound is returned when no answer key is registered for an exam
// variation.
var ErrKeyNotFound = errors.New("answer key not found")

// KeyStore remembers decoded answer keys so sheets of the same variation can
// be graded without re-reading the QR code.
type KeyStore interface {
	Save(ctx context.Context, key *answerkey.Payload) error
	Get(ctx context.Context, examID, variationID string) (*answerkey.Payload, error)
}

// MemoryKeyStore is a process-local KeyStore.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*answerkey.Payload
}

func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]*answerkey.Payload)}
}

func (m *MemoryKeyStore) Save(_ context.Context, key *answerkey.Payload) error {
	if key == nil {
		return errors.New("nil answer key")
	}
	cp := *key
	m.mu.Lock()
	m.keys[keyName(key.ExamID, key.VariationID)] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryKeyStore) Get(_ context.Context, examID, variationID string) (*answerkey.Payload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.keys[keyName(examID, variationID)]
	if !ok {
		return nil, fmt.Errorf("%w: exam %s variation %s", ErrKeyNotFound, examID, variationID)
	}
	cp := *k
	return &cp, nil
}

// RedisKeyStore keeps answer keys in Redis as the JSON text of their QR
// payload.
type RedisKeyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisKeyStore wraps an open client. A zero ttl keeps keys forever.
func NewRedisKeyStore(client *redis.Client, ttl time.Duration) *RedisKeyStore {
	return &RedisKeyStore{client: client, ttl: ttl}
}

func (r *RedisKeyStore) Save(ctx context.Context, key *answerkey.Payload) error {
	data, err := answerkey.Encode(key)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, keyName(key.ExamID, key.VariationID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store answer key: %w", err)
	}
	return nil
}

func (r *RedisKeyStore) Get(ctx context.Context, examID, variationID string) (*answerkey.Payload, error) {
	data, err := r.client.Get(ctx, keyName(examID, variationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: exam %s variation %s", ErrKeyNotFound, examID, variationID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load answer key: %w", err)
	}
	return answerkey.ParsePayload(data)
}

// Close releases the Redis connection pool.
func (r *RedisKeyStore) Close() error {
	return r.client.Close()
}

// NewRedisClient connects to url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func keyName(examID, variationID string) string {
	return "gabarito:answer_key:" + examID + ":" + variationID
}

