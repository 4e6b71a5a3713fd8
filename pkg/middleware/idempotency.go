package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader carries the client-chosen key for a write
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// ContextKeyIdempotencyKey is the gin context key holding the accepted key
	ContextKeyIdempotencyKey = "idempotency_key"
	// DefaultIdempotencyTTL is how long completed responses are replayed
	DefaultIdempotencyTTL = 5 * time.Minute
	// DefaultProcessingTTL bounds how long an unfinished claim blocks retries
	DefaultProcessingTTL = 60 * time.Second
	// IdempotencyKeyPrefix namespaces records in Redis
	IdempotencyKeyPrefix = "waitlist:idempotency:"
)

type replayState string

const (
	stateProcessing replayState = "processing"
	stateCompleted  replayState = "completed"
)

// replayRecord is what a key maps to in Redis. While the first request is
// running it only holds the fingerprint; afterwards it holds the response.
type replayRecord struct {
	State       replayState `json:"state"`
	Fingerprint string      `json:"fingerprint"`
	Status      int         `json:"status,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Body        []byte      `json:"body,omitempty"`
	StoredAt    time.Time   `json:"stored_at"`
}

// RedisClient is the subset of Redis commands the middleware needs
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL of a completed record
	TTL time.Duration
	// ProcessingTTL of a claim whose request has not finished
	ProcessingTTL time.Duration
	// Methods that are tracked; others pass straight through
	Methods []string
	// SkipPaths are exact paths, or prefixes when ending in "*"
	SkipPaths []string
	// Actor returns the caller identity mixed into the fingerprint, so two
	// staff members cannot replay each other's responses
	Actor func(*gin.Context) string
	// RequireKey rejects tracked requests without a key; when false they
	// run untracked
	RequireKey bool
}

// DefaultIdempotencyConfig returns default configuration
func DefaultIdempotencyConfig(client RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         client,
		TTL:           DefaultIdempotencyTTL,
		ProcessingTTL: DefaultProcessingTTL,
		Methods:       []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		Actor:         func(c *gin.Context) string { return c.GetString("staff_id") },
		RequireKey:    true,
	}
}

// IdempotencyMiddleware replays the stored response for a repeated
// X-Idempotency-Key. Redis failures fail open: the request runs untracked.
func IdempotencyMiddleware(config *IdempotencyConfig) gin.HandlerFunc {
	cfg := *config
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultIdempotencyTTL
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = DefaultProcessingTTL
	}
	store := &replayStore{redis: cfg.Redis}

	return func(c *gin.Context) {
		if !slices.Contains(cfg.Methods, c.Request.Method) || skipped(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			if cfg.RequireKey {
				response.Abort(c, http.StatusBadRequest, "MISSING_IDEMPOTENCY_KEY", IdempotencyKeyHeader+" header is required")
				return
			}
			c.Next()
			return
		}
		c.Set(ContextKeyIdempotencyKey, key)

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		actor := ""
		if cfg.Actor != nil {
			actor = cfg.Actor(c)
		}
		fp := fingerprint(c.Request.Method, c.Request.URL.Path, actor, body)

		ctx := c.Request.Context()
		redisKey := IdempotencyKeyPrefix + key

		existing, err := store.claim(ctx, redisKey, fp, cfg.ProcessingTTL)
		if err != nil {
			c.Next()
			return
		}
		if existing != nil {
			replay(c, existing, fp)
			return
		}

		rec := &recordingWriter{ResponseWriter: c.Writer, status: http.StatusOK}
		c.Writer = rec
		c.Next()

		// Server failures are not replayed; the client may retry with the same key
		if rec.status >= http.StatusInternalServerError {
			store.release(ctx, redisKey)
			return
		}
		store.complete(ctx, redisKey, &replayRecord{
			State:       stateCompleted,
			Fingerprint: fp,
			Status:      rec.status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
			StoredAt:    time.Now(),
		}, cfg.TTL)
	}
}

func replay(c *gin.Context, r *replayRecord, fp string) {
	switch {
	case r.Fingerprint != fp:
		response.Abort(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key already used with a different request")
	case r.State == stateProcessing:
		response.Abort(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "a request with this idempotency key is still running")
	default:
		contentType := r.ContentType
		if contentType == "" {
			contentType = "application/json; charset=utf-8"
		}
		c.Header("Idempotent-Replayed", "true")
		c.Data(r.Status, contentType, r.Body)
		c.Abort()
	}
}

// replayStore keeps replay records in Redis
type replayStore struct {
	redis RedisClient
}

// claim stores a processing record for key. It returns the record already
// there when another request got the key first.
func (s *replayStore) claim(ctx context.Context, key, fp string, ttl time.Duration) (*replayRecord, error) {
	data, err := json.Marshal(&replayRecord{State: stateProcessing, Fingerprint: fp, StoredAt: time.Now()})
	if err != nil {
		return nil, err
	}
	ok, err := s.redis.SetNX(ctx, key, string(data), ttl).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	existing, err := s.load(ctx, key)
	if errors.Is(err, redis.Nil) {
		// expired between SetNX and Get; run untracked
		return nil, err
	}
	return existing, err
}

func (s *replayStore) load(ctx context.Context, key string) (*replayRecord, error) {
	raw, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var r replayRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *replayStore) complete(ctx context.Context, key string, r *replayRecord, ttl time.Duration) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = s.redis.Set(ctx, key, string(data), ttl).Err()
}

func (s *replayStore) release(ctx context.Context, key string) {
	_ = s.redis.Del(ctx, key).Err()
}

// recordingWriter tees the response body so it can be stored
type recordingWriter struct {
	gin.ResponseWriter
	body   bytes.Buffer
	status int
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func skipped(path string, patterns []string) bool {
	for _, p := range patterns {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		} else if path == p {
			return true
		}
	}
	return false
}

func fingerprint(method, path, actor string, body []byte) string {
	h := sha256.New()
	for _, part := range [][]byte{[]byte(method), []byte(path), []byte(actor), body} {
		h.Write(part)
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
