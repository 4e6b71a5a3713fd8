package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	pkgredis "github.com/NathanDrake2406/QueueDrop-sub002/pkg/redis"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:embed scripts/create_queue.lua
var createQueueScript string

//go:embed scripts/save_queue.lua
var saveQueueScript string

// Script names for caching
const (
	scriptCreateQueue = "create_queue"
	scriptSaveQueue   = "save_queue"
)

// Redis keys
const (
	keyTokens       = "waitlist:tokens"
	keySlugs        = "waitlist:slugs"
	keyActiveQueues = "waitlist:queues:active"
)

func queueKey(id string) string {
	return fmt.Sprintf("waitlist:queue:%s", id)
}

func businessQueuesKey(businessID string) string {
	return fmt.Sprintf("waitlist:business:%s:queues", businessID)
}

// RedisQueueRepository stores each queue as a JSON snapshot next to its
// version in one hash; Lua scripts make the version check and write atomic.
type RedisQueueRepository struct {
	client *pkgredis.Client
}

// NewRedisQueueRepository creates a new RedisQueueRepository
func NewRedisQueueRepository(client *pkgredis.Client) *RedisQueueRepository {
	return &RedisQueueRepository{client: client}
}

// LoadScripts loads all queue Lua scripts into Redis
func (r *RedisQueueRepository) LoadScripts(ctx context.Context) error {
	scripts := map[string]string{
		scriptCreateQueue: createQueueScript,
		scriptSaveQueue:   saveQueueScript,
	}

	for name, script := range scripts {
		if _, err := r.client.LoadScript(ctx, name, script); err != nil {
			return fmt.Errorf("failed to load script %s: %w", name, err)
		}
	}
	return nil
}

// Create stores the snapshot at version 1 and claims the business slug
func (r *RedisQueueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.queue.create")
	defer span.End()
	span.SetAttributes(attribute.String("queue_id", queue.ID))

	snap := queue.Snapshot()
	snap.Version = 1
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}

	result, err := r.client.EvalWithFallback(ctx, scriptCreateQueue, createQueueScript,
		[]string{queueKey(snap.ID), keySlugs, keyActiveQueues, businessQueuesKey(snap.BusinessID)},
		snap.ID, slugKey(snap.BusinessID, snap.Slug), string(data), boolArg(snap.IsActive),
	).Slice()
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to create queue: %w", err)
	}

	ok, code, _, err := parseScriptResult(result)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrQueueAlreadyExists, code)
		telemetry.RecordError(span, err)
		return err
	}

	queue.Version = 1
	span.SetStatus(codes.Ok, "")
	return nil
}

// Load reads the snapshot; the hash's version field is authoritative
func (r *RedisQueueRepository) Load(ctx context.Context, queueID string) (*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.queue.load")
	defer span.End()
	span.SetAttributes(attribute.String("queue_id", queueID))

	vals, err := r.client.HMGet(ctx, queueKey(queueID), "data", "version").Result()
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}

	data, _ := vals[0].(string)
	version, _ := vals[1].(string)
	if data == "" || version == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrQueueNotFound, queueID)
	}

	var snap domain.QueueSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		err = fmt.Errorf("%w: queue %s: %v", domain.ErrCorruptQueue, queueID, err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if _, err := fmt.Sscan(version, &snap.Version); err != nil {
		err = fmt.Errorf("%w: queue %s version %q", domain.ErrCorruptQueue, queueID, version)
		telemetry.RecordError(span, err)
		return nil, err
	}

	q, err := domain.RestoreQueue(snap)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return q, nil
}

// Save runs the compare-and-set script
func (r *RedisQueueRepository) Save(ctx context.Context, queue *domain.Queue, expectedVersion int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.queue.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("queue_id", queue.ID),
		attribute.Int64("expected_version", expectedVersion),
	)

	snap := queue.Snapshot()
	snap.Version = expectedVersion + 1
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}

	args := make([]interface{}, 0, 4+len(snap.Customers))
	args = append(args, snap.ID, expectedVersion, string(data), boolArg(snap.IsActive))
	for _, c := range snap.Customers {
		args = append(args, c.Token)
	}

	result, err := r.client.EvalWithFallback(ctx, scriptSaveQueue, saveQueueScript,
		[]string{queueKey(snap.ID), keyTokens, keyActiveQueues},
		args...,
	).Slice()
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to save queue: %w", err)
	}

	ok, code, version, err := parseScriptResult(result)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !ok {
		switch code {
		case "NOT_FOUND":
			err = fmt.Errorf("%w: %s", domain.ErrQueueNotFound, snap.ID)
		case "VERSION_CONFLICT":
			span.SetAttributes(attribute.Bool("conflict", true))
			err = fmt.Errorf("%w: queue %s expected version %d, found %d",
				domain.ErrVersionConflict, snap.ID, expectedVersion, version)
		case "DUPLICATE_TOKEN":
			err = domain.ErrDuplicateToken
		default:
			err = fmt.Errorf("unexpected save result: %s", code)
		}
		span.SetStatus(codes.Error, code)
		return err
	}

	queue.Version = version
	span.SetStatus(codes.Ok, "")
	return nil
}

// FindQueueIDByToken reads the global token index
func (r *RedisQueueRepository) FindQueueIDByToken(ctx context.Context, token string) (string, error) {
	id, err := r.client.HGet(ctx, keyTokens, token).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrCustomerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to find customer token: %w", err)
	}
	return id, nil
}

// ListActiveQueueIDs returns members of the active set, sorted
func (r *RedisQueueRepository) ListActiveQueueIDs(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, keyActiveQueues).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active queues: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListByBusiness loads every queue of a business ordered by name
func (r *RedisQueueRepository) ListByBusiness(ctx context.Context, businessID string) ([]*domain.Queue, error) {
	ids, err := r.client.SMembers(ctx, businessQueuesKey(businessID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list business queues: %w", err)
	}

	queues := make([]*domain.Queue, 0, len(ids))
	for _, id := range ids {
		q, err := r.Load(ctx, id)
		if errors.Is(err, domain.ErrQueueNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		queues = append(queues, q)
	}

	sort.Slice(queues, func(i, j int) bool { return queues[i].Name < queues[j].Name })
	return queues, nil
}

// Ping checks Redis connectivity
func (r *RedisQueueRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}

// parseScriptResult decodes {ok, code, version?}
func parseScriptResult(result []interface{}) (ok bool, code string, version int64, err error) {
	if len(result) < 2 {
		return false, "", 0, fmt.Errorf("unexpected script result: %v", result)
	}
	flag, _ := result[0].(int64)
	code, _ = result[1].(string)
	if len(result) > 2 {
		version, _ = result[2].(int64)
	}
	return flag == 1, code, version, nil
}

func boolArg(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
