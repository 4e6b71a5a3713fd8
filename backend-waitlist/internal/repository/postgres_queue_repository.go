package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/database"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	pgUniqueViolation   = "23505"
	tokenUniqueIndex    = "ux_queue_customers_token"
	businessSlugIndex   = "ux_queues_business_slug"
	queuesPrimaryKey    = "queues_pkey"
	customerColumnsList = `id, token, name, status, joined_at, seq, called_at, completed_at,
		phone, party_size, notes, push_subscription`
)

// PostgresQueueRepository implements QueueRepository on PostgreSQL. The
// queue row carries the version; customers live in their own table.
type PostgresQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresQueueRepository creates a new PostgresQueueRepository
func NewPostgresQueueRepository(pool *pgxpool.Pool) *PostgresQueueRepository {
	return &PostgresQueueRepository{pool: pool}
}

// Create inserts the queue row at version 1
func (r *PostgresQueueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("queue_id", queue.ID),
		attribute.String("business_id", queue.BusinessID),
	)

	snap := queue.Snapshot()
	settings, err := json.Marshal(snap.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	err = database.RunInTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO queues (
				id, business_id, name, slug, is_active, is_paused,
				settings, next_seq, version, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $10)
		`,
			snap.ID, snap.BusinessID, snap.Name, snap.Slug, snap.IsActive, snap.IsPaused,
			settings, snap.NextSeq, snap.CreatedAt, snap.UpdatedAt,
		)
		if err != nil {
			return mapPgError(err)
		}
		return upsertCustomers(ctx, tx, snap)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if isDomainError(err) {
			return err
		}
		return fmt.Errorf("failed to create queue: %w", err)
	}

	queue.Version = 1
	span.SetStatus(codes.Ok, "")
	return nil
}

// Load reads the queue and its customers from one consistent snapshot
func (r *PostgresQueueRepository) Load(ctx context.Context, queueID string) (*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.load")
	defer span.End()
	span.SetAttributes(attribute.String("queue_id", queueID))

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	snap, err := loadSnapshot(ctx, tx, queueID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	q, err := domain.RestoreQueue(*snap)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("version", q.Version))
	span.SetStatus(codes.Ok, "")
	return q, nil
}

func loadSnapshot(ctx context.Context, tx pgx.Tx, queueID string) (*domain.QueueSnapshot, error) {
	snap := &domain.QueueSnapshot{}
	var settings []byte

	err := tx.QueryRow(ctx, `
		SELECT id, business_id, name, slug, is_active, is_paused,
		       settings, next_seq, version, created_at, updated_at
		FROM queues
		WHERE id = $1
	`, queueID).Scan(
		&snap.ID, &snap.BusinessID, &snap.Name, &snap.Slug, &snap.IsActive, &snap.IsPaused,
		&settings, &snap.NextSeq, &snap.Version, &snap.CreatedAt, &snap.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrQueueNotFound, queueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load queue: %w", err)
	}
	if err := json.Unmarshal(settings, &snap.Settings); err != nil {
		return nil, fmt.Errorf("%w: queue %s settings: %v", domain.ErrCorruptQueue, queueID, err)
	}

	rows, err := tx.Query(ctx, `
		SELECT `+customerColumnsList+`
		FROM queue_customers
		WHERE queue_id = $1
		ORDER BY joined_at, seq
	`, queueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		snap.Customers = append(snap.Customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	return snap, nil
}

// Save bumps the version with a guarded UPDATE and upserts customers in
// the same transaction
func (r *PostgresQueueRepository) Save(ctx context.Context, queue *domain.Queue, expectedVersion int64) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("queue_id", queue.ID),
		attribute.Int64("expected_version", expectedVersion),
	)

	snap := queue.Snapshot()
	settings, err := json.Marshal(snap.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	err = database.RunInTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE queues
			SET name = $3,
			    is_active = $4,
			    is_paused = $5,
			    settings = $6,
			    next_seq = $7,
			    updated_at = $8,
			    version = version + 1
			WHERE id = $1 AND version = $2
		`,
			snap.ID, expectedVersion, snap.Name, snap.IsActive, snap.IsPaused,
			settings, snap.NextSeq, snap.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update queue: %w", err)
		}

		if tag.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM queues WHERE id = $1)`, snap.ID).Scan(&exists); err != nil {
				return fmt.Errorf("failed to check queue: %w", err)
			}
			if !exists {
				return fmt.Errorf("%w: %s", domain.ErrQueueNotFound, snap.ID)
			}
			return fmt.Errorf("%w: queue %s expected version %d", domain.ErrVersionConflict, snap.ID, expectedVersion)
		}

		return upsertCustomers(ctx, tx, snap)
	})
	if err != nil {
		if domain.IsConflictError(err) {
			span.SetAttributes(attribute.Bool("conflict", true))
			span.SetStatus(codes.Error, "version conflict")
		} else {
			telemetry.RecordError(span, err)
		}
		return err
	}

	queue.Version = expectedVersion + 1
	span.SetStatus(codes.Ok, "")
	return nil
}

func upsertCustomers(ctx context.Context, tx pgx.Tx, snap domain.QueueSnapshot) error {
	if len(snap.Customers) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range snap.Customers {
		var push []byte
		if len(c.PushSubscription) > 0 {
			push = c.PushSubscription
		}
		batch.Queue(`
			INSERT INTO queue_customers (
				queue_id, `+customerColumnsList+`
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				status = EXCLUDED.status,
				called_at = EXCLUDED.called_at,
				completed_at = EXCLUDED.completed_at,
				phone = EXCLUDED.phone,
				party_size = EXCLUDED.party_size,
				notes = EXCLUDED.notes,
				push_subscription = EXCLUDED.push_subscription
			WHERE queue_customers.queue_id = EXCLUDED.queue_id
		`,
			snap.ID, c.ID, c.Token, c.Name, string(c.Status), c.JoinedAt, c.Seq,
			c.CalledAt, c.CompletedAt, nullString(c.Phone), nullInt(c.PartySize),
			nullString(c.Notes), push,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range snap.Customers {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return mapPgError(err)
		}
	}
	if err := br.Close(); err != nil {
		return mapPgError(err)
	}
	return nil
}

// FindQueueIDByToken resolves a token through the unique token index
func (r *PostgresQueueRepository) FindQueueIDByToken(ctx context.Context, token string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.find_by_token")
	defer span.End()

	var queueID string
	err := r.pool.QueryRow(ctx, `SELECT queue_id FROM queue_customers WHERE token = $1`, token).Scan(&queueID)
	if errors.Is(err, pgx.ErrNoRows) {
		span.SetStatus(codes.Ok, "not found")
		return "", domain.ErrCustomerNotFound
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("failed to find customer token: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return queueID, nil
}

// ListActiveQueueIDs returns ids of active queues
func (r *PostgresQueueRepository) ListActiveQueueIDs(ctx context.Context) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.list_active")
	defer span.End()

	ids, err := r.queryIDs(ctx, `SELECT id FROM queues WHERE is_active ORDER BY id`)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(ids)))
	span.SetStatus(codes.Ok, "")
	return ids, nil
}

// ListByBusiness loads every queue of a business ordered by name
func (r *PostgresQueueRepository) ListByBusiness(ctx context.Context, businessID string) ([]*domain.Queue, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.queue.list_by_business")
	defer span.End()
	span.SetAttributes(attribute.String("business_id", businessID))

	ids, err := r.queryIDs(ctx, `SELECT id FROM queues WHERE business_id = $1 ORDER BY name, id`, businessID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	queues := make([]*domain.Queue, 0, len(ids))
	for _, id := range ids {
		q, err := r.Load(ctx, id)
		if errors.Is(err, domain.ErrQueueNotFound) {
			continue
		}
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		queues = append(queues, q)
	}

	span.SetStatus(codes.Ok, "")
	return queues, nil
}

func (r *PostgresQueueRepository) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list queues: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan queue ids: %w", err)
	}
	return ids, nil
}

// Ping checks database connectivity
func (r *PostgresQueueRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// scanCustomer scans a row into a Customer
func scanCustomer(rows pgx.Rows) (domain.Customer, error) {
	var (
		c           domain.Customer
		status      string
		calledAt    *time.Time
		completedAt *time.Time
		phone       *string
		partySize   *int
		notes       *string
		push        []byte
	)

	err := rows.Scan(
		&c.ID, &c.Token, &c.Name, &status, &c.JoinedAt, &c.Seq,
		&calledAt, &completedAt, &phone, &partySize, &notes, &push,
	)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("failed to scan customer: %w", err)
	}

	c.Status = domain.CustomerStatus(status)
	c.CalledAt = calledAt
	c.CompletedAt = completedAt
	if phone != nil {
		c.Phone = *phone
	}
	if partySize != nil {
		c.PartySize = *partySize
	}
	if notes != nil {
		c.Notes = *notes
	}
	if len(push) > 0 {
		c.PushSubscription = json.RawMessage(push)
	}
	return c, nil
}

// mapPgError turns unique violations into domain errors
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case tokenUniqueIndex:
		return domain.ErrDuplicateToken
	case businessSlugIndex, queuesPrimaryKey:
		return fmt.Errorf("%w: %s", domain.ErrQueueAlreadyExists, pgErr.Detail)
	}
	return err
}

func isDomainError(err error) bool {
	return errors.Is(err, domain.ErrQueueAlreadyExists) || errors.Is(err, domain.ErrDuplicateToken)
}

// Helper function to convert empty string to nil pointer
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
