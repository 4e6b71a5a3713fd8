package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/dto"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/metrics"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/notify"
	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/repository"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/logger"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/retry"
	"github.com/NathanDrake2406/QueueDrop-sub002/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultConflictRetries applies when no config is given
	DefaultConflictRetries = 5

	tokenBytes = 16
)

// errNotDue aborts a sweeper expiry whose customer is no longer overdue
var errNotDue = errors.New("customer is not due for no-show")

// NoShowExpirer is the part of the service the sweeper drives
type NoShowExpirer interface {
	// ActiveQueueIDs lists the queues the sweeper should visit
	ActiveQueueIDs(ctx context.Context) ([]string, error)

	// NoShowCandidates returns ids of called customers past the queue's no-show timeout
	NoShowCandidates(ctx context.Context, queueID string) ([]string, error)

	// ExpireCustomer marks one customer as no-show if they are still overdue
	// after a fresh load. It reports whether the customer was expired.
	ExpireCustomer(ctx context.Context, queueID, customerID string) (bool, error)
}

// QueueService defines the interface for waitlist business logic
type QueueService interface {
	NoShowExpirer

	// CreateQueue opens a new queue for a business
	CreateQueue(ctx context.Context, req *dto.CreateQueueRequest) (*dto.QueueResponse, error)

	// GetQueue returns the staff view of a queue
	GetQueue(ctx context.Context, queueID string) (*dto.QueueDetailResponse, error)

	// ListBusinessQueues returns every queue of a business
	ListBusinessQueues(ctx context.Context, businessID string) ([]*dto.QueueResponse, error)

	// JoinQueue adds a walk-in customer and issues their token
	JoinQueue(ctx context.Context, queueID string, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error)

	// GetCustomerStatus returns what the token holder sees
	GetCustomerStatus(ctx context.Context, token string) (*dto.CustomerStatusResponse, error)

	// SavePushSubscription stores the token holder's push descriptor
	SavePushSubscription(ctx context.Context, token string, req *dto.PushSubscriptionRequest) error

	// LeaveQueue removes the token holder from the queue
	LeaveQueue(ctx context.Context, token string) error

	// CallNext calls the customer at the front of the queue
	CallNext(ctx context.Context, queueID string) (*dto.CustomerResponse, error)

	// MarkServed completes a called customer
	MarkServed(ctx context.Context, queueID, customerID string) (*dto.CustomerResponse, error)

	// MarkNoShow expires a called customer
	MarkNoShow(ctx context.Context, queueID, customerID string) (*dto.CustomerResponse, error)

	// RemoveCustomer removes a waiting or called customer
	RemoveCustomer(ctx context.Context, queueID, customerID string) (*dto.CustomerResponse, error)

	// UpdateSettings replaces the queue's settings
	UpdateSettings(ctx context.Context, queueID string, req *dto.QueueSettingsRequest) (*dto.QueueResponse, error)

	// SetQueueStatus pauses/resumes or opens/closes the queue
	SetQueueStatus(ctx context.Context, queueID string, req *dto.UpdateQueueStatusRequest) (*dto.QueueResponse, error)
}

// queueService implements QueueService
type queueService struct {
	repo          repository.QueueRepository
	publisher     notify.Publisher
	deriver       *notify.Deriver
	clock         clockwork.Clock
	retrier       *retry.Retrier
	newToken      func() (string, error)
	newID         func() string
	defaultConfig domain.QueueSettings
}

// QueueServiceConfig contains configuration for queue service
type QueueServiceConfig struct {
	Clock     clockwork.Clock
	Publisher notify.Publisher
	NearFront notify.Options
	// ConflictRetries bounds reload-and-reapply after a version conflict;
	// 0 returns the first conflict to the caller
	ConflictRetries int
	// ConflictBackoff is the first pause between conflicting attempts
	ConflictBackoff time.Duration
	// DefaultSettings apply to queues created without settings
	DefaultSettings *domain.QueueSettings
	TokenSource     func() (string, error)
	IDSource        func() string
}

// NewQueueService creates a new queue service
func NewQueueService(repo repository.QueueRepository, cfg *QueueServiceConfig) QueueService {
	if cfg == nil {
		cfg = &QueueServiceConfig{ConflictRetries: DefaultConflictRetries}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = notify.NewNoOpPublisher()
	}
	retries := cfg.ConflictRetries
	if retries < 0 {
		retries = 0
	}
	backoff := cfg.ConflictBackoff
	if backoff <= 0 {
		backoff = 5 * time.Millisecond
	}
	settings := domain.DefaultQueueSettings()
	if cfg.DefaultSettings != nil {
		settings = *cfg.DefaultSettings
	}
	newToken := cfg.TokenSource
	if newToken == nil {
		newToken = generateToken
	}
	newID := cfg.IDSource
	if newID == nil {
		newID = uuid.NewString
	}

	return &queueService{
		repo:      repo,
		publisher: publisher,
		deriver:   notify.NewDeriver(cfg.NearFront),
		clock:     clock,
		retrier: retry.New(&retry.Config{
			MaxRetries:      retries,
			InitialInterval: backoff,
			MaxInterval:     backoff * 20,
			Multiplier:      2.0,
			JitterFactor:    0.5,
			RetryIf:         domain.IsConflictError,
		}),
		newToken:      newToken,
		newID:         newID,
		defaultConfig: settings,
	}
}

// generateToken returns 128 random bits, hex encoded
func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// mutation applies one change to a freshly loaded queue. A nil change
// means the write produces no notifications.
type mutation func(q *domain.Queue, now time.Time) (*notify.Change, error)

// mutate runs load, apply, save under optimistic concurrency. Only version
// conflicts are retried, each time against a fresh load. Notifications are
// derived from the committed snapshot and published after the save.
func (s *queueService) mutate(ctx context.Context, operation, queueID string, fn mutation) (*domain.Queue, error) {
	var (
		saved         *domain.Queue
		notifications []domain.Notification
	)

	result := s.retrier.Do(ctx, func(ctx context.Context) error {
		q, err := s.repo.Load(ctx, queueID)
		if err != nil {
			return retry.Permanent(err)
		}

		expected := q.Version
		before := q.WaitingPositions()
		now := s.clock.Now()

		change, err := fn(q, now)
		if err != nil {
			return retry.Permanent(err)
		}

		if err := s.repo.Save(ctx, q, expected); err != nil {
			if domain.IsConflictError(err) {
				metrics.VersionConflict(operation)
				return err
			}
			return retry.Permanent(err)
		}

		saved = q
		notifications = nil
		if change != nil {
			notifications = s.deriver.Derive(q, before, *change, now)
		}
		return nil
	})

	if result.Err != nil {
		switch {
		case errors.Is(result.Err, retry.ErrMaxRetriesExceeded):
			return nil, result.LastError
		case errors.Is(result.Err, retry.ErrContextCanceled):
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		return nil, result.Err
	}

	s.publish(ctx, queueID, notifications)
	return saved, nil
}

// publish hands notifications to the delivery channels. The write is
// already committed, so delivery failures are logged and never returned.
func (s *queueService) publish(ctx context.Context, queueID string, notifications []domain.Notification) {
	if len(notifications) == 0 {
		return
	}

	ctx, span := telemetry.StartSpan(context.WithoutCancel(ctx), "service.queue.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("queue_id", queueID),
		attribute.Int("notification_count", len(notifications)),
	)

	if err := s.publisher.Publish(ctx, notifications); err != nil {
		telemetry.RecordError(span, err)
		metrics.PublishFailed()
		logger.Get().Warn("failed to publish notifications",
			zap.String("queue_id", queueID),
			zap.String("channel", s.publisher.Name()),
			zap.Int("count", len(notifications)),
			zap.Error(err),
		)
		return
	}
	metrics.NotificationsPublished(notifications)
}

// finish records the outcome of an operation on its span and in metrics
func finish(span trace.Span, operation string, start time.Time, err error) {
	metrics.ObserveOperation(operation, start, err)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// CreateQueue opens a new queue for a business
func (s *queueService) CreateQueue(ctx context.Context, req *dto.CreateQueueRequest) (resp *dto.QueueResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.create")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "create_queue", start, err) }()

	if req == nil {
		return nil, domain.ErrInvalidName
	}

	settings := s.defaultConfig
	if req.Settings != nil {
		settings = req.Settings.ToDomain()
	}

	span.SetAttributes(
		attribute.String("business_id", req.BusinessID),
		attribute.String("slug", req.Slug),
	)

	q, err := domain.NewQueue(domain.NewQueueParams{
		ID:         s.newID(),
		BusinessID: req.BusinessID,
		Name:       req.Name,
		Slug:       req.Slug,
		Settings:   &settings,
	}, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}

	logger.Get().Info("queue created",
		zap.String("queue_id", q.ID),
		zap.String("business_id", q.BusinessID),
		zap.String("slug", q.Slug),
	)
	return dto.NewQueueResponse(q), nil
}

// GetQueue returns the staff view of a queue
func (s *queueService) GetQueue(ctx context.Context, queueID string) (resp *dto.QueueDetailResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.get")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "get_queue", start, err) }()

	span.SetAttributes(attribute.String("queue_id", queueID))

	q, err := s.repo.Load(ctx, queueID)
	if err != nil {
		return nil, err
	}

	positions := q.WaitingPositions()
	active := q.ActiveCustomers()
	customers := make([]dto.CustomerResponse, 0, len(active))
	for _, c := range active {
		customers = append(customers, dto.NewCustomerResponse(c, positions[c.ID]))
	}

	now := s.clock.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	return &dto.QueueDetailResponse{
		QueueResponse: *dto.NewQueueResponse(q),
		Customers:     customers,
		CalledCount:   q.GetCalledCount(),
		ServedToday:   q.GetServedCount(startOfDay),
	}, nil
}

// ListBusinessQueues returns every queue of a business
func (s *queueService) ListBusinessQueues(ctx context.Context, businessID string) (resp []*dto.QueueResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.list")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "list_queues", start, err) }()

	span.SetAttributes(attribute.String("business_id", businessID))

	queues, err := s.repo.ListByBusiness(ctx, businessID)
	if err != nil {
		return nil, err
	}

	resp = make([]*dto.QueueResponse, 0, len(queues))
	for _, q := range queues {
		resp = append(resp, dto.NewQueueResponse(q))
	}
	return resp, nil
}

// JoinQueue adds a walk-in customer and issues their token
func (s *queueService) JoinQueue(ctx context.Context, queueID string, req *dto.JoinQueueRequest) (resp *dto.JoinQueueResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.join")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "join", start, err) }()

	if req == nil {
		return nil, domain.ErrInvalidName
	}
	span.SetAttributes(attribute.String("queue_id", queueID))

	token, err := s.newToken()
	if err != nil {
		return nil, err
	}
	customerID := s.newID()

	var joined domain.Customer
	q, err := s.mutate(ctx, "join", queueID, func(q *domain.Queue, now time.Time) (*notify.Change, error) {
		c, err := q.AddCustomer(domain.NewCustomer{
			ID:        customerID,
			Token:     token,
			Name:      req.Name,
			JoinedAt:  now,
			Phone:     req.Phone,
			PartySize: req.PartySize,
			Notes:     req.Notes,
		})
		if err != nil {
			return nil, err
		}
		joined = c
		return &notify.Change{Kind: domain.UpdateCustomerJoined, Customer: &c}, nil
	})
	if err != nil {
		return nil, err
	}

	position, _ := q.GetCustomerPosition(customerID)
	settings := q.Settings()

	span.SetAttributes(
		attribute.String("customer_id", customerID),
		attribute.Int("position", position),
	)

	return &dto.JoinQueueResponse{
		QueueID:              q.ID,
		CustomerID:           customerID,
		Token:                token,
		Position:             position,
		EstimatedWaitMinutes: settings.EstimatedWaitMinutes(position),
		JoinedAt:             joined.JoinedAt,
		Message:              settings.WelcomeMessage,
	}, nil
}

// loadByToken resolves a token to its queue and customer
func (s *queueService) loadByToken(ctx context.Context, token string) (*domain.Queue, domain.Customer, error) {
	if token == "" {
		return nil, domain.Customer{}, domain.ErrInvalidToken
	}

	queueID, err := s.repo.FindQueueIDByToken(ctx, token)
	if err != nil {
		return nil, domain.Customer{}, err
	}

	q, err := s.repo.Load(ctx, queueID)
	if err != nil {
		return nil, domain.Customer{}, err
	}

	c, ok := q.CustomerByToken(token)
	if !ok {
		return nil, domain.Customer{}, domain.ErrCustomerNotFound
	}
	return q, c, nil
}

// GetCustomerStatus returns what the token holder sees
func (s *queueService) GetCustomerStatus(ctx context.Context, token string) (resp *dto.CustomerStatusResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.customer_status")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "customer_status", start, err) }()

	q, c, err := s.loadByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	settings := q.Settings()
	resp = &dto.CustomerStatusResponse{
		QueueID:      q.ID,
		QueueName:    q.Name,
		Name:         c.Name,
		Status:       c.Status,
		WaitingCount: q.GetWaitingCount(),
		JoinedAt:     c.JoinedAt,
		CalledAt:     c.CalledAt,
		IsPaused:     q.IsPaused(),
	}

	switch c.Status {
	case domain.CustomerStatusWaiting:
		if pos, ok := q.GetCustomerPosition(c.ID); ok {
			resp.Position = &pos
			resp.EstimatedWaitMinutes = settings.EstimatedWaitMinutes(pos)
		}
		resp.Message = settings.WelcomeMessage
	case domain.CustomerStatusCalled:
		resp.Message = settings.CalledMessage
	}

	span.SetAttributes(
		attribute.String("queue_id", q.ID),
		attribute.String("status", string(c.Status)),
	)
	return resp, nil
}

// SavePushSubscription stores the token holder's push descriptor
func (s *queueService) SavePushSubscription(ctx context.Context, token string, req *dto.PushSubscriptionRequest) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.push_subscription")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "push_subscription", start, err) }()

	if req == nil || len(req.Subscription) == 0 {
		return domain.ErrInvalidToken
	}

	q, c, err := s.loadByToken(ctx, token)
	if err != nil {
		return err
	}

	_, err = s.mutate(ctx, "push_subscription", q.ID, func(q *domain.Queue, now time.Time) (*notify.Change, error) {
		_, err := q.SetPushSubscription(c.ID, req.Subscription, now)
		return nil, err
	})
	return err
}

// LeaveQueue removes the token holder from the queue
func (s *queueService) LeaveQueue(ctx context.Context, token string) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.leave")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "leave", start, err) }()

	if token == "" {
		return domain.ErrInvalidToken
	}

	queueID, err := s.repo.FindQueueIDByToken(ctx, token)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("queue_id", queueID))

	_, err = s.mutate(ctx, "leave", queueID, func(q *domain.Queue, now time.Time) (*notify.Change, error) {
		c, ok := q.CustomerByToken(token)
		if !ok {
			return nil, domain.ErrCustomerNotFound
		}
		removed, err := q.RemoveCustomer(c.ID, now)
		if err != nil {
			return nil, err
		}
		return &notify.Change{Kind: domain.UpdateCustomerRemoved, Customer: &removed}, nil
	})
	return err
}

// CallNext calls the customer at the front of the queue
func (s *queueService) CallNext(ctx context.Context, queueID string) (resp *dto.CustomerResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.call_next")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "call_next", start, err) }()

	span.SetAttributes(attribute.String("queue_id", queueID))

	var called domain.Customer
	_, err = s.mutate(ctx, "call_next", queueID, func(q *domain.Queue, now time.Time) (*notify.Change, error) {
		c, err := q.CallNext(now)
		if err != nil {
			return nil, err
		}
		called = c
		return &notify.Change{Kind: domain.UpdateCustomerCalled, Customer: &c}, nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("customer_id", called.ID))
	r := dto.NewCustomerResponse(called, 0)
	return &r, nil
}

// transitionCustomer runs a staff transition on one customer
func (s *queueService) transitionCustomer(
	ctx context.Context,
	operation string,
	queueID, customerID string,
	kind domain.QueueUpdateKind,
	apply func(q *domain.Queue, customerID string, now time.Time) (domain.Customer, error),
) (resp *dto.CustomerResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue."+operation)
	defer span.End()
	start := time.Now()
	defer func() { finish(span, operation, start, err) }()

	span.SetAttributes(
		attribute.String("queue_id", queueID),
		attribute.String("customer_id", customerID),
	)

	var updated domain.Customer
	_, err = s.mutate(ctx, operation, queueID, func(q *domain.Queue, now time.Time) (*notify.Change, error) {
		c, err := apply(q, customerID, now)
		if err != nil {
			return nil, err
		}
		updated = c
		return &notify.Change{Kind: kind, Customer: &c}, nil
	})
	if err != nil {
		return nil, err
	}

	r := dto.NewCustomerResponse(updated, 0)
	return &r, nil
}

// MarkServed completes a called customer
func (s *queueService) MarkServed(ctx context.Context, queueID, customerID string) (*dto.CustomerResponse, error) {
	return s.transitionCustomer(ctx, "mark_served", queueID, customerID, domain.UpdateCustomerServed, (*domain.Queue).MarkServed)
}

// MarkNoShow expires a called customer
func (s *queueService) MarkNoShow(ctx context.Context, queueID, customerID string) (*dto.CustomerResponse, error) {
	return s.transitionCustomer(ctx, "mark_no_show", queueID, customerID, domain.UpdateCustomerNoShow, (*domain.Queue).MarkNoShow)
}

// RemoveCustomer removes a waiting or called customer
func (s *queueService) RemoveCustomer(ctx context.Context, queueID, customerID string) (*dto.CustomerResponse, error) {
	return s.transitionCustomer(ctx, "remove_customer", queueID, customerID, domain.UpdateCustomerRemoved, (*domain.Queue).RemoveCustomer)
}

// UpdateSettings replaces the queue's settings
func (s *queueService) UpdateSettings(ctx context.Context, queueID string, req *dto.QueueSettingsRequest) (resp *dto.QueueResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.update_settings")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "update_settings", start, err) }()

	if req == nil {
		return nil, domain.ErrInvalidSettings
	}
	span.SetAttributes(attribute.String("queue_id", queueID))

	settings := req.ToDomain()
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	q, err := s.mutate(ctx, "update_settings", queueID, func(q *domain.Queue, now time.Time) (*notify.Change, error) {
		if err := q.UpdateSettings(settings, now); err != nil {
			return nil, err
		}
		return &notify.Change{Kind: domain.UpdateSettingsChanged}, nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewQueueResponse(q), nil
}

// SetQueueStatus pauses/resumes or opens/closes the queue
func (s *queueService) SetQueueStatus(ctx context.Context, queueID string, req *dto.UpdateQueueStatusRequest) (resp *dto.QueueResponse, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.set_status")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "set_status", start, err) }()

	if req == nil || (req.IsPaused == nil && req.IsActive == nil) {
		return nil, domain.ErrInvalidSettings
	}
	span.SetAttributes(attribute.String("queue_id", queueID))

	q, err := s.mutate(ctx, "set_status", queueID, func(q *domain.Queue, now time.Time) (*notify.Change, error) {
		if req.IsPaused != nil {
			q.SetPaused(*req.IsPaused, now)
		}
		if req.IsActive != nil {
			q.SetActive(*req.IsActive, now)
		}
		return &notify.Change{Kind: domain.UpdateSettingsChanged}, nil
	})
	if err != nil {
		return nil, err
	}
	return dto.NewQueueResponse(q), nil
}

// ActiveQueueIDs lists the queues the sweeper should visit
func (s *queueService) ActiveQueueIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListActiveQueueIDs(ctx)
}

// NoShowCandidates returns ids of called customers past the no-show timeout
func (s *queueService) NoShowCandidates(ctx context.Context, queueID string) ([]string, error) {
	q, err := s.repo.Load(ctx, queueID)
	if err != nil {
		return nil, err
	}

	due := q.NoShowDue(s.clock.Now())
	ids := make([]string, 0, len(due))
	for _, c := range due {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// ExpireCustomer marks one customer as no-show if they are still overdue.
// The due check is repeated on every attempt, so a customer served or
// removed concurrently is skipped rather than failed.
func (s *queueService) ExpireCustomer(ctx context.Context, queueID, customerID string) (expired bool, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.expire_customer")
	defer span.End()
	start := time.Now()
	defer func() { finish(span, "expire_customer", start, err) }()

	span.SetAttributes(
		attribute.String("queue_id", queueID),
		attribute.String("customer_id", customerID),
	)

	_, err = s.mutate(ctx, "expire_customer", queueID, func(q *domain.Queue, now time.Time) (*notify.Change, error) {
		if !q.IsNoShowDue(customerID, now) {
			return nil, errNotDue
		}
		c, err := q.MarkNoShow(customerID, now)
		if err != nil {
			return nil, err
		}
		return &notify.Change{Kind: domain.UpdateCustomerNoShow, Customer: &c}, nil
	})
	if errors.Is(err, errNotDue) {
		span.SetAttributes(attribute.Bool("skipped", true))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
