package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxNameLength bounds queue and customer names
	MaxNameLength = 100
	// MaxPartySize bounds the optional party size
	MaxPartySize = 50
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Queue is the waitlist aggregate. Customers are only reachable through its
// methods; every mutation validates the state machine before touching them.
type Queue struct {
	ID         string
	BusinessID string
	Name       string
	Slug       string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Version is the persisted concurrency token; repositories own it
	Version int64

	active    bool
	paused    bool
	settings  QueueSettings
	customers []*Customer // FIFO order
	nextSeq   int64
}

// NewQueueParams holds the fields needed to open a queue
type NewQueueParams struct {
	ID         string
	BusinessID string
	Name       string
	Slug       string
	Settings   *QueueSettings
}

// NewQueue creates an active, unpaused, empty queue
func NewQueue(p NewQueueParams, now time.Time) (*Queue, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, ErrInvalidQueueID
	}
	name, err := validateName(p.Name)
	if err != nil {
		return nil, err
	}
	if len(p.Slug) > 64 || !slugPattern.MatchString(p.Slug) {
		return nil, ErrInvalidSlug
	}

	settings := DefaultQueueSettings()
	if p.Settings != nil {
		settings = p.Settings.clone()
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return &Queue{
		ID:         p.ID,
		BusinessID: p.BusinessID,
		Name:       name,
		Slug:       p.Slug,
		CreatedAt:  now,
		UpdatedAt:  now,
		active:     true,
		settings:   settings,
	}, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > MaxNameLength {
		return "", ErrInvalidName
	}
	return name, nil
}

// IsActive reports whether the queue accepts customers at all
func (q *Queue) IsActive() bool { return q.active }

// IsPaused reports whether joining is paused
func (q *Queue) IsPaused() bool { return q.paused }

// Settings returns a copy of the queue settings
func (q *Queue) Settings() QueueSettings { return q.settings.clone() }

// NewCustomer holds the input for AddCustomer. JoinedAt comes from the caller's clock.
type NewCustomer struct {
	ID        string
	Token     string
	Name      string
	JoinedAt  time.Time
	Phone     string
	PartySize int
	Notes     string
}

// AddCustomer appends a Waiting customer in FIFO order
func (q *Queue) AddCustomer(in NewCustomer) (Customer, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return Customer{}, err
	}
	if !q.active {
		return Customer{}, ErrQueueNotActive
	}
	if q.paused && !q.settings.AllowJoinWhenPaused {
		return Customer{}, ErrQueuePaused
	}
	if max := q.settings.MaxCapacity; max != nil && q.activeCount() >= *max {
		return Customer{}, fmt.Errorf("%w: limit is %d", ErrCapacityExceeded, *max)
	}
	if in.ID == "" {
		return Customer{}, ErrInvalidCustomerID
	}
	if in.Token == "" {
		return Customer{}, ErrInvalidToken
	}
	if in.PartySize < 0 || in.PartySize > MaxPartySize {
		return Customer{}, ErrInvalidPartySize
	}
	for _, c := range q.customers {
		if c.Token == in.Token {
			return Customer{}, ErrDuplicateToken
		}
		if c.ID == in.ID {
			return Customer{}, fmt.Errorf("%w: %s already exists", ErrInvalidCustomerID, in.ID)
		}
	}

	c := &Customer{
		ID:        in.ID,
		Name:      name,
		Token:     in.Token,
		Status:    CustomerStatusWaiting,
		JoinedAt:  in.JoinedAt,
		Seq:       q.nextSeq,
		Phone:     strings.TrimSpace(in.Phone),
		PartySize: in.PartySize,
		Notes:     strings.TrimSpace(in.Notes),
	}
	q.nextSeq++
	q.insert(c)
	q.UpdatedAt = in.JoinedAt

	return c.clone(), nil
}

// insert places c after every customer that precedes it
func (q *Queue) insert(c *Customer) {
	i := sort.Search(len(q.customers), func(i int) bool {
		return c.before(q.customers[i])
	})
	q.customers = append(q.customers, nil)
	copy(q.customers[i+1:], q.customers[i:])
	q.customers[i] = c
}

// CallNext moves the earliest Waiting customer to Called
func (q *Queue) CallNext(now time.Time) (Customer, error) {
	for _, c := range q.customers {
		if c.Status == CustomerStatusWaiting {
			return q.apply(c, CustomerStatusCalled, now)
		}
	}
	return Customer{}, ErrQueueEmpty
}

// MarkServed completes a Called customer
func (q *Queue) MarkServed(customerID string, now time.Time) (Customer, error) {
	return q.transition(customerID, CustomerStatusServed, now)
}

// MarkNoShow expires a Called customer. Waiting customers were never
// summoned, so a no-show on them is rejected.
func (q *Queue) MarkNoShow(customerID string, now time.Time) (Customer, error) {
	return q.transition(customerID, CustomerStatusNoShow, now)
}

// RemoveCustomer takes a Waiting or Called customer out of the queue
func (q *Queue) RemoveCustomer(customerID string, now time.Time) (Customer, error) {
	return q.transition(customerID, CustomerStatusRemoved, now)
}

var allowedTransitions = map[CustomerStatus][]CustomerStatus{
	CustomerStatusWaiting: {CustomerStatusCalled, CustomerStatusRemoved},
	CustomerStatusCalled:  {CustomerStatusServed, CustomerStatusNoShow, CustomerStatusRemoved},
}

// CanTransition reports whether from -> to is a legal move
func CanTransition(from, to CustomerStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (q *Queue) transition(customerID string, to CustomerStatus, now time.Time) (Customer, error) {
	c := q.find(customerID)
	if c == nil {
		return Customer{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
	}
	return q.apply(c, to, now)
}

func (q *Queue) apply(c *Customer, to CustomerStatus, now time.Time) (Customer, error) {
	if !CanTransition(c.Status, to) {
		return Customer{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, to)
	}

	c.Status = to
	t := now
	if to == CustomerStatusCalled {
		c.CalledAt = &t
	} else {
		c.CompletedAt = &t
	}
	q.UpdatedAt = now
	return c.clone(), nil
}

// UpdateSettings validates and replaces the settings wholesale
func (q *Queue) UpdateSettings(s QueueSettings, now time.Time) error {
	if err := s.Validate(); err != nil {
		return err
	}
	q.settings = s.clone()
	q.UpdatedAt = now
	return nil
}

// SetPaused pauses or resumes joining
func (q *Queue) SetPaused(paused bool, now time.Time) {
	q.paused = paused
	q.UpdatedAt = now
}

// SetActive opens or closes the queue
func (q *Queue) SetActive(active bool, now time.Time) {
	q.active = active
	q.UpdatedAt = now
}

// SetPushSubscription stores an opaque push descriptor for an active customer
func (q *Queue) SetPushSubscription(customerID string, sub json.RawMessage, now time.Time) (Customer, error) {
	c := q.find(customerID)
	if c == nil {
		return Customer{}, fmt.Errorf("%w: %s", ErrCustomerNotFound, customerID)
	}
	if c.Status.IsTerminal() {
		return Customer{}, fmt.Errorf("%w: customer is %s", ErrInvalidTransition, c.Status)
	}
	c.PushSubscription = append(json.RawMessage(nil), sub...)
	q.UpdatedAt = now
	return c.clone(), nil
}

// GetCustomerPosition returns the 1-based rank among Waiting customers.
// ok is false for unknown or non-Waiting customers.
func (q *Queue) GetCustomerPosition(customerID string) (position int, ok bool) {
	for _, c := range q.customers {
		if c.Status != CustomerStatusWaiting {
			continue
		}
		position++
		if c.ID == customerID {
			return position, true
		}
	}
	return 0, false
}

// WaitingPositions returns the position of every Waiting customer keyed by id
func (q *Queue) WaitingPositions() map[string]int {
	out := make(map[string]int)
	position := 0
	for _, c := range q.customers {
		if c.Status == CustomerStatusWaiting {
			position++
			out[c.ID] = position
		}
	}
	return out
}

// GetWaitingCount counts Waiting customers
func (q *Queue) GetWaitingCount() int {
	return q.countStatus(CustomerStatusWaiting)
}

// GetCalledCount counts Called customers
func (q *Queue) GetCalledCount() int {
	return q.countStatus(CustomerStatusCalled)
}

// GetServedCount counts customers served at or after since
func (q *Queue) GetServedCount(since time.Time) int {
	n := 0
	for _, c := range q.customers {
		if c.Status == CustomerStatusServed && c.CompletedAt != nil && !c.CompletedAt.Before(since) {
			n++
		}
	}
	return n
}

func (q *Queue) countStatus(s CustomerStatus) int {
	n := 0
	for _, c := range q.customers {
		if c.Status == s {
			n++
		}
	}
	return n
}

func (q *Queue) activeCount() int {
	n := 0
	for _, c := range q.customers {
		if c.Status.IsActive() {
			n++
		}
	}
	return n
}

// Customer returns a copy of the customer with the given id
func (q *Queue) Customer(customerID string) (Customer, bool) {
	if c := q.find(customerID); c != nil {
		return c.clone(), true
	}
	return Customer{}, false
}

// CustomerByToken returns a copy of the customer holding token
func (q *Queue) CustomerByToken(token string) (Customer, bool) {
	for _, c := range q.customers {
		if c.Token == token {
			return c.clone(), true
		}
	}
	return Customer{}, false
}

// ActiveCustomers returns Waiting and Called customers in FIFO order
func (q *Queue) ActiveCustomers() []Customer {
	out := make([]Customer, 0, len(q.customers))
	for _, c := range q.customers {
		if c.Status.IsActive() {
			out = append(out, c.clone())
		}
	}
	return out
}

// Customers returns every customer, terminal ones included, in FIFO order
func (q *Queue) Customers() []Customer {
	out := make([]Customer, 0, len(q.customers))
	for _, c := range q.customers {
		out = append(out, c.clone())
	}
	return out
}

// NoShowDue returns Called customers whose no-show timeout has elapsed at now
func (q *Queue) NoShowDue(now time.Time) []Customer {
	var out []Customer
	for _, c := range q.customers {
		if q.isNoShowDue(c, now) {
			out = append(out, c.clone())
		}
	}
	return out
}

// IsNoShowDue reports whether the customer is Called and past the timeout
func (q *Queue) IsNoShowDue(customerID string, now time.Time) bool {
	c := q.find(customerID)
	return c != nil && q.isNoShowDue(c, now)
}

func (q *Queue) isNoShowDue(c *Customer, now time.Time) bool {
	return c.Status == CustomerStatusCalled && c.CalledFor(now) >= q.settings.NoShowTimeout()
}

func (q *Queue) find(customerID string) *Customer {
	for _, c := range q.customers {
		if c.ID == customerID {
			return c
		}
	}
	return nil
}
