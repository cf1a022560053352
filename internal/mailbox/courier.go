package mailbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names one request/result pair the agent knows how to serve.
type Kind string

const (
	KindListLeases    Kind = "list-leases"
	KindCheckPage     Kind = "check-page"
	KindTenantScrape  Kind = "tenant-scrape"
	KindFindProperty  Kind = "find-property"
	KindAddressScrape Kind = "address-scrape"
	KindFillCharge    Kind = "fill-charge"
)

// Kinds lists every request kind, in the order the workflow uses them.
var Kinds = []Kind{
	KindListLeases,
	KindCheckPage,
	KindTenantScrape,
	KindFindProperty,
	KindAddressScrape,
	KindFillCharge,
}

// Request is one unit of work posted for the agent. RequestID correlates
// the eventual result; LeaseID scopes it to a single run's lease.
type Request struct {
	RequestID string          `json:"requestId"`
	LeaseID   string          `json:"leaseId,omitempty"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	PostedAt  time.Time       `json:"postedAt"`
}

// Result is the agent's answer to a Request. Err carries a failure message
// when the agent could not serve the request; Payload is empty in that case.
type Result struct {
	RequestID string          `json:"requestId"`
	LeaseID   string          `json:"leaseId,omitempty"`
	Kind      Kind            `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Err       string          `json:"error,omitempty"`
	PostedAt  time.Time       `json:"postedAt"`
}

const (
	defaultNamespace    = "utilitypro"
	defaultPollInterval = 300 * time.Millisecond
)

// Courier reads and writes mailbox entries on behalf of one side of the
// conversation. One pending slot and one result slot exist per kind; a new
// request overwrites whatever stale state the slot held.
type Courier struct {
	store        Store
	namespace    string
	pollInterval time.Duration
}

// CourierOption adjusts courier construction.
type CourierOption func(*Courier)

// WithNamespace changes the key prefix, isolating parallel deployments
// that share one store.
func WithNamespace(ns string) CourierOption {
	return func(c *Courier) { c.namespace = ns }
}

// WithPollInterval changes how often AwaitResult re-reads the store when
// the backend cannot push notifications.
func WithPollInterval(d time.Duration) CourierOption {
	return func(c *Courier) { c.pollInterval = d }
}

// NewCourier creates a courier over the given store.
func NewCourier(store Store, opts ...CourierOption) (*Courier, error) {
	if store == nil {
		return nil, errors.New("mailbox: store is required")
	}
	c := &Courier{
		store:        store,
		namespace:    defaultNamespace,
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.pollInterval <= 0 {
		c.pollInterval = defaultPollInterval
	}
	return c, nil
}

func (c *Courier) pendingKey(kind Kind) string {
	return fmt.Sprintf("%s:pending:%s", c.namespace, kind)
}

func (c *Courier) resultKey(kind Kind) string {
	return fmt.Sprintf("%s:result:%s", c.namespace, kind)
}

// PostRequest publishes a request for the agent and clears any stale result
// left in the kind's result slot, so a waiter cannot pick up an answer from
// an earlier run.
func (c *Courier) PostRequest(ctx context.Context, kind Kind, leaseID string, payload any) (Request, error) {
	req := Request{
		RequestID: uuid.NewString(),
		LeaseID:   leaseID,
		Kind:      kind,
		PostedAt:  time.Now().UTC(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Request{}, fmt.Errorf("mailbox: marshal request payload: %w", err)
		}
		req.Payload = raw
	}

	if err := c.store.Remove(ctx, c.resultKey(kind)); err != nil {
		return Request{}, fmt.Errorf("mailbox: clear stale result: %w", err)
	}
	raw, err := json.Marshal(req)
	if err != nil {
		return Request{}, fmt.Errorf("mailbox: marshal request: %w", err)
	}
	if err := c.store.Put(ctx, c.pendingKey(kind), raw); err != nil {
		return Request{}, fmt.Errorf("mailbox: post request: %w", err)
	}
	return req, nil
}

// TakeRequest consumes the pending request of the given kind, if any.
// The slot is cleared before the request is returned, so a request is
// served at most once.
func (c *Courier) TakeRequest(ctx context.Context, kind Kind) (Request, bool, error) {
	key := c.pendingKey(kind)
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return Request{}, false, fmt.Errorf("mailbox: read pending: %w", err)
	}
	if !ok {
		return Request{}, false, nil
	}
	if err := c.store.Remove(ctx, key); err != nil {
		return Request{}, false, fmt.Errorf("mailbox: consume pending: %w", err)
	}
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, false, fmt.Errorf("mailbox: decode pending: %w", err)
	}
	return req, true, nil
}

// PostResult publishes the agent's answer to a previously taken request.
// The result inherits the request's correlation fields.
func (c *Courier) PostResult(ctx context.Context, req Request, payload any, resultErr error) error {
	res := Result{
		RequestID: req.RequestID,
		LeaseID:   req.LeaseID,
		Kind:      req.Kind,
		PostedAt:  time.Now().UTC(),
	}
	if resultErr != nil {
		res.Err = resultErr.Error()
	} else if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("mailbox: marshal result payload: %w", err)
		}
		res.Payload = raw
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("mailbox: marshal result: %w", err)
	}
	if err := c.store.Put(ctx, c.resultKey(req.Kind), raw); err != nil {
		return fmt.Errorf("mailbox: post result: %w", err)
	}
	return nil
}

// AwaitResult blocks until a result of the given kind arrives for the given
// lease, the timeout passes, or ctx is cancelled. Results correlated to a
// different lease are left in place untouched; only a matching result is
// consumed. An empty leaseID matches any result of the kind.
func (c *Courier) AwaitResult(ctx context.Context, kind Kind, leaseID string, timeout time.Duration) (Result, error) {
	deadline := time.Now().Add(timeout)
	key := c.resultKey(kind)

	var wake <-chan struct{}
	if watcher, ok := c.store.(Watcher); ok {
		wake = watcher.Watch(key)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		raw, ok, err := c.store.Get(ctx, key)
		if err != nil {
			return Result{}, fmt.Errorf("mailbox: read result: %w", err)
		}
		if ok {
			var res Result
			if err := json.Unmarshal(raw, &res); err != nil {
				return Result{}, fmt.Errorf("mailbox: decode result: %w", err)
			}
			if leaseID == "" || res.LeaseID == leaseID {
				if err := c.store.Remove(ctx, key); err != nil {
					return Result{}, fmt.Errorf("mailbox: consume result: %w", err)
				}
				return res, nil
			}
		}

		if time.Now().After(deadline) {
			return Result{}, ErrAwaitTimeout
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		case <-wake:
		}
	}
}

// ClearPending wipes every pending and result slot. The workflow calls this
// when a run starts over, so the agent never acts on abandoned requests.
func (c *Courier) ClearPending(ctx context.Context) error {
	for _, kind := range Kinds {
		if err := c.store.Remove(ctx, c.pendingKey(kind)); err != nil {
			return fmt.Errorf("mailbox: clear pending %s: %w", kind, err)
		}
		if err := c.store.Remove(ctx, c.resultKey(kind)); err != nil {
			return fmt.Errorf("mailbox: clear result %s: %w", kind, err)
		}
	}
	return nil
}
