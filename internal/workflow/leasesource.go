package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"utility-billing/internal/agent"
	"utility-billing/internal/mailbox"
	"utility-billing/internal/portal"
)

// CourierLeaseSource lists leases by asking the portal agent through the
// mailbox. It is the production portal.LeaseSource; tests substitute a
// fixed list.
type CourierLeaseSource struct {
	courier *mailbox.Courier
	wait    time.Duration
}

// NewCourierLeaseSource constructs the mailbox-backed lease source.
func NewCourierLeaseSource(courier *mailbox.Courier, wait time.Duration) (*CourierLeaseSource, error) {
	if courier == nil {
		return nil, errors.New("workflow: courier is required")
	}
	if wait <= 0 {
		wait = 15 * time.Second
	}
	return &CourierLeaseSource{courier: courier, wait: wait}, nil
}

// Leases posts a list-leases request and waits for the agent's answer.
func (s *CourierLeaseSource) Leases(ctx context.Context) ([]portal.Lease, error) {
	if _, err := s.courier.PostRequest(ctx, mailbox.KindListLeases, "", nil); err != nil {
		return nil, err
	}
	res, err := s.courier.AwaitResult(ctx, mailbox.KindListLeases, "", s.wait)
	if err != nil {
		return nil, err
	}
	if res.Err != "" {
		return nil, fmt.Errorf("workflow: list leases failed: %s", res.Err)
	}
	var result agent.LeaseListResult
	if err := json.Unmarshal(res.Payload, &result); err != nil {
		return nil, fmt.Errorf("workflow: decode lease list: %w", err)
	}
	return result.Leases, nil
}
