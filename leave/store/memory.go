// Package store provides an in-memory leave.Store implementation for
// tests and development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/crewdesk/leavedesk/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements leave.Store with maps guarded by a mutex. Conditional
// updates run under the lock, so the same guard semantics hold as with
// the SQLite store's conditional statements.
type Memory struct {
	mu       sync.RWMutex
	profiles map[leave.ProfileID]leave.ProfileAccount
	requests map[leave.RequestID]leave.LeaveRequest
	order    []leave.RequestID // insertion order for the pending scan
}

func NewMemory() *Memory {
	return &Memory{
		profiles: make(map[leave.ProfileID]leave.ProfileAccount),
		requests: make(map[leave.RequestID]leave.LeaveRequest),
	}
}

// =============================================================================
// PROFILE STORE
// =============================================================================

func (m *Memory) GetProfile(_ context.Context, id leave.ProfileID) (*leave.ProfileAccount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	return &p, nil
}

func (m *Memory) SaveProfile(_ context.Context, p *leave.ProfileAccount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[p.ID] = *p
	return nil
}

func (m *Memory) UpdateAllowance(_ context.Context, id leave.ProfileID, expect, next leave.Days) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return leave.ErrNotFound
	}
	if !p.RemainingAllowance.Equal(expect) {
		return leave.ErrConcurrentModification
	}
	p.RemainingAllowance = next
	m.profiles[id] = p
	return nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (m *Memory) CreateRequest(_ context.Context, r *leave.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests[r.ID] = *r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id leave.RequestID) (*leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	return &r, nil
}

func (m *Memory) TransitionRequest(_ context.Context, id leave.RequestID, to leave.RequestStatus, decidedBy leave.ProfileID, at time.Time) (*leave.LeaveRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.requests[id]
	if !ok {
		return nil, leave.ErrNotFound
	}
	if r.Status != leave.StatusPending {
		return nil, &leave.InvalidTransitionError{RequestID: id, Status: r.Status}
	}

	r.Status = to
	r.DecidedBy = decidedBy
	r.DecidedAt = &at
	m.requests[id] = r
	return &r, nil
}

func (m *Memory) ListPending(_ context.Context) ([]leave.PendingRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []leave.PendingRequest
	for _, id := range m.order {
		r := m.requests[id]
		if r.Status != leave.StatusPending {
			continue
		}
		out = append(out, leave.PendingRequest{
			LeaveRequest: r,
			OwnerName:    m.profiles[r.OwnerID].Name,
		})
	}
	return out, nil
}

func (m *Memory) ListByOwner(_ context.Context, owner leave.ProfileID) ([]leave.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []leave.LeaveRequest
	for _, r := range m.requests {
		if r.OwnerID == owner {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
