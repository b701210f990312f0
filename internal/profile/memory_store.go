package profile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/auditelle/storefront/internal/pagination"
	"github.com/auditelle/storefront/internal/reseller"
)

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	scans    map[string][]*Scan // by user, oldest first
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]*Profile),
		scans:    make(map[string][]*Scan),
		now:      time.Now,
	}
}

// Put replaces a profile wholesale. Test helper.
func (m *MemoryStore) Put(p *Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.ID] = &cp
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) EnsureProfile(_ context.Context, id, email, fullName string) (*Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		p = &Profile{
			ID:        id,
			Email:     email,
			FullName:  fullName,
			Plan:      reseller.PlanFree,
			CreatedAt: m.now().UTC(),
		}
		m.profiles[id] = p
	}
	cp := *p
	return &cp, nil
}

// update applies fn to the profile under the write lock.
func (m *MemoryStore) update(id string, fn func(p *Profile) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.profiles[id]
	if !ok {
		return ErrNotFound
	}
	return fn(p)
}

func (m *MemoryStore) ResetDailyScans(_ context.Context, id string, at time.Time) error {
	return m.update(id, func(p *Profile) error {
		p.ScansToday = 0
		p.ScansResetAt = at.UTC()
		return nil
	})
}

func (m *MemoryStore) IncrementScans(_ context.Context, id string, expected int) error {
	return m.update(id, func(p *Profile) error {
		if p.ScansToday != expected {
			return ErrConflict
		}
		p.ScansToday++
		return nil
	})
}

func (m *MemoryStore) SetStripeCustomer(_ context.Context, id, customerID string) error {
	return m.update(id, func(p *Profile) error {
		p.StripeCustomerID = customerID
		return nil
	})
}

func (m *MemoryStore) ActivateSubscription(_ context.Context, id string, plan reseller.PlanID, customerID, subscriptionID string) error {
	return m.update(id, func(p *Profile) error {
		p.Plan = plan
		if customerID != "" {
			p.StripeCustomerID = customerID
		}
		p.StripeSubscriptionID = subscriptionID
		return nil
	})
}

// bySubscription applies fn to every profile holding subscriptionID.
func (m *MemoryStore) bySubscription(subscriptionID string, fn func(p *Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	found := false
	for _, p := range m.profiles {
		if subscriptionID != "" && p.StripeSubscriptionID == subscriptionID {
			fn(p)
			found = true
		}
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (m *MemoryStore) SetPlanBySubscription(_ context.Context, subscriptionID string, plan reseller.PlanID) error {
	return m.bySubscription(subscriptionID, func(p *Profile) { p.Plan = plan })
}

func (m *MemoryStore) CancelSubscription(_ context.Context, subscriptionID string) error {
	return m.bySubscription(subscriptionID, func(p *Profile) {
		p.Plan = reseller.PlanFree
		p.StripeSubscriptionID = ""
	})
}

func (m *MemoryStore) MarkWelcomeEmailSent(_ context.Context, id string) (bool, error) {
	first := false
	err := m.update(id, func(p *Profile) error {
		first = !p.WelcomeEmailSent
		p.WelcomeEmailSent = true
		return nil
	})
	return first, err
}

func (m *MemoryStore) MarkLimitEmailSent(_ context.Context, id string, at time.Time) error {
	return m.update(id, func(p *Profile) error {
		p.LimitEmailSentAt = at.UTC()
		return nil
	})
}

func (m *MemoryStore) RecordScan(_ context.Context, s *Scan) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *s
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = m.now().UTC()
	}
	m.scans[s.UserID] = append(m.scans[s.UserID], &cp)
	return nil
}

func (m *MemoryStore) ListScans(_ context.Context, userID string, after *pagination.Cursor, limit int) ([]*Scan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]*Scan, len(m.scans[userID]))
	copy(all, m.scans[userID])
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	var out []*Scan
	for _, s := range all {
		if after != nil && !after.Precedes(s.CreatedAt, s.ID) {
			continue
		}
		cp := *s
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
