// Package funneltest provides an in-memory funnel store for tests.
package funneltest

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizfunnel/api/models"
)

// MemStore implements the funnel store interfaces over maps.
type MemStore struct {
	mu           sync.Mutex
	sessions     map[string]models.Session
	events       []models.FunnelEvent
	abandonments map[int64]models.Abandonment
	leads        map[string]models.Lead
	tags         map[string][]string
	sales        map[string]models.Sale
	comments     []models.Comment
	nextID       int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		sessions:     make(map[string]models.Session),
		abandonments: make(map[int64]models.Abandonment),
		leads:        make(map[string]models.Lead),
		tags:         make(map[string][]string),
		sales:        make(map[string]models.Sale),
	}
}

func (m *MemStore) GetSession(ctx context.Context, token string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (m *MemStore) SaveSession(ctx context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Token] = *s
	return nil
}

func (m *MemStore) HasRecentEvent(ctx context.Context, sessionToken, eventType, step string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.SessionToken != sessionToken || e.EventType != eventType || e.CreatedAt.Before(since) {
			continue
		}
		if step != "" && e.Step != step {
			continue
		}
		return true, nil
	}
	return false, nil
}

func (m *MemStore) InsertEvent(ctx context.Context, e *models.FunnelEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *MemStore) HasValidLead(ctx context.Context, keys models.VisitorKeys) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if !l.IsValid {
			continue
		}
		if (keys.Fingerprint != "" && l.Fingerprint == keys.Fingerprint) ||
			(keys.SessionToken != "" && l.SessionToken == keys.SessionToken) ||
			(keys.TrafficID != "" && l.TrafficID == keys.TrafficID) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemStore) FindRecentAbandonment(ctx context.Context, fingerprint string, since time.Time) (*models.Abandonment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Abandonment
	for _, a := range m.abandonments {
		if a.Fingerprint != fingerprint || a.CreatedAt.Before(since) {
			continue
		}
		if found == nil || a.CreatedAt.After(found.CreatedAt) {
			a := a
			found = &a
		}
	}
	if found == nil {
		return nil, models.ErrNotFound
	}
	return found, nil
}

func (m *MemStore) InsertAbandonment(ctx context.Context, a *models.Abandonment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	m.abandonments[a.ID] = *a
	return nil
}

func (m *MemStore) UpdateAbandonment(ctx context.Context, a *models.Abandonment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.abandonments[a.ID]; !ok {
		return models.ErrNotFound
	}
	m.abandonments[a.ID] = *a
	return nil
}

func (m *MemStore) DeleteAbandonments(ctx context.Context, keys models.VisitorKeys) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.abandonments {
		if (keys.Fingerprint != "" && a.Fingerprint == keys.Fingerprint) ||
			(keys.SessionToken != "" && a.SessionToken == keys.SessionToken) ||
			(keys.TrafficID != "" && a.TrafficID == keys.TrafficID) {
			delete(m.abandonments, id)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) FindLeadBySession(ctx context.Context, sessionToken string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if l.SessionToken == sessionToken {
			l.Tags = append([]string{}, m.tags[l.ID]...)
			return &l, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MemStore) CreateLead(ctx context.Context, l *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.ID] = *l
	return nil
}

func (m *MemStore) UpdateLead(ctx context.Context, l *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leads[l.ID]; !ok {
		return models.ErrNotFound
	}
	m.leads[l.ID] = *l
	return nil
}

func (m *MemStore) AddTags(ctx context.Context, leadID string, tags []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tag := range tags {
		exists := false
		for _, t := range m.tags[leadID] {
			if t == tag {
				exists = true
				break
			}
		}
		if !exists {
			m.tags[leadID] = append(m.tags[leadID], tag)
		}
	}
	return nil
}

func (m *MemStore) GetLead(ctx context.Context, q models.LeadQuery) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leads {
		if (q.ID != "" && l.ID == q.ID) ||
			(q.Email != "" && l.Email == q.Email) ||
			(q.Phone != "" && l.Phone == q.Phone) {
			l.Tags = append([]string{}, m.tags[l.ID]...)
			return &l, nil
		}
	}
	return nil, models.ErrNotFound
}

// Events returns stored events in insertion order.
func (m *MemStore) Events() []models.FunnelEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.FunnelEvent{}, m.events...)
}

// Abandonments returns stored abandonments ordered by id.
func (m *MemStore) Abandonments() []models.Abandonment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Abandonment, 0, len(m.abandonments))
	for _, a := range m.abandonments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemStore) Session(token string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	return s, ok
}

func (m *MemStore) Leads() []models.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		l.Tags = append([]string{}, m.tags[l.ID]...)
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PutLead seeds a lead directly.
func (m *MemStore) PutLead(l models.Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.ID] = l
}

func (m *MemStore) GetSaleByOrder(ctx context.Context, orderID string) (*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

func (m *MemStore) UpsertSale(ctx context.Context, s *models.Sale) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.sales[s.OrderID]; ok {
		s.ID = prev.ID
		s.CreatedAt = prev.CreatedAt
	} else {
		m.nextID++
		s.ID = m.nextID
	}
	m.sales[s.OrderID] = *s
	return nil
}

func (m *MemStore) UpdateSaleStatus(ctx context.Context, orderID, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sales[orderID]
	if !ok {
		return models.ErrNotFound
	}
	s.Status = status
	m.sales[orderID] = s
	return nil
}

func (m *MemStore) InsertComment(ctx context.Context, c *models.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	m.comments = append(m.comments, *c)
	return nil
}

func (m *MemStore) Sales() []models.Sale {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Sale, 0, len(m.sales))
	for _, s := range m.sales {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemStore) Comments() []models.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Comment{}, m.comments...)
}
