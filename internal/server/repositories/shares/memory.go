package shares

import (
	"context"
	"sync"
	"time"

	"github.com/snipvault/snipvault/internal/common"
	"github.com/snipvault/snipvault/internal/server/models"
)

// MemoryRepository is an in-process Repository guarded by one mutex, so the
// conditional updates have the same atomicity as the SQL statements. Used
// by tests and single-node runs without a database.
type MemoryRepository struct {
	mu      sync.Mutex
	byID    map[string]*models.ShareLink
	byToken map[string]string // token hash -> id
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.ShareLink),
		byToken: make(map[string]string),
	}
}

func cloneLink(l *models.ShareLink) *models.ShareLink {
	c := *l
	c.Rules.AllowedEmails = append([]string(nil), l.Rules.AllowedEmails...)
	c.Rules.AllowedDomains = append([]string(nil), l.Rules.AllowedDomains...)
	if l.Limits.ExpiresAt != nil {
		t := *l.Limits.ExpiresAt
		c.Limits.ExpiresAt = &t
	}
	if l.Limits.MaxViews != nil {
		n := *l.Limits.MaxViews
		c.Limits.MaxViews = &n
	}
	if l.Audit.LastAccessedAt != nil {
		t := *l.Audit.LastAccessedAt
		c.Audit.LastAccessedAt = &t
	}
	return &c
}

func (r *MemoryRepository) Create(_ context.Context, link *models.ShareLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[link.ID] = cloneLink(link)
	r.byToken[link.TokenHash] = link.ID
	return nil
}

func (r *MemoryRepository) GetByTokenHash(_ context.Context, tokenHash string) (*models.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byToken[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneLink(r.byID[id]), nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.ShareLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	link, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneLink(link), nil
}

func (r *MemoryRepository) ConsumeView(_ context.Context, id string, now time.Time, ip, userAgent string) (int, models.ShareState, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byID[id]
	if !ok || link.State != models.ShareStateActive || link.ViewsExhausted() {
		return 0, "", false, nil
	}

	link.Limits.CurrentViews++
	if link.Limits.MaxViews != nil && link.Limits.CurrentViews >= *link.Limits.MaxViews {
		link.State = models.ShareStateExhausted
	}
	t := now
	link.Audit.LastAccessedAt = &t
	link.Audit.LastIP = ip
	link.Audit.LastUserAgent = userAgent

	return link.Limits.CurrentViews, link.State, true, nil
}

func (r *MemoryRepository) TransitionState(_ context.Context, id string, to models.ShareState) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byID[id]
	if !ok || link.State != models.ShareStateActive {
		return false, nil
	}
	link.State = to
	return true, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, id string) error {
	_, err := r.TransitionState(ctx, id, models.ShareStateRevoked)
	return err
}

func (r *MemoryRepository) SweepInvalid(_ context.Context, now time.Time) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired, exhausted int64
	for _, link := range r.byID {
		if link.State != models.ShareStateActive {
			continue
		}
		switch {
		case link.ExpiredAt(now):
			link.State = models.ShareStateExpired
			expired++
		case link.ViewsExhausted():
			link.State = models.ShareStateExhausted
			exhausted++
		}
	}
	return expired, exhausted, nil
}
