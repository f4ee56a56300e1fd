// Package session keeps per-browser state on the server side. A signed
// cookie carries only the session id.
package session

import (
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/cache"
	"github.com/boddenberg/solar-leads-bfa/internal/port"
)

var _ port.SessionStore = (*MemoryStore)(nil)

// MemoryStore is an in-process SessionStore. Each logical key lives in its
// own cache so its lifetime and clearing are independent.
type MemoryStore struct {
	admins     *cache.InMemory[domain.AdminSession]
	affiliates *cache.InMemory[domain.AffiliateSession]
	screens    *cache.InMemory[domain.Screen]
	referrals  *cache.InMemory[string]
}

// NewMemoryStore creates a store. Login markers and sub-screens expire after
// sessionTTL; pending referral codes after referralTTL.
func NewMemoryStore(sessionTTL, referralTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		admins:     cache.New[domain.AdminSession](sessionTTL),
		affiliates: cache.New[domain.AffiliateSession](sessionTTL),
		screens:    cache.New[domain.Screen](sessionTTL),
		referrals:  cache.New[string](referralTTL),
	}
}

// Close stops the cleanup goroutines.
func (s *MemoryStore) Close() {
	s.admins.Close()
	s.affiliates.Close()
	s.screens.Close()
	s.referrals.Close()
}

func (s *MemoryStore) AdminSession(sid string) (*domain.AdminSession, bool) {
	v, ok := s.admins.Get(sid)
	if !ok {
		return nil, false
	}
	return &v, true
}

func (s *MemoryStore) SetAdminSession(sid string, a *domain.AdminSession) {
	s.admins.Set(sid, *a)
}

func (s *MemoryStore) ClearAdminSession(sid string) { s.admins.Delete(sid) }

func (s *MemoryStore) AffiliateSession(sid string) (*domain.AffiliateSession, bool) {
	v, ok := s.affiliates.Get(sid)
	if !ok {
		return nil, false
	}
	return &v, true
}

func (s *MemoryStore) SetAffiliateSession(sid string, a *domain.AffiliateSession) {
	s.affiliates.Set(sid, *a)
}

func (s *MemoryStore) ClearAffiliateSession(sid string) { s.affiliates.Delete(sid) }

func (s *MemoryStore) Screen(sid string) (domain.Screen, bool) {
	return s.screens.Get(sid)
}

func (s *MemoryStore) SetScreen(sid string, screen domain.Screen) { s.screens.Set(sid, screen) }

func (s *MemoryStore) ClearScreen(sid string) { s.screens.Delete(sid) }

func (s *MemoryStore) PendingReferral(sid string) (string, bool) {
	code, ok := s.referrals.Get(sid)
	if !ok || code == "" {
		return "", false
	}
	return code, true
}

func (s *MemoryStore) SetPendingReferral(sid, code string) { s.referrals.Set(sid, code) }

func (s *MemoryStore) ClearPendingReferral(sid string) { s.referrals.Delete(sid) }
