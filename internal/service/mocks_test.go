package service_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/session"

	"github.com/shopspring/decimal"
)

// --- Mocks ---

type mockLeadStore struct {
	mu      sync.Mutex
	leads   map[string]domain.Lead
	created []*domain.NewLead
	updates []domain.LeadUpdate
	lists   []domain.LeadFilter
	metrics []domain.LeadMetricRow

	createErr  error
	getErr     error
	listErr    error
	updateErr  error
	metricsErr error
}

func newMockLeadStore(leads ...domain.Lead) *mockLeadStore {
	m := &mockLeadStore{leads: make(map[string]domain.Lead)}
	for _, l := range leads {
		m.leads[l.ID] = l
	}
	return m
}

func (m *mockLeadStore) CreateLead(_ context.Context, in *domain.NewLead) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, in)
	if m.createErr != nil {
		return nil, m.createErr
	}
	l := domain.Lead{
		ID:               in.ID,
		BillValue:        in.BillValue,
		MonthlyEconomy:   in.MonthlyEconomy,
		YearlyEconomy:    in.YearlyEconomy,
		Status:           in.Status,
		AffiliateID:      in.AffiliateID,
		ClientName:       in.ClientName,
		ClientPhone:      in.ClientPhone,
		EnergyBillFile:   in.EnergyBillFile,
		CommissionAmount: in.CommissionAmount,
		CommissionRate:   in.CommissionRate,
		CreatedAt:        time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	m.leads[l.ID] = l
	return &l, nil
}

func (m *mockLeadStore) GetLead(_ context.Context, leadID string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	l, ok := m.leads[leadID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}
	return &l, nil
}

func (m *mockLeadStore) ListLeads(_ context.Context, f domain.LeadFilter) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = append(m.lists, f)
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.Lead{}
	for _, l := range m.leads {
		if f.AffiliateID != "" && !l.OwnedBy(f.AffiliateID) {
			continue
		}
		if f.Status != 0 && l.Status != f.Status {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockLeadStore) UpdateLead(_ context.Context, leadID string, u domain.LeadUpdate) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, u)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	l, ok := m.leads[leadID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: leadID}
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.ClientName != nil {
		l.ClientName = *u.ClientName
	}
	m.leads[leadID] = l
	return &l, nil
}

func (m *mockLeadStore) LeadMetrics(_ context.Context, _ string) ([]domain.LeadMetricRow, error) {
	return m.metrics, m.metricsErr
}

type mockAffiliateStore struct {
	mu         sync.Mutex
	byCode     map[string]*domain.Affiliate
	byID       map[string]*domain.Affiliate
	creds      map[string]*domain.AffiliateCredentials
	top        []domain.Affiliate
	count      int
	created    []*domain.NewAffiliate
	updated    []domain.AffiliateUpdate
	deleted    []string
	lookups    int
	topLimit   int
	codeErr    error
	createErr  error
	updateErr  error
	countErr   error
	credErr    error
	getByIDErr error
}

func newMockAffiliateStore(affiliates ...*domain.Affiliate) *mockAffiliateStore {
	m := &mockAffiliateStore{
		byCode: make(map[string]*domain.Affiliate),
		byID:   make(map[string]*domain.Affiliate),
		creds:  make(map[string]*domain.AffiliateCredentials),
	}
	for _, a := range affiliates {
		m.byCode[a.AffiliateCode] = a
		m.byID[a.ID] = a
	}
	return m
}

func (m *mockAffiliateStore) GetAffiliateByCode(_ context.Context, code string) (*domain.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.codeErr != nil {
		return nil, m.codeErr
	}
	a, ok := m.byCode[code]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "affiliate", ID: code}
	}
	cp := *a
	return &cp, nil
}

func (m *mockAffiliateStore) GetAffiliateByID(_ context.Context, id string) (*domain.Affiliate, error) {
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "affiliate", ID: id}
	}
	cp := *a
	return &cp, nil
}

func (m *mockAffiliateStore) GetAffiliateCredentials(_ context.Context, email string) (*domain.AffiliateCredentials, error) {
	if m.credErr != nil {
		return nil, m.credErr
	}
	return m.creds[email], nil
}

func (m *mockAffiliateStore) ListAffiliates(_ context.Context) ([]domain.Affiliate, error) {
	out := make([]domain.Affiliate, 0, len(m.byID))
	for _, a := range m.byID {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockAffiliateStore) TopAffiliates(_ context.Context, limit int) ([]domain.Affiliate, error) {
	m.topLimit = limit
	return m.top, nil
}

func (m *mockAffiliateStore) CountAffiliates(_ context.Context) (int, error) {
	return m.count, m.countErr
}

func (m *mockAffiliateStore) CreateAffiliate(_ context.Context, a *domain.NewAffiliate) (*domain.Affiliate, error) {
	m.created = append(m.created, a)
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &domain.Affiliate{
		ID:             "aff-new",
		AffiliateCode:  "NEW001",
		Name:           a.Name,
		Email:          a.Email,
		Phone:          a.Phone,
		CommissionRate: a.CommissionRate,
	}, nil
}

func (m *mockAffiliateStore) UpdateAffiliate(_ context.Context, id string, u domain.AffiliateUpdate) (*domain.Affiliate, error) {
	m.updated = append(m.updated, u)
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	a, ok := m.byID[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "affiliate", ID: id}
	}
	cp := *a
	if u.Name != nil {
		cp.Name = *u.Name
	}
	return &cp, nil
}

func (m *mockAffiliateStore) DeleteAffiliate(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return &domain.ErrNotFound{Resource: "affiliate", ID: id}
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockDocumentStore struct {
	uploads   []string
	types     []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (m *mockDocumentStore) Upload(_ context.Context, key, contentType string, _ []byte) (string, error) {
	m.uploads = append(m.uploads, key)
	m.types = append(m.types, contentType)
	if m.uploadErr != nil {
		return "", m.uploadErr
	}
	return "https://project.supabase.co/storage/v1/object/public/energy-bills/" + key, nil
}

func (m *mockDocumentStore) Delete(_ context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	return m.deleteErr
}

type mockIdentity struct {
	session    *domain.IdentitySession
	signInErr  error
	users      map[string]*domain.IdentityUser
	signedOut  []string
	signOutErr error
}

func (m *mockIdentity) SignInWithPassword(_ context.Context, _, _ string) (*domain.IdentitySession, error) {
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return m.session, nil
}

func (m *mockIdentity) GetUser(_ context.Context, token string) (*domain.IdentityUser, error) {
	u, ok := m.users[token]
	if !ok {
		return nil, &domain.ErrUnauthorized{Message: "invalid JWT"}
	}
	return u, nil
}

func (m *mockIdentity) SignOut(_ context.Context, token string) error {
	m.signedOut = append(m.signedOut, token)
	return m.signOutErr
}

type mockAdminStore struct {
	admins map[string]*domain.Admin
}

func (m *mockAdminStore) GetAdminByAuthUserID(_ context.Context, authUserID string) (*domain.Admin, error) {
	a, ok := m.admins[authUserID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "admin", ID: authUserID}
	}
	cp := *a
	return &cp, nil
}

// --- Helpers ---

func newSessionStore(t *testing.T) *session.MemoryStore {
	t.Helper()
	s := session.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(s.Close)
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr[T any](v T) *T {
	return &v
}

var anaAffiliate = &domain.Affiliate{
	ID:             "aff-ana",
	AffiliateCode:  "ANA01",
	Name:           "Ana Souza",
	Email:          "ana@example.com",
	Phone:          "(11) 98765-4321",
	CommissionRate: dec("10.00"),
}
