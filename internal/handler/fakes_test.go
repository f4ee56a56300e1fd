package handler_test

import (
	"context"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/handler"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/cache"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/observability"
	"github.com/boddenberg/solar-leads-bfa/internal/infra/session"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// --- In-memory ports ---

type memStore struct {
	mu         sync.Mutex
	leads      map[string]domain.Lead
	affiliates map[string]domain.Affiliate
	hashes     map[string]string
	uploads    map[string][]byte
}

func newMemStore(t *testing.T) *memStore {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("segredo123"), bcrypt.MinCost)
	require.NoError(t, err)

	ana := domain.Affiliate{
		ID:             "aff-ana",
		AffiliateCode:  "ANA01",
		Name:           "Ana Souza",
		Email:          "ana@example.com",
		Phone:          "11987654321",
		CommissionRate: decimal.RequireFromString("10.00"),
	}
	bob := domain.Affiliate{ID: "aff-bob", AffiliateCode: "BOB02", Name: "Bob", Email: "bob@example.com", CommissionRate: decimal.RequireFromString("40.00")}
	bobID := bob.ID

	return &memStore{
		leads: map[string]domain.Lead{
			"lead-bob": {ID: "lead-bob", Status: domain.LeadStatusNew, AffiliateID: &bobID, EnergyBillFile: "x"},
		},
		affiliates: map[string]domain.Affiliate{ana.ID: ana, bob.ID: bob},
		hashes:     map[string]string{ana.Email: string(hash)},
		uploads:    map[string][]byte{},
	}
}

func (m *memStore) CreateLead(_ context.Context, in *domain.NewLead) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := domain.Lead{
		ID: in.ID, BillValue: in.BillValue, MonthlyEconomy: in.MonthlyEconomy, YearlyEconomy: in.YearlyEconomy,
		Status: in.Status, AffiliateID: in.AffiliateID, ClientName: in.ClientName, ClientPhone: in.ClientPhone,
		EnergyBillFile: in.EnergyBillFile, CommissionAmount: in.CommissionAmount, CommissionRate: in.CommissionRate,
		CreatedAt: time.Now().UTC(),
	}
	m.leads[l.ID] = l
	return &l, nil
}

func (m *memStore) GetLead(_ context.Context, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return &l, nil
}

func (m *memStore) ListLeads(_ context.Context, f domain.LeadFilter) ([]domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	return out, nil
}

func (m *memStore) UpdateLead(_ context.Context, id string, u domain.LeadUpdate) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	if u.Status != nil {
		l.Status = *u.Status
	}
	if u.ClientName != nil {
		l.ClientName = *u.ClientName
	}
	m.leads[id] = l
	return &l, nil
}

func (m *memStore) LeadMetrics(_ context.Context, _ string) ([]domain.LeadMetricRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]domain.LeadMetricRow, 0, len(m.leads))
	for _, l := range m.leads {
		rows = append(rows, domain.LeadMetricRow{Status: l.Status, CommissionAmount: l.CommissionAmount})
	}
	return rows, nil
}

func (m *memStore) GetAffiliateByCode(_ context.Context, code string) (*domain.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.affiliates {
		if a.AffiliateCode == code {
			return &a, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "affiliate", ID: code}
}

func (m *memStore) GetAffiliateByID(_ context.Context, id string) (*domain.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.affiliates[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "affiliate", ID: id}
	}
	return &a, nil
}

func (m *memStore) GetAffiliateCredentials(_ context.Context, email string) (*domain.AffiliateCredentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[email]
	if !ok {
		return nil, nil
	}
	for _, a := range m.affiliates {
		if a.Email == email {
			return &domain.AffiliateCredentials{Affiliate: a, PasswordHash: hash}, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListAffiliates(_ context.Context) ([]domain.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Affiliate, 0, len(m.affiliates))
	for _, a := range m.affiliates {
		out = append(out, a)
	}
	return out, nil
}

func (m *memStore) TopAffiliates(ctx context.Context, _ int) ([]domain.Affiliate, error) {
	return m.ListAffiliates(ctx)
}

func (m *memStore) CountAffiliates(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.affiliates), nil
}

func (m *memStore) CreateAffiliate(_ context.Context, a *domain.NewAffiliate) (*domain.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.affiliates {
		if existing.Email == a.Email {
			return nil, &domain.ErrConflict{Message: "email já cadastrado"}
		}
	}
	created := domain.Affiliate{ID: "aff-new", AffiliateCode: "NEW03", Name: a.Name, Email: a.Email, CommissionRate: a.CommissionRate}
	m.affiliates[created.ID] = created
	return &created, nil
}

func (m *memStore) UpdateAffiliate(_ context.Context, id string, u domain.AffiliateUpdate) (*domain.Affiliate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.affiliates[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "affiliate", ID: id}
	}
	if u.Name != nil {
		a.Name = *u.Name
	}
	m.affiliates[id] = a
	return &a, nil
}

func (m *memStore) DeleteAffiliate(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.affiliates[id]; !ok {
		return &domain.ErrNotFound{Resource: "affiliate", ID: id}
	}
	delete(m.affiliates, id)
	return nil
}

func (m *memStore) Upload(_ context.Context, key, _ string, body []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[key] = body
	return "https://project.supabase.co/storage/v1/object/public/energy-bills/" + key, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.uploads, key)
	return nil
}

// identity accepts one admin: admin@example.com / admin-pw.
type identity struct{}

func (identity) SignInWithPassword(_ context.Context, email, password string) (*domain.IdentitySession, error) {
	if email != "admin@example.com" || password != "admin-pw" {
		return nil, &domain.ErrUnauthorized{Message: "Invalid login credentials"}
	}
	return &domain.IdentitySession{AccessToken: "admin-token", User: domain.IdentityUser{ID: "auth-1", Email: email}}, nil
}

func (identity) GetUser(_ context.Context, token string) (*domain.IdentityUser, error) {
	if token != "admin-token" {
		return nil, &domain.ErrUnauthorized{Message: "invalid JWT"}
	}
	return &domain.IdentityUser{ID: "auth-1", Email: "admin@example.com"}, nil
}

func (identity) SignOut(context.Context, string) error { return nil }

func (identity) GetAdminByAuthUserID(_ context.Context, authUserID string) (*domain.Admin, error) {
	if authUserID != "auth-1" {
		return nil, &domain.ErrNotFound{Resource: "admin", ID: authUserID}
	}
	return &domain.Admin{ID: "adm-1", AuthUserID: "auth-1", Email: "admin@example.com", IsActive: true}, nil
}

// --- Wiring ---

const testMaxUpload = 1 << 20

type testEnv struct {
	server  *httptest.Server
	client  *http.Client
	store   *memStore
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := newMemStore(t)

	sessions := session.NewMemoryStore(time.Hour, time.Hour)
	t.Cleanup(sessions.Close)
	mirror := cache.New[domain.Lead](time.Minute)
	t.Cleanup(mirror.Close)

	rate := domain.DefaultCommissionRate
	referrals := service.NewReferralService(sessions, store, rate, metrics, logger)
	svcs := handler.Services{
		Sessions:   service.NewSessionService(sessions, referrals, identity{}, identity{}, logger),
		Pipeline:   service.NewLeadPipeline(referrals, store, store, service.PipelineConfig{MaxUploadBytes: testMaxUpload}, metrics, logger),
		Leads:      service.NewLeadService(store, domain.FreeTransitions{}, mirror, metrics, logger),
		Affiliates: service.NewAffiliateService(store, sessions, rate, logger).WithHashCost(bcrypt.MinCost),
		AdminAuth:  service.NewAdminAuthService(identity{}, identity{}, sessions, logger),
		Dashboards: service.NewDashboardService(store, store, metrics, logger),
	}
	codec := session.NewCodec("0123456789abcdef0123456789abcdef", time.Hour, false)
	router := handler.NewRouter(svcs, codec, handler.RouterConfig{
		CORSAllowedOrigins: []string{"*"},
		MaxUploadBytes:     testMaxUpload,
	}, metrics, logger)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testEnv{
		server:  srv,
		client:  &http.Client{Jar: jar},
		store:   store,
		metrics: metrics,
	}
}

func (m *memStore) status(leadID string) domain.LeadStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.leads[leadID].Status
}

func (m *memStore) uploadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.uploads)
}
