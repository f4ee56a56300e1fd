package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"testing"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- request helpers ---

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) postJSON(t *testing.T, path string, v any) *http.Response {
	t.Helper()
	resp, err := e.client.Post(e.server.URL+path, "application/json", jsonBody(t, v))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) send(t *testing.T, method, path string, v any) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.server.URL+path, jsonBody(t, v))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dst))
}

func loginAffiliate(t *testing.T, env *testEnv) {
	t.Helper()
	resp := env.postJSON(t, "/v1/auth/affiliate/login", domain.LoginRequest{Email: "ana@example.com", Password: "segredo123"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func loginAdmin(t *testing.T, env *testEnv) {
	t.Helper()
	resp := env.postJSON(t, "/v1/auth/admin/login", domain.LoginRequest{Email: "admin@example.com", Password: "admin-pw"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

type leadForm struct {
	bill, name, phone string
	fileName          string
	fileBody          []byte
}

func (f leadForm) encode(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("bill_value", f.bill))
	require.NoError(t, mw.WriteField("client_name", f.name))
	require.NoError(t, mw.WriteField("client_phone", f.phone))
	if f.fileName != "" {
		part, err := mw.CreateFormFile("energy_bill", f.fileName)
		require.NoError(t, err)
		_, err = part.Write(f.fileBody)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func (e *testEnv) submitLead(t *testing.T, f leadForm) *http.Response {
	t.Helper()
	body, contentType := f.encode(t)
	resp, err := e.client.Post(e.server.URL+"/v1/leads", contentType, body)
	require.NoError(t, err)
	return resp
}

var validForm = leadForm{
	bill:     "350,00",
	name:     "Maria Silva",
	phone:    "(11) 91234-5678",
	fileName: "conta.pdf",
	fileBody: []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"),
}

// ============================================================
// Session
// ============================================================

func TestSession_AnonymousGetsLanding(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/v1/session")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var res domain.Resolution
	decodeInto(t, resp, &res)
	assert.Equal(t, domain.RoleAnonymous, res.Role)
	assert.Equal(t, domain.ViewLanding, res.View)
	assert.Empty(t, res.PendingReferral)
}

func TestSession_CapturesReferralAcrossRequests(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/v1/session?ref=ANA01")
	resp.Body.Close()

	// the cookie jar carries the session id; no ref this time
	var res domain.Resolution
	decodeInto(t, env.get(t, "/v1/session"), &res)
	assert.Equal(t, "ANA01", res.PendingReferral)
}

func TestSession_AffiliateLoginThenResolve(t *testing.T) {
	env := newTestEnv(t)
	loginAffiliate(t, env)

	var res domain.Resolution
	decodeInto(t, env.get(t, "/v1/session"), &res)
	assert.Equal(t, domain.RoleAffiliate, res.Role)
	assert.Equal(t, domain.ViewAffiliateMenu, res.View)
	require.NotNil(t, res.Affiliate)
	assert.Equal(t, "aff-ana", res.Affiliate.ID)

	var screen domain.ViewResponse
	decodeInto(t, env.send(t, http.MethodPut, "/v1/session/screen", domain.ScreenRequest{Screen: "leadGenerator"}), &screen)
	assert.Equal(t, domain.ViewLeadGenerator, screen.View)

	decodeInto(t, env.get(t, "/v1/session"), &res)
	assert.Equal(t, domain.ViewLeadGenerator, res.View)

	var out domain.ViewResponse
	decodeInto(t, env.postJSON(t, "/v1/session/logout", struct{}{}), &out)
	assert.Equal(t, domain.ViewLanding, out.View)

	decodeInto(t, env.get(t, "/v1/session"), &res)
	assert.Equal(t, domain.RoleAnonymous, res.Role)
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/v1/auth/affiliate/login", domain.LoginRequest{Email: "ana@example.com", Password: "errada"})
	var body map[string]string
	decodeInto(t, resp, &body)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Email ou senha incorretos", body["error"])
}

// ============================================================
// Role gates
// ============================================================

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name   string
		login  func(*testing.T, *testEnv)
		path   string
		expect int
	}{
		{name: "anonymous affiliate area", path: "/v1/affiliate/leads", expect: http.StatusUnauthorized},
		{name: "anonymous admin area", path: "/v1/admin/leads", expect: http.StatusUnauthorized},
		{name: "affiliate in admin area", login: loginAffiliate, path: "/v1/admin/leads", expect: http.StatusForbidden},
		{name: "admin in affiliate area", login: loginAdmin, path: "/v1/affiliate/leads", expect: http.StatusForbidden},
		{name: "affiliate own area", login: loginAffiliate, path: "/v1/affiliate/leads", expect: http.StatusOK},
		{name: "admin own area", login: loginAdmin, path: "/v1/admin/dashboard", expect: http.StatusOK},
		{name: "ranking for affiliate", login: loginAffiliate, path: "/v1/affiliates/ranking", expect: http.StatusOK},
		{name: "ranking for admin", login: loginAdmin, path: "/v1/affiliates/ranking", expect: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.login != nil {
				tt.login(t, env)
			}
			resp := env.get(t, tt.path)
			resp.Body.Close()
			assert.Equal(t, tt.expect, resp.StatusCode)
		})
	}
}

// ============================================================
// Lead form
// ============================================================

func TestSubmitLead_AttributedToReferrer(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/v1/session?ref=ANA01").Body.Close()

	resp := env.submitLead(t, validForm)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out domain.SubmitResponse
	decodeInto(t, resp, &out)
	require.NotNil(t, out.Lead)
	require.NotNil(t, out.Lead.AffiliateID)
	assert.Equal(t, "aff-ana", *out.Lead.AffiliateID)
	assert.True(t, decimal.RequireFromString("35").Equal(out.Lead.CommissionAmount), out.Lead.CommissionAmount.String())
	assert.True(t, decimal.RequireFromString("52.5").Equal(out.Lead.MonthlyEconomy), out.Lead.MonthlyEconomy.String())
	assert.Equal(t, domain.LeadStatusNew, out.Lead.Status)
	assert.Equal(t, "11912345678", out.Lead.ClientPhone)
	require.NotNil(t, out.Affiliate)
	assert.Equal(t, "Ana Souza", out.Affiliate.Name)
	assert.Equal(t, 1, env.store.uploadCount())

	// the referral was consumed
	var res domain.Resolution
	decodeInto(t, env.get(t, "/v1/session"), &res)
	assert.Empty(t, res.PendingReferral)
}

func TestSubmitLead_DefaultRateWithoutReferral(t *testing.T) {
	env := newTestEnv(t)

	resp := env.submitLead(t, validForm)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out domain.SubmitResponse
	decodeInto(t, resp, &out)
	assert.Nil(t, out.Lead.AffiliateID)
	assert.True(t, decimal.RequireFromString("140").Equal(out.Lead.CommissionAmount), out.Lead.CommissionAmount.String())
	assert.Nil(t, out.Affiliate)
}

func TestSubmitLead_Rejections(t *testing.T) {
	noFile := validForm
	noFile.fileName = ""

	badPhone := validForm
	badPhone.phone = "1234"

	textFile := validForm
	textFile.fileName = "conta.txt"
	textFile.fileBody = []byte("apenas texto simples")

	tests := []struct {
		name   string
		form   leadForm
		expect int
	}{
		{name: "missing file", form: noFile, expect: http.StatusBadRequest},
		{name: "invalid phone", form: badPhone, expect: http.StatusBadRequest},
		{name: "unsupported file", form: textFile, expect: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			resp := env.submitLead(t, tt.form)
			resp.Body.Close()
			assert.Equal(t, tt.expect, resp.StatusCode)
			assert.Zero(t, env.store.uploadCount())
		})
	}
}

func TestSubmitLead_NotMultipart(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, "/v1/leads", map[string]string{"bill_value": "350,00"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ============================================================
// Lead updates
// ============================================================

func TestAffiliatePatch_OwnLeadOnly(t *testing.T) {
	env := newTestEnv(t)
	env.get(t, "/v1/session?ref=ANA01").Body.Close()

	var submitted domain.SubmitResponse
	decodeInto(t, env.submitLead(t, validForm), &submitted)
	leadID := submitted.Lead.ID

	loginAffiliate(t, env)

	resp := env.send(t, http.MethodPatch, "/v1/affiliate/leads/"+leadID, domain.UpdateLeadRequest{Status: "em_negociacao"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated domain.Lead
	decodeInto(t, resp, &updated)
	assert.Equal(t, domain.LeadStatusNegotiating, updated.Status)
	assert.True(t, decimal.RequireFromString("35").Equal(updated.CommissionAmount))

	resp = env.send(t, http.MethodPatch, "/v1/affiliate/leads/lead-bob", domain.UpdateLeadRequest{Status: "fechado"})
	resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, domain.LeadStatusNew, env.store.status("lead-bob"))

	resp = env.send(t, http.MethodPatch, "/v1/affiliate/leads/"+leadID, domain.UpdateLeadRequest{Status: "arquivado"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var list domain.ListResponse[domain.Lead]
	decodeInto(t, env.get(t, "/v1/affiliate/leads"), &list)
	assert.Equal(t, 1, list.Total)
}

func TestAdminPatch_AnyLead(t *testing.T) {
	env := newTestEnv(t)
	loginAdmin(t, env)

	resp := env.send(t, http.MethodPatch, "/v1/admin/leads/lead-bob", domain.UpdateLeadRequest{Status: "Fechado"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, domain.LeadStatusClosed, env.store.status("lead-bob"))

	resp = env.send(t, http.MethodPatch, "/v1/admin/leads/missing", domain.UpdateLeadRequest{Status: "Fechado"})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ============================================================
// Admin affiliate management
// ============================================================

func TestAdminAffiliates_CreateAndConflict(t *testing.T) {
	env := newTestEnv(t)
	loginAdmin(t, env)

	req := domain.CreateAffiliateRequest{Name: "Carla", Email: "Carla@Example.com", Password: "segredo123"}
	resp := env.postJSON(t, "/v1/admin/affiliates", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Affiliate
	decodeInto(t, resp, &created)
	assert.Equal(t, "carla@example.com", created.Email)
	assert.True(t, domain.DefaultCommissionRate.Equal(created.CommissionRate))

	resp = env.postJSON(t, "/v1/admin/affiliates", req)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.send(t, http.MethodDelete, "/v1/admin/affiliates/"+created.ID, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
