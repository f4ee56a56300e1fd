package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "validation shows only the message",
			err:        &domain.ErrValidation{Field: "client_phone", Message: "telefone é obrigatório"},
			wantStatus: http.StatusBadRequest,
			wantBody:   "telefone é obrigatório",
		},
		{
			name:       "wrapped validation",
			err:        fmt.Errorf("submit: %w", &domain.ErrValidation{Field: "bill_value", Message: "valor inválido"}),
			wantStatus: http.StatusBadRequest,
			wantBody:   "valor inválido",
		},
		{
			name:       "unauthorized",
			err:        &domain.ErrUnauthorized{Message: "Email ou senha incorretos"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Email ou senha incorretos",
		},
		{
			name:       "forbidden",
			err:        &domain.ErrForbidden{Action: "update lead"},
			wantStatus: http.StatusForbidden,
			wantBody:   "forbidden: update lead",
		},
		{
			name:       "not found",
			err:        &domain.ErrNotFound{Resource: "lead", ID: "l-1"},
			wantStatus: http.StatusNotFound,
			wantBody:   "lead not found: l-1",
		},
		{
			name:       "conflict",
			err:        &domain.ErrConflict{Message: "email já cadastrado"},
			wantStatus: http.StatusConflict,
			wantBody:   "email já cadastrado",
		},
		{
			name:       "file too large",
			err:        &domain.ErrFileTooLarge{Size: 11 << 20, Limit: 10 << 20},
			wantStatus: http.StatusRequestEntityTooLarge,
			wantBody:   "Arquivo muito grande! Tamanho máximo permitido: 10MB",
		},
		{
			name:       "unsupported file",
			err:        &domain.ErrUnsupportedFile{ContentType: "text/plain"},
			wantStatus: http.StatusUnsupportedMediaType,
			wantBody:   "Tipo de arquivo não permitido! Use PDF, JPG ou PNG.",
		},
		{
			name:       "transition refused",
			err:        &domain.ErrTransitionNotAllowed{From: domain.LeadStatusClosed, To: domain.LeadStatusNew},
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   "status transition not allowed: Fechado -> Novo",
		},
		{
			name:       "circuit open",
			err:        &domain.ErrCircuitOpen{Service: "supabase"},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "circuit breaker open for service: supabase",
		},
		{
			name:       "external shows the collaborator message",
			err:        &domain.ErrExternalService{Service: "storage", Err: errors.New("The object exceeded the maximum allowed size")},
			wantStatus: http.StatusBadGateway,
			wantBody:   "The object exceeded the maximum allowed size",
		},
		{
			name:       "anything else is hidden",
			err:        errors.New("pq: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tt.err, zap.NewNop())

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantBody, body.Error)
		})
	}
}

func TestParseStatusParam(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/admin/leads", nil)
	s, err := parseStatusParam(r)
	require.NoError(t, err)
	assert.Zero(t, s)

	r = httptest.NewRequest(http.MethodGet, "/v1/admin/leads?status=fechado", nil)
	s, err = parseStatusParam(r)
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStatusClosed, s)

	r = httptest.NewRequest(http.MethodGet, "/v1/admin/leads?status=arquivado", nil)
	_, err = parseStatusParam(r)
	var v *domain.ErrValidation
	assert.ErrorAs(t, err, &v)
}
