package service_test

import (
	"context"
	"testing"

	"github.com/boddenberg/solar-leads-bfa/internal/domain"
	"github.com/boddenberg/solar-leads-bfa/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAdminLogin(t *testing.T) {
	identitySession := &domain.IdentitySession{
		AccessToken: "tok-1",
		User:        domain.IdentityUser{ID: "auth-1", Email: "admin@example.com"},
	}

	tests := []struct {
		name      string
		identity  *mockIdentity
		admins    map[string]*domain.Admin
		wantErr   any
		wantStore bool
	}{
		{
			name:     "active admin",
			identity: &mockIdentity{session: identitySession},
			admins: map[string]*domain.Admin{
				"auth-1": {ID: "adm-1", AuthUserID: "auth-1", IsActive: true},
			},
			wantStore: true,
		},
		{
			name:     "bad credentials",
			identity: &mockIdentity{signInErr: &domain.ErrUnauthorized{Message: "Invalid login credentials"}},
			wantErr:  new(*domain.ErrUnauthorized),
		},
		{
			name:     "not an admin",
			identity: &mockIdentity{session: identitySession},
			admins:   map[string]*domain.Admin{},
			wantErr:  new(*domain.ErrForbidden),
		},
		{
			name:     "inactive admin",
			identity: &mockIdentity{session: identitySession},
			admins: map[string]*domain.Admin{
				"auth-1": {ID: "adm-1", AuthUserID: "auth-1", IsActive: false},
			},
			wantErr: new(*domain.ErrForbidden),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := newSessionStore(t)
			svc := service.NewAdminAuthService(tt.identity, &mockAdminStore{admins: tt.admins}, sessions, zap.NewNop())

			admin, err := svc.Login(context.Background(), "sid", &domain.LoginRequest{Email: "admin@example.com", Password: "pw"})

			stored, ok := sessions.AdminSession("sid")
			assert.Equal(t, tt.wantStore, ok)
			if tt.wantErr != nil {
				require.ErrorAs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "adm-1", admin.ID)
			assert.Equal(t, "tok-1", stored.AccessToken)
		})
	}
}

func TestAdminLogin_RequiresCredentials(t *testing.T) {
	svc := service.NewAdminAuthService(&mockIdentity{}, &mockAdminStore{}, newSessionStore(t), zap.NewNop())

	_, err := svc.Login(context.Background(), "sid", &domain.LoginRequest{Email: "admin@example.com"})
	var ve *domain.ErrValidation
	assert.ErrorAs(t, err, &ve)
}
