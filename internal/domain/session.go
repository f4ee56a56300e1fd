package domain

import "time"

// Role is who the current browser session represents.
type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleAffiliate Role = "affiliate"
	RoleAdmin     Role = "admin"
)

// View is the screen the SPA should show after a load.
type View string

const (
	ViewLanding            View = "landing"
	ViewAdminDashboard     View = "adminDashboard"
	ViewAffiliateMenu      View = "affiliateMenu"
	ViewAffiliateDashboard View = "affiliateDashboard"
	ViewLeadGenerator      View = "leadGenerator"
)

// Screen is the affiliate sub-screen remembered across reloads.
type Screen string

const (
	ScreenCalculator    Screen = "calculator"
	ScreenLeadGenerator Screen = "leadGenerator"
)

// ParseScreen validates a sub-screen name.
func ParseScreen(s string) (Screen, error) {
	switch Screen(s) {
	case ScreenCalculator, ScreenLeadGenerator:
		return Screen(s), nil
	}
	return "", &ErrValidation{Field: "screen", Message: "tela desconhecida"}
}

// View maps a sub-screen to the view that renders it.
func (s Screen) View() View {
	switch s {
	case ScreenCalculator:
		return ViewAffiliateDashboard
	case ScreenLeadGenerator:
		return ViewLeadGenerator
	}
	return ViewAffiliateMenu
}

// Admin is an administrator profile. Authentication itself belongs to the
// identity provider.
type Admin struct {
	ID         string    `json:"id"`
	AuthUserID string    `json:"auth_user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
}

// AdminSession is what the session store keeps for a logged-in admin.
type AdminSession struct {
	Admin       Admin  `json:"admin"`
	AccessToken string `json:"-"`
}

// AffiliateSession is the credential-free affiliate snapshot kept in the
// session store.
type AffiliateSession struct {
	Affiliate Affiliate `json:"affiliate"`
}

// IdentityUser is the identity provider's view of an authenticated user.
type IdentityUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// IdentitySession is returned by a successful password sign-in.
type IdentitySession struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         IdentityUser `json:"user"`
}

// Actor is the authorized caller of a lead operation.
type Actor struct {
	Role        Role
	AffiliateID string
	AdminID     string
}

// Resolution is the outcome of the session resolver.
type Resolution struct {
	Role            Role       `json:"role"`
	View            View       `json:"view"`
	Admin           *Admin     `json:"admin,omitempty"`
	Affiliate       *Affiliate `json:"affiliate,omitempty"`
	PendingReferral string     `json:"pending_referral,omitempty"`
}

// ScreenRequest is the body for PUT /v1/session/screen.
type ScreenRequest struct {
	Screen string `json:"screen"`
}
