package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// LeadStatus is the position of a lead in the sales pipeline.
type LeadStatus int

const (
	LeadStatusNew LeadStatus = iota + 1
	LeadStatusToContact
	LeadStatusNegotiating
	LeadStatusClosed
	LeadStatusLost
)

// AllLeadStatuses lists every status in pipeline order.
var AllLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusToContact,
	LeadStatusNegotiating,
	LeadStatusClosed,
	LeadStatusLost,
}

type statusNames struct {
	name  string
	token string
	label string
}

var leadStatusNames = map[LeadStatus]statusNames{
	LeadStatusNew:         {"New", "novo", "Novo"},
	LeadStatusToContact:   {"ToContact", "contatar", "Contatar"},
	LeadStatusNegotiating: {"Negotiating", "em_negociacao", "Em Negociação"},
	LeadStatusClosed:      {"Closed", "fechado", "Fechado"},
	LeadStatusLost:        {"Lost", "perdido", "Perdido"},
}

// String returns the internal name.
func (s LeadStatus) String() string {
	if n, ok := leadStatusNames[s]; ok {
		return n.name
	}
	return fmt.Sprintf("LeadStatus(%d)", int(s))
}

// Encode returns the token stored in the backing store.
func (s LeadStatus) Encode() string {
	return leadStatusNames[s].token
}

// Label returns the display label.
func (s LeadStatus) Label() string {
	return leadStatusNames[s].label
}

// IsValid reports whether s is one of the five known statuses.
func (s LeadStatus) IsValid() bool {
	_, ok := leadStatusNames[s]
	return ok
}

// IsTerminal reports whether the lead has left the pipeline.
func (s LeadStatus) IsTerminal() bool {
	return s == LeadStatusClosed || s == LeadStatusLost
}

// DecodeLeadStatus maps a stored token back to its status. It accepts the
// exact tokens only.
func DecodeLeadStatus(token string) (LeadStatus, error) {
	for s, n := range leadStatusNames {
		if n.token == token {
			return s, nil
		}
	}
	return 0, &ErrValidation{Field: "status", Message: fmt.Sprintf("status desconhecido: %q", token)}
}

// ParseLeadStatus is the lenient form used for API input: a stored token, a
// display label or an internal name.
func ParseLeadStatus(v string) (LeadStatus, error) {
	v = strings.TrimSpace(v)
	for s, n := range leadStatusNames {
		if v == n.token || v == n.label || strings.EqualFold(v, n.name) {
			return s, nil
		}
	}
	return 0, &ErrValidation{Field: "status", Message: fmt.Sprintf("status desconhecido: %q", v)}
}

func (s LeadStatus) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("marshal invalid lead status %d", int(s))
	}
	return json.Marshal(s.Encode())
}

func (s *LeadStatus) UnmarshalJSON(b []byte) error {
	var token string
	if err := json.Unmarshal(b, &token); err != nil {
		return err
	}
	decoded, err := DecodeLeadStatus(token)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

// TransitionPolicy decides whether a lead may move between two statuses.
type TransitionPolicy interface {
	Allow(from, to LeadStatus) error
}

// FreeTransitions allows any status to move to any other, which lets staff
// correct mistakes by hand.
type FreeTransitions struct{}

func (FreeTransitions) Allow(from, to LeadStatus) error {
	if !to.IsValid() {
		return &ErrValidation{Field: "status", Message: "status inválido"}
	}
	return nil
}

// TerminalGuard refuses to move a lead out of Closed or Lost.
type TerminalGuard struct{}

func (TerminalGuard) Allow(from, to LeadStatus) error {
	if !to.IsValid() {
		return &ErrValidation{Field: "status", Message: "status inválido"}
	}
	if from.IsTerminal() && from != to {
		return &ErrTransitionNotAllowed{From: from, To: to}
	}
	return nil
}

// PolicyByName returns the policy configured by LEAD_STATUS_POLICY.
func PolicyByName(name string) (TransitionPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "free":
		return FreeTransitions{}, nil
	case "terminal":
		return TerminalGuard{}, nil
	default:
		return nil, fmt.Errorf("unknown lead status policy %q", name)
	}
}
