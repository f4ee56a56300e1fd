package domain

import "fmt"

// Error types for consistent error handling across the BFA.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
// The wrapped error keeps the collaborator's raw message so it can be
// shown to the user.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrFileTooLarge indicates an uploaded document exceeds the size limit.
type ErrFileTooLarge struct {
	Size  int64
	Limit int64
}

func (e *ErrFileTooLarge) Error() string {
	return fmt.Sprintf("Arquivo muito grande! Tamanho máximo permitido: %dMB", e.Limit/(1024*1024))
}

// ErrUnsupportedFile indicates an uploaded document has a MIME type outside
// the accepted set.
type ErrUnsupportedFile struct {
	ContentType string
}

func (e *ErrUnsupportedFile) Error() string {
	return "Tipo de arquivo não permitido! Use PDF, JPG ou PNG."
}

// ErrForbidden indicates the caller lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("forbidden: %s", e.Action)
}

// ErrUnauthorized indicates invalid credentials or a missing session.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConflict indicates a resource already exists (e.g. duplicate email).
type ErrConflict struct {
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrTransitionNotAllowed is returned by a TransitionPolicy that refuses a
// status change.
type ErrTransitionNotAllowed struct {
	From LeadStatus
	To   LeadStatus
}

func (e *ErrTransitionNotAllowed) Error() string {
	return fmt.Sprintf("status transition not allowed: %s -> %s", e.From.Label(), e.To.Label())
}
