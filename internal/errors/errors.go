// Package errors defines the domain error taxonomy shared across services.
// Handlers map these to HTTP responses; services compare them with errors.Is.
package errors

// DomainError is a stable, machine-readable failure category.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}
