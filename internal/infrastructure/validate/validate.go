package validate

import "fmt"

// FieldError a field that failed validation, nested in the REST validation error body
type FieldError struct {
	Domain string `json:"domain"` // json name of the field
	Reason string `json:"reason"`
}

// NewFieldError .
func NewFieldError(domain string, reason string) *FieldError {
	return &FieldError{domain, reason}
}

func (fe *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", fe.Domain, fe.Reason)
}

// Validator validates request bodies and path parameters, a nil result means valid
type Validator interface {
	Struct(s interface{}) []*FieldError
	Empty(varName string, s interface{}) []*FieldError
}
