package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrSchemaViolation    = errors.New("model response violates schema")
	ErrCredentialMissing  = errors.New("model api credential is missing")
	ErrValidation         = errors.New("validation failed")
	ErrImportInvalid      = errors.New("import document is invalid")
	ErrGenerationInFlight = errors.New("generation already in flight")
	ErrAuth               = errors.New("authentication failed")
)
