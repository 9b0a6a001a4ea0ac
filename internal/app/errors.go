package app

// DomainError is an error the HTTP layer can translate directly into a
// response: a status code, a stable machine-readable code, and a human
// message with optional details.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code + ": " + e.Message
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message, Details: details}
}
