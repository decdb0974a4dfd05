package serrors

// BaseError is a coded application error. Code is a stable machine-readable
// identifier, Message a human-readable default, Key an optional lookup key for
// presentation layers.
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Key     string `json:"key,omitempty"`
}

func NewError(code, message, key string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
		Key:     key,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}
