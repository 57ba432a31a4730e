package serrors

import "fmt"

// BaseError is a coded error that can be matched with errors.Is and
// rendered to API clients without leaking internals.
type BaseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewError(code, message string) *BaseError {
	return &BaseError{
		Code:    code,
		Message: message,
	}
}

func (e *BaseError) Error() string {
	return e.Message
}

func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Wrap attaches detail to a coded error while keeping it matchable.
func Wrap(base *BaseError, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{base}, args...)...)
}
