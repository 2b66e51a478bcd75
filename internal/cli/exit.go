package cli

import "fmt"

// Exit codes beyond the generic failure (1).
const (
	exitNotSignedIn = 3
	exitForbidden   = 4
)

// ExitError carries the process exit code a command wants. main unwraps it.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}
