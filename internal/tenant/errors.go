package tenant

import (
	"errors"
	"fmt"
)

// Kind classifies a terminal resolution failure.
type Kind string

const (
	KindNotFound    Kind = "not_found"
	KindDisabled    Kind = "disabled"
	KindUnavailable Kind = "unavailable"
)

// ResolutionError is the terminal error for a resolution pass. Message is
// suitable for showing to the user alongside a retry action.
type ResolutionError struct {
	Kind    Kind
	Token   string
	Message string
	Err     error
}

func (e *ResolutionError) Error() string {
	return e.Message
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func notFoundError(token string) *ResolutionError {
	return &ResolutionError{
		Kind:    KindNotFound,
		Token:   token,
		Message: fmt.Sprintf("no organization found for %q", token),
	}
}

func disabledError(token, name string) *ResolutionError {
	return &ResolutionError{
		Kind:    KindDisabled,
		Token:   token,
		Message: fmt.Sprintf("the website for %s is not enabled", name),
	}
}

func unavailableError(token string, err error) *ResolutionError {
	return &ResolutionError{
		Kind:    KindUnavailable,
		Token:   token,
		Message: "organization lookup is temporarily unavailable, please try again",
		Err:     err,
	}
}

// KindOf returns the Kind of a ResolutionError in err's chain, or "" if there is none.
func KindOf(err error) Kind {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Kind
	}
	return ""
}
