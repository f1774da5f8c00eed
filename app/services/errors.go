package services

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid input")
)

// ValidationError reports input that failed validation. It matches
// ErrInvalid with errors.Is.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	var verrs validator.ValidationErrors
	if errors.As(e.Err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fieldMessage(fe))
		}
		return strings.Join(msgs, "; ")
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func invalid(err error) error {
	return &ValidationError{Err: err}
}

func invalidf(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s: must be at most %s characters", field, fe.Param())
	case "email":
		return field + ": must be a valid email address"
	case "url":
		return field + ": must be a valid URL"
	case "country":
		return field + ": must be a known ISO country code"
	case "username":
		return field + ": must be 3-30 lowercase letters, digits or underscores"
	case "oneof":
		return fmt.Sprintf("%s: must be one of %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s: failed %s", field, fe.Tag())
	}
}

const (
	defaultPerPage = 10
	maxPerPage     = 100
	// maxPage keeps (page-1)*perPage from overflowing.
	maxPage = math.MaxInt / maxPerPage
)

// pageBounds turns page/per_page into limit/offset. Page numbers start at 1.
func pageBounds(page, perPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return perPage, (page - 1) * perPage
}
