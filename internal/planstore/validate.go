package planstore

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/format"
)

// MaxTextLength is the longest task text accepted, in characters.
const MaxTextLength = 200

// NormalizeText trims raw and checks it against the task text constraints.
func NormalizeText(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	err := validation.Validate(text,
		validation.Required,
		validation.RuneLength(0, MaxTextLength),
	)
	if err == nil {
		return text, nil
	}
	var ve validation.Error
	if !errors.As(err, &ve) {
		return "", err
	}
	constraint := apperr.ConstraintRequired
	if ve.Code() == validation.ErrLengthTooLong.Code() {
		constraint = apperr.ConstraintMaxLength
	}
	return "", &apperr.ValidationError{Field: "text", Constraint: constraint, Message: ve.Error()}
}

func checkDate(date string) error {
	if !format.IsValidCalendarDate(date) {
		return apperr.ErrInvalidDate
	}
	return nil
}
