// Package notify builds the short feedback messages shown after user actions.
package notify

import (
	"errors"

	"github.com/starford/planner/internal/apperr"
)

// Kind is the severity of a notification.
type Kind string

const (
	Success Kind = "success"
	Info    Kind = "info"
	Warning Kind = "warning"
	Error   Kind = "error"
)

// Notification is a transient, dismissible message.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Icon returns the icon class the page uses for the kind.
func (n Notification) Icon() string {
	switch n.Kind {
	case Success:
		return "icon-check"
	case Warning:
		return "icon-alert"
	case Error:
		return "icon-cross"
	}
	return "icon-info"
}

func TaskAdded() Notification   { return Notification{Success, "Task added."} }
func TaskUpdated() Notification { return Notification{Success, "Task updated."} }
func TaskDeleted() Notification { return Notification{Success, "Task deleted."} }

// TaskAddedHidden is shown when the new task is filtered out of the current view.
func TaskAddedHidden() Notification {
	return Notification{Info, "Task added. Switch to the pending filter to see it."}
}

// TaskToggled reports the new completion state.
func TaskToggled(completed bool) Notification {
	if completed {
		return Notification{Info, "Task completed."}
	}
	return Notification{Info, "Task moved back to pending."}
}

func InvalidDate() Notification {
	return Notification{Error, "Invalid date. Pick a date to open its plan."}
}

func ThemeChanged(theme string) Notification {
	return Notification{Info, "Theme set to " + theme + "."}
}

// FromError maps an operation error to the message the user should see.
func FromError(err error) Notification {
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		if ve.Constraint == apperr.ConstraintMaxLength {
			return Notification{Warning, "Task is too long. Keep it under 200 characters."}
		}
		return Notification{Warning, "Please type a task first."}
	case apperr.IsReadFailure(err):
		return Notification{Error, "Stored tasks could not be read. Starting from an empty plan."}
	case apperr.IsWriteFailure(err):
		return Notification{Error, "Tasks could not be saved."}
	case errors.Is(err, apperr.ErrInvalidDate):
		return InvalidDate()
	}
	return Notification{Error, "Something went wrong. Please reload the page."}
}
