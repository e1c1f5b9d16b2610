package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrValidation marks a record or patch that failed the required-field checks
// the dashboard forms enforce.
var ErrValidation = errors.New("validation failed")

func requireText(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, name)
	}
	return nil
}

// requirePatchText rejects a submitted-but-blank value for a required field.
func requirePatchText(name string, value *string) error {
	if value != nil && strings.TrimSpace(*value) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrValidation, name)
	}
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ParseDate accepts the date input format (YYYY-MM-DD) or RFC 3339 and
// returns the calendar day at midnight UTC. An RFC 3339 value keeps the day
// written in its own offset, so 2026-10-19T02:00:00+05:30 is October 19.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01-02", value, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", ErrValidation, value)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
