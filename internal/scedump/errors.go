package scedump

import (
	"errors"
	"fmt"
)

var (
	// ErrSettingNotFound means no block header matched the setting name.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrValueUndetermined means a block matched but had no Value line
	// before the next header or end of input.
	ErrValueUndetermined = errors.New("setting found but value could not be determined")

	// ErrMalformedValue means the Value line carries no '='.
	ErrMalformedValue = errors.New("malformed Value line")

	// ErrInvalidValue means a new value cannot be written in the field's
	// original encoding.
	ErrInvalidValue = errors.New("invalid value")
)

// SettingError ties a lookup or format error to the requested setting name.
type SettingError struct {
	Name string
	Err  error
}

func (e *SettingError) Error() string {
	return fmt.Sprintf("BIOS setting %q: %v", e.Name, e.Err)
}

func (e *SettingError) Unwrap() error { return e.Err }

func settingErr(name string, err error) error {
	return &SettingError{Name: name, Err: err}
}
