package errors

import (
	"errors"
	"fmt"
)

var (
	ErrRateLimited          = errors.New("alert cycle requested too frequently")
	ErrUpstreamRead         = errors.New("failed to read meters or measurements")
	ErrDispatch             = errors.New("failed to dispatch alert notifications")
	ErrMarkerStore          = errors.New("cycle run marker store failure")
	ErrNotOwner             = errors.New("fluid meter is not owned by caller")
	ErrMeterInactive        = errors.New("fluid meter is not active")
	ErrDuplicateMeasurement = errors.New("measurement already received for this device")
)

type NotFoundError struct {
	Type string
	Name string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Type, e.Name)
}

func NotFoundErr(t, name string) NotFoundError {
	return NotFoundError{
		Type: t,
		Name: name,
	}
}

type NotUniqueError struct {
	Type string
	Name string
}

func (e NotUniqueError) Error() string {
	return fmt.Sprintf("multiple %s %s exist", e.Type, e.Name)
}

func NotUniqueErr(t, name string) NotUniqueError {
	return NotUniqueError{
		Type: t,
		Name: name,
	}
}

type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func InvalidInputErr(field, reason string) InvalidInputError {
	return InvalidInputError{
		Field:  field,
		Reason: reason,
	}
}
