package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidLabel        = errors.New("invalid label set")
	ErrCardinalityExceeded = errors.New("label cardinality exceeded")
	ErrUnavailable         = errors.New("unavailable")
)

// InvalidParameterError reports a request parameter that could not be used.
type InvalidParameterError struct {
	Param  string
	Value  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%q: %s", e.Param, e.Value, e.Reason)
}

func (e *InvalidParameterError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// InvalidLabelError reports a label set that does not match the label names
// declared for a metric family.
type InvalidLabelError struct {
	Metric string
	Err    error
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("metric %s: %v", e.Metric, e.Err)
}

func (e *InvalidLabelError) Is(target error) bool {
	return target == ErrInvalidLabel
}

func (e *InvalidLabelError) Unwrap() error {
	return e.Err
}
