package apperror_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jt828/wolam/pkg/apperror"
	"github.com/stretchr/testify/assert"
)

func TestInvalidParameterError(t *testing.T) {
	err := &apperror.InvalidParameterError{Param: "metriccount", Value: "abc", Reason: "must be an integer"}

	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
	assert.ErrorIs(t, fmt.Errorf("create metrics: %w", err), apperror.ErrInvalidArgument)
	assert.NotErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, `invalid parameter metriccount="abc": must be an integer`, err.Error())

	var target *apperror.InvalidParameterError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &target))
	assert.Equal(t, "metriccount", target.Param)
}

func TestInvalidLabelError(t *testing.T) {
	cause := errors.New(`label name "region" missing in label map`)
	err := &apperror.InvalidLabelError{Metric: "wolam_api_counter_total", Err: cause}

	assert.ErrorIs(t, err, apperror.ErrInvalidLabel)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, apperror.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "wolam_api_counter_total")
}
