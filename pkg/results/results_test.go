package results

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperationResult(t *testing.T) {
	ok := SuccessResult[int, error](7)
	assert.True(t, ok.IsSuccess())
	assert.False(t, ok.IsFailure())
	assert.Equal(t, 7, *ok.Success)

	failErr := errors.New("nope")
	fail := FailureResult[int, error](failErr)
	assert.False(t, fail.IsSuccess())
	assert.True(t, fail.IsFailure())
	assert.ErrorIs(t, *fail.Failure, failErr)

	var zero OperationResult[int, error]
	assert.False(t, zero.IsSuccess())
	assert.False(t, zero.IsFailure())
}
