package fetch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyRunStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Policy{MaxAttempts: 3, Backoff: time.Millisecond}.Run(func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPolicyRunRetriesWithBackoff(t *testing.T) {
	calls := 0
	backoff := 20 * time.Millisecond
	start := time.Now()
	err := Policy{MaxAttempts: 3, Backoff: backoff}.Run(func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	// two failures means two backoff pauses
	assert.GreaterOrEqual(t, elapsed, 2*backoff)
}

func TestPolicyRunExhaustsAttempts(t *testing.T) {
	calls := 0
	wantErr := errors.New("still broken")
	err := Policy{MaxAttempts: 3, Backoff: time.Millisecond}.Run(func() error {
		calls++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	assert.Equal(t, 3, calls)
}

func TestDefaultPolicy(t *testing.T) {
	assert.Equal(t, 3, DefaultPolicy.MaxAttempts)
	assert.Equal(t, time.Second, DefaultPolicy.Backoff)
}

func TestFetchErrorCarriesImageID(t *testing.T) {
	inner := errors.New("connection reset")
	err := &FetchError{ImageID: "COPERNICUS/S2/abc", Attempts: 3, Err: inner}

	assert.Contains(t, err.Error(), "COPERNICUS/S2/abc")
	assert.Contains(t, err.Error(), "3 attempts")
	assert.ErrorIs(t, err, inner)
}
