package retry

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, BackoffLinear, p.Mode)
	assert.Equal(t, time.Second, p.Initial)
	assert.Equal(t, 30*time.Second, p.Max)
	assert.Equal(t, 2, p.MaxRetries)
	require.NoError(t, p.Validate())
}

func TestNewPolicyOverrides(t *testing.T) {
	p := NewPolicy(BackoffFixed, 5*time.Second, 2*time.Second, 5)
	assert.Equal(t, 2*time.Second, p.Initial, "initial is clamped to max")
	assert.Equal(t, 2*time.Second, p.Max)
	assert.Equal(t, BackoffFixed, p.Mode)
	assert.Equal(t, 5, p.MaxRetries)

	p = NewPolicy("bogus", 0, 0, -1)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestDelay(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name   string
		policy Policy
		want   []time.Duration
	}{
		{"fixed", NewPolicy(BackoffFixed, 100*ms, 500*ms, 3), []time.Duration{100 * ms, 100 * ms, 100 * ms}},
		{"linear", NewPolicy(BackoffLinear, 100*ms, 250*ms, 5), []time.Duration{100 * ms, 200 * ms, 250 * ms, 250 * ms}},
		{"exponential", NewPolicy(BackoffExponential, 50*ms, 160*ms, 5), []time.Duration{50 * ms, 100 * ms, 160 * ms, 160 * ms}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, want := range tt.want {
				assert.Equal(t, want, tt.policy.Delay(i+1), "retry %d", i+1)
			}
			assert.Zero(t, tt.policy.Delay(0))
			assert.Zero(t, tt.policy.Delay(-1))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Policy{Max: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second}.Validate())
	assert.Error(t, Policy{Initial: time.Second, Max: time.Second, MaxRetries: -1}.Validate())
}

func TestParseBackoffMode(t *testing.T) {
	mode, err := ParseBackoffMode(" Exponential ")
	require.NoError(t, err)
	assert.Equal(t, BackoffExponential, mode)

	mode, err = ParseBackoffMode("")
	require.NoError(t, err)
	assert.Equal(t, BackoffLinear, mode)

	_, err = ParseBackoffMode("sometimes")
	assert.Error(t, err)
}

func transient() error {
	return errors.NotifyError("broker unavailable").Build()
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 3)
	calls := 0
	err := p.Do(t.Context(), func(context.Context) error {
		calls++
		if calls < 3 {
			return transient()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoGivesUpAfterMaxRetries(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 2)
	calls := 0
	err := p.Do(t.Context(), func(context.Context) error {
		calls++
		return transient()
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentErrors(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Millisecond, time.Millisecond, 5)
	for _, perm := range []error{stderrors.New("plain"), errors.ValidationError("bad").Build()} {
		calls := 0
		err := p.Do(t.Context(), func(context.Context) error {
			calls++
			return perm
		})
		assert.Equal(t, perm, err)
		assert.Equal(t, 1, calls)
	}
}

func TestDoHonoursContext(t *testing.T) {
	p := NewPolicy(BackoffFixed, time.Hour, time.Hour, 5)
	ctx, cancel := context.WithCancel(t.Context())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return transient()
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
