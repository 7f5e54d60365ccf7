package distributor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunomia-project/eunomia/core"
)

type fakePushable struct {
	attempts int
	fail     func(attempt int) error
}

func (f *fakePushable) UpdatePolicy(_ context.Context, _ core.Instance, _, _ string) error {
	f.attempts++
	if f.fail != nil {
		return f.fail(f.attempts)
	}
	return nil
}

func testInstance(id string) core.Instance {
	return core.Instance{ID: id, Endpoint: core.Endpoint{Host: "10.0.0.1", Port: 8080}}
}

func TestPushSucceedsOnFirstAttempt(t *testing.T) {
	fake := &fakePushable{}
	p := NewPusher(PushConfig{}, fake)

	result := p.Push(context.Background(), testInstance("inst-1"), "checkout-api", "v1.0.0")
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestPushRetriesRetryableErrors(t *testing.T) {
	fake := &fakePushable{fail: func(attempt int) error {
		if attempt < 3 {
			return &RetryableError{Err: errors.New("timeout")}
		}
		return nil
	}}
	cfg, err := TryNewPushConfig(PushConfig{MaxRetries: 3, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	p := NewPusher(cfg, fake)

	result := p.Push(context.Background(), testInstance("inst-1"), "checkout-api", "v1.0.0")
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
}

func TestPushGivesUpAfterMaxRetries(t *testing.T) {
	fake := &fakePushable{fail: func(int) error { return &RetryableError{Err: errors.New("always fails")} }}
	cfg, err := TryNewPushConfig(PushConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	require.NoError(t, err)
	p := NewPusher(cfg, fake)

	result := p.Push(context.Background(), testInstance("inst-1"), "checkout-api", "v1.0.0")
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, fake.attempts)
}

func TestPushNonRetryableFailsImmediately(t *testing.T) {
	fake := &fakePushable{fail: func(int) error { return errors.New("permanent") }}
	cfg, err := TryNewPushConfig(PushConfig{MaxRetries: 5})
	require.NoError(t, err)
	p := NewPusher(cfg, fake)

	result := p.Push(context.Background(), testInstance("inst-1"), "checkout-api", "v1.0.0")
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestPushUnreachableInstanceFailsWithoutAttempt(t *testing.T) {
	fake := &fakePushable{}
	p := NewPusher(PushConfig{}, fake)

	inst := testInstance("inst-1")
	inst.Status.Kind = core.StatusUnreachable

	result := p.Push(context.Background(), inst, "checkout-api", "v1.0.0")
	assert.False(t, result.Success)
	assert.Equal(t, 0, fake.attempts)
	assert.NotEmpty(t, result.Error)
}
