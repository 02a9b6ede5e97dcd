package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationLifecycle(t *testing.T) {
	release := make(chan struct{})
	var got []int
	m := NewMutation(func(context.Context) (int, error) {
		<-release
		return 42, nil
	}, func(v int) {
		got = append(got, v)
	})

	assert.Equal(t, MutationIdle, m.State().Status)

	require.True(t, m.Mutate(context.Background()))
	assert.True(t, m.State().Pending())
	assert.False(t, m.Mutate(context.Background()), "second call while pending is ignored")

	close(release)
	st := m.Wait(context.Background())
	assert.Equal(t, MutationSuccess, st.Status)
	assert.Equal(t, 42, st.Data)
	assert.Equal(t, []int{42}, got)
}

func TestMutationError(t *testing.T) {
	boom := errors.New("boom")
	called := false
	m := NewMutation(func(context.Context) (string, error) {
		return "", boom
	}, func(string) {
		called = true
	})

	require.True(t, m.Mutate(context.Background()))
	st := m.Wait(context.Background())
	assert.Equal(t, MutationError, st.Status)
	assert.ErrorIs(t, st.Err, boom)
	assert.False(t, called)
	assert.Equal(t, "error", st.Status.String())

	assert.True(t, m.Mutate(context.Background()), "can run again after settling")
	m.Wait(context.Background())
}

func TestMutationWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	m := NewMutation(func(context.Context) (int, error) {
		<-release
		return 1, nil
	}, nil)
	require.True(t, m.Mutate(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.True(t, m.Wait(ctx).Pending())

	close(release)
	assert.Equal(t, MutationSuccess, m.Wait(context.Background()).Status)
}
