package accountant

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{ closed bool }

func (c *nopCloser) Close() error {
	c.closed = true
	return nil
}

type errCloser struct{ err error }

func (c *errCloser) Close() error { return c.err }

func TestRegisterAndClose(t *testing.T) {
	a := New()
	ctx := WithOwner(context.Background(), NewOwner())
	nc := &nopCloser{}
	h := a.Register(ctx, nc)

	assert.Equal(t, 1, a.TotalCount())
	assert.Equal(t, 1, a.LocalCount(ctx))

	require.NoError(t, h.Close())
	assert.True(t, nc.closed)
	assert.Equal(t, 0, a.TotalCount())
}

func TestLocalCountDistinguishesOwners(t *testing.T) {
	a := New()
	owner1 := WithOwner(context.Background(), NewOwner())
	owner2 := WithOwner(context.Background(), NewOwner())

	a.Register(owner1, &nopCloser{})
	a.Register(owner1, &nopCloser{})
	a.Register(owner2, &nopCloser{})

	assert.Equal(t, 2, a.LocalCount(owner1))
	assert.Equal(t, 1, a.LocalCount(owner2))
	assert.Equal(t, 3, a.TotalCount())
}

func TestWaitIdleReturnsZeroWhenEmpty(t *testing.T) {
	a := New()
	assert.Equal(t, 0, a.WaitIdle(10*time.Millisecond))
}

func TestWaitIdleTimesOutWithResourcesHeld(t *testing.T) {
	a := New()
	ctx := WithOwner(context.Background(), NewOwner())
	a.Register(ctx, &nopCloser{})

	remaining := a.WaitIdle(20 * time.Millisecond)
	assert.Equal(t, 1, remaining)
}

func TestWaitIdleUnblocksOnClose(t *testing.T) {
	a := New()
	ctx := WithOwner(context.Background(), NewOwner())
	h := a.Register(ctx, &nopCloser{})

	done := make(chan int, 1)
	go func() { done <- a.WaitIdle(time.Second) }()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, h.Close())

	select {
	case remaining := <-done:
		assert.Equal(t, 0, remaining)
	case <-time.After(time.Second):
		t.Fatal("WaitIdle did not unblock after Close")
	}
}

func TestCloseAllCollectsErrorsAndClearsTally(t *testing.T) {
	a := New()
	ctx := WithOwner(context.Background(), NewOwner())
	a.Register(ctx, &nopCloser{})
	a.Register(ctx, &errCloser{err: errors.New("boom")})

	errs := a.CloseAll("test-subject")
	assert.Len(t, errs, 1)
	assert.Equal(t, 0, a.TotalCount())
}

func TestHandleCloseIsIdempotent(t *testing.T) {
	a := New()
	ctx := WithOwner(context.Background(), NewOwner())
	h := a.Register(ctx, &nopCloser{})

	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 0, a.TotalCount())
}

var _ io.Closer = (*Handle)(nil)
