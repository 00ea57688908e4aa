package carousel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		i, n, want int
	}{
		{0, 3, 0},
		{3, 3, 0},
		{-1, 3, 2},
		{-4, 3, 2},
		{7, 3, 1},
		{5, 0, 0},
		{-2, -1, 0},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Wrap(tt.i, tt.n), "Wrap(%d, %d)", tt.i, tt.n)
	}
}

func TestMachine_WrapAround(t *testing.T) {
	for _, n := range []int{1, 2, 5, 6} {
		m := New(n, 0)

		m.SetIndex(n - 1)
		idx, _, ok := m.Begin(Next)
		require.True(t, ok)
		assert.Equal(t, 0, idx)
		idx, ok = m.Settle()
		require.True(t, ok)
		assert.Equal(t, 0, idx)

		idx, _, ok = m.Begin(Previous)
		require.True(t, ok)
		assert.Equal(t, n-1, idx)
		m.Settle()
		assert.Equal(t, n-1, m.Index())
	}
}

func TestMachine_DropsCommandsWhileTransitioning(t *testing.T) {
	m := New(5, 0)

	_, _, ok := m.Begin(Next)
	require.True(t, ok)
	assert.Equal(t, Transitioning, m.State())

	_, _, ok = m.Begin(Next)
	assert.False(t, ok)
	_, _, ok = m.Begin(Previous)
	assert.False(t, ok)

	idx, ok := m.Settle()
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, Idle, m.State())

	_, ok = m.Settle()
	assert.False(t, ok)
}

func TestMachine_SettleGenDropsStaleSettles(t *testing.T) {
	m := New(5, 0)

	_, first, ok := m.Begin(Next)
	require.True(t, ok)

	// A reload stops the first transition before its settle arrives.
	m.Stop()

	_, second, ok := m.Begin(Next)
	require.True(t, ok)
	assert.NotEqual(t, first, second)

	_, ok = m.SettleGen(first)
	assert.False(t, ok)
	assert.Equal(t, Transitioning, m.State())
	assert.Equal(t, 0, m.Index())

	idx, ok := m.SettleGen(second)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, Idle, m.State())

	_, ok = m.SettleGen(second)
	assert.False(t, ok)
}

func TestMachine_EmptyAndNone(t *testing.T) {
	m := New(0, 0)
	_, _, ok := m.Begin(Next)
	assert.False(t, ok)

	m.SetLen(3)
	_, _, ok = m.Begin(None)
	assert.False(t, ok)
	assert.Equal(t, Idle, m.State())
}

func TestMachine_NavigateDebounce(t *testing.T) {
	m := New(4, 30*time.Millisecond)

	var (
		mu      sync.Mutex
		settled []int
	)
	done := make(chan struct{}, 4)
	onSettle := func(i int) {
		mu.Lock()
		settled = append(settled, i)
		mu.Unlock()
		done <- struct{}{}
	}

	require.True(t, m.Navigate(Next, onSettle))
	assert.False(t, m.Navigate(Next, onSettle))
	assert.False(t, m.Navigate(Previous, onSettle))
	assert.Equal(t, 0, m.Index())
	assert.Equal(t, 1, m.Pending())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("settle callback was not called")
	}

	mu.Lock()
	assert.Equal(t, []int{1}, settled)
	mu.Unlock()
	assert.Equal(t, 1, m.Index())
	assert.Equal(t, Idle, m.State())

	require.True(t, m.Navigate(Previous, onSettle))
	<-done
	assert.Equal(t, 0, m.Index())
}

func TestMachine_StopCancelsSettle(t *testing.T) {
	m := New(3, 20*time.Millisecond)

	called := make(chan int, 1)
	require.True(t, m.Navigate(Next, func(i int) { called <- i }))
	m.Stop()

	select {
	case <-called:
		t.Fatal("settle ran after Stop")
	case <-time.After(60 * time.Millisecond):
	}

	assert.Equal(t, 0, m.Index())
	assert.Equal(t, Idle, m.State())
}

func TestMachine_DragAndRelease(t *testing.T) {
	m := New(3, 0)

	m.Drag(-40)
	assert.Equal(t, -40.0, m.Offset())

	assert.False(t, m.Release(None, nil))
	assert.Zero(t, m.Offset())
	assert.Equal(t, 0, m.Index())

	m.Drag(-200)
	done := make(chan int, 1)
	require.True(t, m.Release(Next, func(i int) { done <- i }))
	assert.Equal(t, 1, <-done)
	assert.Zero(t, m.Offset())
}

func TestMachine_SetLenKeepsIndexInRange(t *testing.T) {
	m := New(5, 0)
	m.SetIndex(4)

	m.SetLen(3)
	assert.Equal(t, 1, m.Index())

	m.SetLen(0)
	assert.Equal(t, 0, m.Index())
}
