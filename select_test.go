package kestrel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSelectPicksFaster races two countdown futures, 20 and 10, with
// Select. The second branch reaches zero first and Select resolves with the
// Second tag; the first branch is left part-way through, never reaching
// zero.
func TestSelectPicksFaster(t *testing.T) {
	slow := &countdownFuture{n: 20}
	fast := &countdownFuture{n: 10}

	main := Select[int, int](slow, fast)

	result := BlockOn(NewScheduler(), main)

	require.False(t, result.IsFirst)
	require.Equal(t, 0, result.SecondValue)
	require.NotZero(t, slow.n, "losing branch must not reach zero")
	require.Less(t, slow.polls, 21)
}

// TestSelectFirstBranchWins is the symmetric case: when the first future
// completes before the second, Select yields the First tag.
func TestSelectFirstBranchWins(t *testing.T) {
	fast := &countdownFuture{n: 5}
	slow := &countdownFuture{n: 50}

	main := Select[int, int](fast, slow)

	result := BlockOn(NewScheduler(), main)

	require.True(t, result.IsFirst)
	require.Equal(t, 0, result.FirstValue)
}

// TestSelectNeverCompletingSecondBranch: Select(a, b) where a never
// completes and b completes yields the second-branch result.
func TestSelectNeverCompletingSecondBranch(t *testing.T) {
	neverPolls := 0
	never := FutureFunc[string](func(cx *Context) (string, bool) {
		neverPolls++
		cx.Waker().WakeByRef()
		return "", false
	})
	done := &countdownFuture{n: 3}

	main := Select[string, int](never, done)

	result := BlockOn(NewScheduler(), main)

	require.False(t, result.IsFirst)
	require.Equal(t, 0, result.SecondValue)
	require.Greater(t, neverPolls, 0)
}
