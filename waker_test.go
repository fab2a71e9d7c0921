package kestrel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWakerSignalWithoutRuntimeInstalledPanics(t *testing.T) {
	s := NewScheduler()
	w := newWaker(s, 0)

	require.PanicsWithValue(t, ErrNoRuntimeInstalled, func() {
		w.WakeByRef()
	})
}

func TestWakerCloneIncrementsRefcount(t *testing.T) {
	s := NewScheduler()
	w := newWaker(s, 0)

	require.EqualValues(t, 1, w.core.refs.Load())

	clone := w.Clone()
	require.EqualValues(t, 2, w.core.refs.Load())
	require.Same(t, w.core, clone.core)

	clone.Drop()
	require.EqualValues(t, 1, w.core.refs.Load())
}

func TestWakerWakeDropsAfterSignalling(t *testing.T) {
	polls := 0
	var refsAfterWake int64

	main := FutureFunc[int](func(cx *Context) (int, bool) {
		polls++
		if polls == 1 {
			w := cx.Waker().Clone()
			w.Wake()
			refsAfterWake = cx.Waker().core.refs.Load()
			return 0, false
		}
		return 42, true
	})

	out := BlockOn(NewScheduler(), main)
	require.Equal(t, 42, out)
	require.Equal(t, 2, polls)
	require.EqualValues(t, 1, refsAfterWake)
}
