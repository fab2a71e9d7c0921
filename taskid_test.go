package kestrel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskIDGeneratorMonotonic(t *testing.T) {
	var g taskIDGenerator

	first := g.next()
	second := g.next()
	third := g.next()

	require.Equal(t, TaskID(0), first)
	require.Equal(t, TaskID(1), second)
	require.Equal(t, TaskID(2), third)
}

func TestTaskIDGeneratorZeroValueReady(t *testing.T) {
	var g taskIDGenerator
	require.Equal(t, TaskID(0), g.next())
}
