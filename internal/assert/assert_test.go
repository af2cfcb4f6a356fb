package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type thing struct{}

func TestNotNil(t *testing.T) {
	var typed *thing
	var fn func()

	require.Panics(t, func() { NotNil(nil) })
	require.Panics(t, func() { NotNil(typed) })
	require.Panics(t, func() { NotNil(fn) })
	require.NotPanics(t, func() { NotNil(&thing{}) })
	require.NotPanics(t, func() { NotNil(thing{}) })

	require.Panics(t, func() { NotEmptyStr("") })
	require.NotPanics(t, func() { NotEmptyStr("x") })
}
