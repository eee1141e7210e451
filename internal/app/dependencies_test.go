package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewDependenciesMemoryMode(t *testing.T) {
	deps, err := NewDependencies(context.Background(), Config{
		AuthKeys: "operator:secret",
	}, nil)
	require.NoError(t, err)
	defer deps.Close()

	require.NotNil(t, deps.OrderRepo)
	require.NotNil(t, deps.AuthRepo)
	require.Nil(t, deps.PGStore)

	ok, err := deps.AuthRepo.ValidateKey("operator", "secret")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = deps.AuthRepo.ValidateKey("operator", "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewDependenciesRejectsMalformedKeys(t *testing.T) {
	_, err := NewDependencies(context.Background(), Config{
		AuthKeys: "broken",
	}, nil)
	require.Error(t, err)
}
