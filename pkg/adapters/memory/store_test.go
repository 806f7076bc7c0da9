package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunHistoryStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	blob := []byte("original")
	require.NoError(t, store.Save(ctx, "k", blob))
	blob[0] = 'X'

	loaded, err := store.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "original", string(loaded))

	loaded[0] = 'Y'
	again, _ := store.Load(ctx, "k")
	assert.Equal(t, "original", string(again))
}
