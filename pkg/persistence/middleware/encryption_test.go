package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/aretw0/weave/pkg/domain"
	"github.com/aretw0/weave/pkg/persistence/middleware"
	"github.com/aretw0/weave/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

const secretBlob = `{"version":1,"workflows":{"wf":{"undoStack":[{"nodes":[{"id":"a","type":"http","position":{"x":0,"y":0},"data":{"versions":[{"version":1,"inputs":{"apiKey":"my-secret-sauce"}}]}}],"edges":null,"timestamp":"2026-01-01T00:00:00Z"}],"redoStack":null,"isApplyingSnapshot":false}}}`

func TestEncryptionMiddleware_Contract(t *testing.T) {
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunHistoryStoreContract(t, mw(NewMockStore()))
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := NewMockStore()
	mw := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	secureStore := mw(underlyingStore)
	ctx := context.Background()

	require.NoError(t, secureStore.Save(ctx, "workflow-history", []byte(secretBlob)))

	stored, err := underlyingStore.Load(ctx, "workflow-history")
	require.NoError(t, err)
	assert.NotContains(t, string(stored), "my-secret-sauce")
	assert.Contains(t, string(stored), "__encrypted__")

	loaded, err := secureStore.Load(ctx, "workflow-history")
	require.NoError(t, err)
	assert.Equal(t, secretBlob, string(loaded))
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := NewMockStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()

	secureStoreOld := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: oldKey})(underlyingStore)
	require.NoError(t, secureStoreOld.Save(ctx, "k", []byte("encrypted-with-old-key")))

	secureStoreNew := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})(underlyingStore)

	loaded, err := secureStoreNew.Load(ctx, "k")
	require.NoError(t, err, "fallback key must decrypt")
	assert.Equal(t, "encrypted-with-old-key", string(loaded))

	require.NoError(t, secureStoreNew.Save(ctx, "k", []byte("encrypted-with-new-key")))

	_, err = secureStoreOld.Load(ctx, "k")
	assert.Error(t, err, "old key alone cannot read new data")
}

func TestEncryptionMiddleware_RefusesPlainBlob(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()
	require.NoError(t, underlyingStore.Save(ctx, "k", []byte(secretBlob)))

	secureStore := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})(underlyingStore)
	_, err := secureStore.Load(ctx, "k")
	assert.ErrorIs(t, err, middleware.ErrNotEncrypted)

	_, err = secureStore.Load(ctx, "absent")
	assert.ErrorIs(t, err, domain.ErrHistoryNotFound)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	assert.Panics(t, func() {
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	})
}

func TestParseKey(t *testing.T) {
	raw := generateKey(t)

	key, err := middleware.ParseKey(hex.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	_, err = middleware.ParseKey(strings.Repeat("ab", 8))
	assert.Error(t, err)
}
