package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2model/internal/domain/entity"
)

// RunUserConfigStoreContract checks the behaviour every UserConfigStore must share.
func RunUserConfigStoreContract(t *testing.T, store UserConfigStore) {
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		cfg := &entity.UserConfig{UserID: "u1", TextToImageService: "img-svc", ImageToModelService: "model-svc"}
		require.NoError(t, store.Put(ctx, cfg))

		loaded, err := store.Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, cfg, loaded)
	})

	t.Run("Get returns a snapshot", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &entity.UserConfig{UserID: "u2", TextToImageService: "a"}))

		first, err := store.Get(ctx, "u2")
		require.NoError(t, err)
		first.TextToImageService = "mutated"

		second, err := store.Get(ctx, "u2")
		require.NoError(t, err)
		assert.Equal(t, "a", second.TextToImageService)
	})

	t.Run("Put overwrites", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &entity.UserConfig{UserID: "u3", TextToImageService: "old"}))
		require.NoError(t, store.Put(ctx, &entity.UserConfig{UserID: "u3", ImageToModelService: "new"}))

		loaded, err := store.Get(ctx, "u3")
		require.NoError(t, err)
		assert.Empty(t, loaded.TextToImageService)
		assert.Equal(t, "new", loaded.ImageToModelService)
	})

	t.Run("Get unknown", func(t *testing.T) {
		_, err := store.Get(ctx, "nobody")
		assert.ErrorIs(t, err, entity.ErrNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, &entity.UserConfig{UserID: "u4"}))
		require.NoError(t, store.Delete(ctx, "u4"))

		_, err := store.Get(ctx, "u4")
		assert.ErrorIs(t, err, entity.ErrNotFound)

		assert.ErrorIs(t, store.Delete(ctx, "u4"), entity.ErrNotFound)
	})
}
