package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/sakif/recipe-room/internal/apperror"
	"github.com/sakif/recipe-room/internal/repository"
	"github.com/sakif/recipe-room/internal/storage"
)

// imagePutTimeout bounds one object store upload.
const imagePutTimeout = 30 * time.Second

// checkFunc rejects an upload before any bytes are sent (owner checks).
type checkFunc func(ctx context.Context, store repository.Store) error

// stageFunc applies the database change that points at the new image.
type stageFunc func(ctx context.Context, tx repository.Store, url string) error

// uploadImage uploads the object and then points the row at it.
//
// ORDER:
//  1. check, a plain read (no transaction)
//  2. upload the object, outside any transaction, bounded by imagePutTimeout
//  3. stage the row update in a short transaction and commit
//
// The database holds one connection, so no transaction may stay open
// across network I/O. A failed upload writes nothing. If step 3 fails the
// object is deleted again on a best-effort basis; stage must repeat any
// check whose answer can change between steps 1 and 3.
func uploadImage(
	ctx context.Context,
	store repository.Store,
	images storage.ImageStore,
	logger *slog.Logger,
	folder, ownerID string,
	up storage.Upload,
	check checkFunc,
	stage stageFunc,
) (string, error) {
	if images == nil {
		return "", apperror.Unavailable("image uploads are not configured")
	}
	contentType, err := up.Validate()
	if err != nil {
		return "", err
	}
	if check != nil {
		if err := check(ctx, store); err != nil {
			return "", err
		}
	}

	key := storage.NewKey(folder, ownerID, up.Filename)
	url := images.URL(key)

	putCtx, cancel := context.WithTimeout(ctx, imagePutTimeout)
	err = images.Put(putCtx, key, contentType, up.Body, up.Size)
	cancel()
	if err != nil {
		if apperror.Is(err, apperror.ErrUnavailable) {
			return "", err
		}
		logger.Error("image upload failed", slog.String("key", key), slog.String("error", err.Error()))
		return "", apperror.Unavailable("image upload failed")
	}

	err = store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		return stage(ctx, tx, url)
	})
	if err != nil {
		if delErr := images.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			logger.Warn("orphaned image after failed commit",
				slog.String("key", key),
				slog.String("error", delErr.Error()),
			)
		}
		return "", err
	}

	logger.Info("image uploaded", slog.String("key", key), slog.String("owner_id", ownerID))
	return url, nil
}
