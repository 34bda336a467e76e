// Package storage holds uploaded images outside the database.
//
// Only the public URL of an image is persisted (users.profile_image,
// recipes.image_url). The bytes live in an object store behind the
// ImageStore interface:
//
//	S3Store       stores in any S3-compatible bucket (AWS, R2, MinIO) via aws-sdk-go-v2
//	BreakerStore  wraps another store with a circuit breaker
//
// Services receive an ImageStore; a nil store means uploads are disabled.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/recipe-room/internal/apperror"
)

// MaxImageBytes is the largest accepted upload (5MB).
const MaxImageBytes int64 = 5 << 20

// Folders under which objects are keyed.
const (
	ProfileFolder = "profiles"
	RecipeFolder  = "recipes"
)

var contentTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageStore puts and deletes objects by key.
//
// URL is pure: it computes the public URL for a key without a network call,
// so callers can stage the database update before the upload happens.
type ImageStore interface {
	URL(key string) string
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	Delete(ctx context.Context, key string) error
}

// Upload is an image file received from a client.
type Upload struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// Validate checks the extension and size and returns the content type to
// store the object with.
func (u Upload) Validate() (string, error) {
	if u.Filename == "" || u.Body == nil {
		return "", apperror.ValidationFailed("file", "no file selected")
	}
	ct, ok := contentTypes[strings.ToLower(path.Ext(u.Filename))]
	if !ok {
		return "", apperror.ValidationFailed("file", "file type not allowed, allowed types: png, jpg, jpeg, gif, webp")
	}
	if u.Size > MaxImageBytes {
		return "", apperror.ValidationFailed("file", "file size too large, maximum size is 5MB")
	}
	return ct, nil
}

// NewKey builds a unique object key such as
// "recipes/<ownerID>/6f1c...-9a2e.jpg". The client's filename contributes
// only its extension.
func NewKey(folder, ownerID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%s/%s%s", folder, ownerID, uuid.NewString(), ext)
}
