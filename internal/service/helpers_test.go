package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-room/internal/model"
	"github.com/sakif/recipe-room/internal/repository/sqlite"
	"github.com/sakif/recipe-room/internal/storage"
)

// =========================================================================
// TEST FIXTURES
// =========================================================================
//
// Services run against a real in-memory SQLite database with the full
// schema, so foreign keys, cascades and UNIQUE constraints behave exactly
// as in production. Each test gets its own database.

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func createUser(t *testing.T, db *sqlite.DB, username string) *model.User {
	t.Helper()
	u := &model.User{Username: username, Email: username + "@example.com", PasswordHash: "x"}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func recipeInput(title string) CreateRecipeInput {
	return CreateRecipeInput{
		Title:        title,
		Description:  "A family favourite",
		Ingredients:  "rice, beans",
		Instructions: "cook",
	}
}

func ptr[T any](v T) *T { return &v }

// =========================================================================
// FAKE IMAGE STORE
// =========================================================================

type fakeImageStore struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
	putErr  error

	// When gate is set, Put signals started and then waits for gate to
	// close (or ctx to end) before storing anything.
	gate    chan struct{}
	started chan struct{}
}

func newFakeImageStore() *fakeImageStore {
	return &fakeImageStore{objects: map[string]string{}}
}

func (f *fakeImageStore) URL(key string) string {
	return "https://images.test/" + key
}

func (f *fakeImageStore) Put(ctx context.Context, key, _ string, body io.Reader, _ int64) error {
	if f.gate != nil {
		f.started <- struct{}{}
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.objects[key] = string(b)
	return nil
}

func (f *fakeImageStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeImageStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

var _ storage.ImageStore = (*fakeImageStore)(nil)

var errStoreDown = errors.New("object store down")

func pngUpload() storage.Upload {
	return storage.Upload{Filename: "dish.png", Size: 4, Body: strings.NewReader("\x89PNG")}
}
