package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/recipe-room/internal/auth"
	"github.com/sakif/recipe-room/internal/handler"
	"github.com/sakif/recipe-room/internal/repository/sqlite"
	"github.com/sakif/recipe-room/internal/service"
	"github.com/sakif/recipe-room/internal/storage"
)

// =========================================================================
// TEST STACK
// =========================================================================
//
// Handlers are exercised against real services over an in-memory SQLite
// database. Requests are built with httptest and call the handler methods
// directly; chi URL params and the authenticated user are put into the
// request context the same way the router and RequireAuth would.

type stack struct {
	db        *sqlite.DB
	images    *memImages
	auth      *handler.AuthHandler
	recipes   *handler.RecipeHandler
	groups    *handler.GroupHandler
	bookmarks *handler.BookmarkHandler
	comments  *handler.CommentHandler
	accounts  *service.AuthService
}

func newStack(t *testing.T) *stack {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := discard
	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)
	images := &memImages{objects: map[string][]byte{}}

	accounts := service.NewAuthService(db, tokens, auth.NewPasswordServiceForTest(bcrypt.MinCost), images, logger)
	recipes := service.NewRecipeService(db, images, logger)

	return &stack{
		db:        db,
		images:    images,
		accounts:  accounts,
		auth:      handler.NewAuthHandler(accounts, nil, false, "/", logger),
		recipes:   handler.NewRecipeHandler(recipes, service.NewRatingService(db, logger), logger),
		groups:    handler.NewGroupHandler(service.NewGroupService(db, logger), logger),
		bookmarks: handler.NewBookmarkHandler(service.NewBookmarkService(db, logger), logger),
		comments:  handler.NewCommentHandler(service.NewCommentService(db, logger), logger),
	}
}

var discard = slog.New(slog.DiscardHandler)

// register creates an account and returns its id.
func (s *stack) register(t *testing.T, username string) string {
	t.Helper()
	res, err := s.accounts.Register(context.Background(), service.RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	return res.User.ID
}

// memImages is an in-memory storage.ImageStore.
type memImages struct {
	objects map[string][]byte
	fail    bool
}

func (m *memImages) URL(key string) string { return "https://cdn.test/" + key }

func (m *memImages) Put(_ context.Context, key, _ string, body io.Reader, _ int64) error {
	if m.fail {
		return io.ErrUnexpectedEOF
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.objects[key] = b
	return nil
}

func (m *memImages) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

var _ storage.ImageStore = (*memImages)(nil)

// =========================================================================
// REQUEST HELPERS
// =========================================================================

// request builds a request with an optional JSON body, the caller's
// identity ("" for anonymous) and chi URL params given as name/value pairs.
func request(t *testing.T, method, target, userID string, body any, params ...string) *http.Request {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return withContext(req, userID, params...)
}

func withContext(req *http.Request, userID string, params ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

// multipartImage builds a multipart body carrying one file in field.
func multipartImage(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// serve runs h and returns the recorder.
func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

// decode unmarshals the recorder body into a fresh T.
func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), rr.Body.String())
	return v
}
