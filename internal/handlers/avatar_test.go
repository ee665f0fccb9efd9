package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lingolink/backend/internal/models"
	"github.com/lingolink/backend/internal/repositories"
)

type recordingStorage struct {
	key  string
	body []byte
	err  error
}

func (s *recordingStorage) Save(_ context.Context, name string, r io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.key, s.body = name, body
	return "https://cdn.example/" + name, nil
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestAvatarHandlerUpload(t *testing.T) {
	store := repositories.NewMemoryStore()
	if err := store.Create(context.Background(), models.User{ID: "u1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	storage := &recordingStorage{}
	handler := AvatarHandler{Users: store, Storage: storage}

	req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/users/me/avatar", bytes.NewReader(pngHeader)), "u1")
	rec := httptest.NewRecorder()
	handler.Upload(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(storage.key, "avatars/u1/") || !strings.HasSuffix(storage.key, ".png") {
		t.Fatalf("unexpected key %q", storage.key)
	}
	if !bytes.Equal(storage.body, pngHeader) {
		t.Fatal("expected the uploaded bytes to be stored unchanged")
	}

	user, err := store.FindByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if user.ProfilePic != "https://cdn.example/"+storage.key {
		t.Fatalf("expected profile picture to point at the upload, got %q", user.ProfilePic)
	}
}

func TestAvatarHandlerRejects(t *testing.T) {
	store := repositories.NewMemoryStore()
	if err := store.Create(context.Background(), models.User{ID: "u1", Email: "u1@example.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	cases := []struct {
		name    string
		handler AvatarHandler
		body    []byte
		status  int
	}{
		{"unconfigured", AvatarHandler{Users: store}, pngHeader, http.StatusServiceUnavailable},
		{"empty", AvatarHandler{Users: store, Storage: &recordingStorage{}}, nil, http.StatusBadRequest},
		{"notAnImage", AvatarHandler{Users: store, Storage: &recordingStorage{}}, []byte("hello world"), http.StatusUnsupportedMediaType},
		{"tooLarge", AvatarHandler{Users: store, Storage: &recordingStorage{}}, make([]byte, maxAvatarBytes+1), http.StatusRequestEntityTooLarge},
		{"storageDown", AvatarHandler{Users: store, Storage: &recordingStorage{err: errors.New("s3 down")}}, pngHeader, http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := asUser(httptest.NewRequest(http.MethodPut, "/api/v1/users/me/avatar", bytes.NewReader(tc.body)), "u1")
			rec := httptest.NewRecorder()
			tc.handler.Upload(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, rec.Code)
			}
		})
	}
}
