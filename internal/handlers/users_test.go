package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lingolink/backend/internal/auth"
	"github.com/lingolink/backend/internal/models"
	"github.com/lingolink/backend/internal/repositories"
	"github.com/lingolink/backend/internal/social"
)

func newUserHandler(t *testing.T, ids ...string) (UserHandler, *repositories.MemoryStore) {
	t.Helper()
	store := repositories.NewMemoryStore()
	for _, id := range ids {
		user := models.User{ID: id, Email: id + "@example.com", FullName: "User " + id, IsOnboarded: true}
		if err := store.Create(context.Background(), user); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	return UserHandler{Social: social.NewService(store, store)}, store
}

func asUser(r *http.Request, id string) *http.Request {
	return r.WithContext(auth.WithUser(r.Context(), models.User{ID: id}))
}

func withPathID(r *http.Request, id string) *http.Request {
	r.SetPathValue("id", id)
	return r
}

func TestUserHandlerFriendRequestFlow(t *testing.T) {
	handler, _ := newUserHandler(t, "a", "b")

	req := withPathID(asUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/friend-request/b", nil), "a"), "b")
	rec := httptest.NewRecorder()
	handler.SendFriendRequest(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	var created models.FriendRequest
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/friend-requests", nil), "b")
	rec = httptest.NewRecorder()
	handler.FriendRequests(rec, req)

	var lists friendRequestsResponse
	if err := json.NewDecoder(rec.Body).Decode(&lists); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(lists.Incoming) != 1 || lists.Incoming[0].Sender == nil || lists.Incoming[0].Sender.ID != "a" {
		t.Fatalf("unexpected incoming %+v", lists.Incoming)
	}
	if lists.Accepted == nil || len(lists.Accepted) != 0 {
		t.Fatalf("expected empty accepted list got %+v", lists.Accepted)
	}

	req = asUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/outgoing-friend-requests", nil), "a")
	rec = httptest.NewRecorder()
	handler.OutgoingFriendRequests(rec, req)

	var outgoing []models.FriendRequestView
	if err := json.NewDecoder(rec.Body).Decode(&outgoing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(outgoing) != 1 || outgoing[0].Recipient == nil || outgoing[0].Recipient.ID != "b" {
		t.Fatalf("unexpected outgoing %+v", outgoing)
	}

	path := fmt.Sprintf("/api/v1/users/friend-request/%s/accept", created.ID)
	req = withPathID(asUser(httptest.NewRequest(http.MethodPut, path, nil), "b"), created.ID)
	rec = httptest.NewRecorder()
	handler.AcceptFriendRequest(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}

	for _, pair := range [][2]string{{"a", "b"}, {"b", "a"}} {
		req = asUser(httptest.NewRequest(http.MethodGet, "/api/v1/users/friends", nil), pair[0])
		rec = httptest.NewRecorder()
		handler.Friends(rec, req)

		var friends []models.PublicProfile
		if err := json.NewDecoder(rec.Body).Decode(&friends); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(friends) != 1 || friends[0].ID != pair[1] {
			t.Fatalf("expected %s to have friend %s, got %+v", pair[0], pair[1], friends)
		}
	}
}

func TestUserHandlerErrorMapping(t *testing.T) {
	handler, _ := newUserHandler(t, "a", "b", "c")

	send := func(actor, target string) int {
		req := withPathID(asUser(httptest.NewRequest(http.MethodPost, "/api/v1/users/friend-request/"+target, nil), actor), target)
		rec := httptest.NewRecorder()
		handler.SendFriendRequest(rec, req)
		return rec.Code
	}

	if code := send("a", "b"); code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", code)
	}

	cases := []struct {
		name   string
		actor  string
		target string
		status int
	}{
		{"self", "a", "a", http.StatusBadRequest},
		{"duplicate", "b", "a", http.StatusBadRequest},
		{"unknown", "a", "zzz", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := send(tc.actor, tc.target); code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, code)
			}
		})
	}

	req := withPathID(asUser(httptest.NewRequest(http.MethodPut, "/api/v1/users/friend-request/x/accept", nil), "c"), "missing")
	rec := httptest.NewRecorder()
	handler.AcceptFriendRequest(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestSocialErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{social.ErrInvalidTarget, http.StatusBadRequest},
		{social.ErrAlreadyFriends, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", social.ErrDuplicateRequest), http.StatusBadRequest},
		{social.ErrNotFound, http.StatusNotFound},
		{social.ErrForbidden, http.StatusForbidden},
		{errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if status, _ := socialErrorStatus(tc.err); status != tc.status {
			t.Fatalf("socialErrorStatus(%v) = %d, want %d", tc.err, status, tc.status)
		}
	}
}

func TestUserHandlerRecommended(t *testing.T) {
	handler, store := newUserHandler(t, "a", "b")
	if err := store.Create(context.Background(), models.User{ID: "c", Email: "c@example.com"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/api/v1/users", nil), "a")
	rec := httptest.NewRecorder()
	handler.Recommended(rec, req)

	var users []models.User
	if err := json.NewDecoder(rec.Body).Decode(&users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || len(users) != 1 || users[0].ID != "b" {
		t.Fatalf("expected only b, got %d %+v", rec.Code, users)
	}

	rec = httptest.NewRecorder()
	handler.Recommended(rec, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.Recommended(rec, asUser(httptest.NewRequest(http.MethodPost, "/api/v1/users", nil), "a"))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rec.Code)
	}
}
