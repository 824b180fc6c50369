package kluret

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"kluret.com/storefront/internal/domain/model"
)

func TestAuthClient_Login(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		status  int
		body    string
		wantID  string
		wantMsg string
	}{
		{name: "success", status: 200, body: `{"status":"success","user_id":17}`, wantID: "17"},
		{name: "message on 200", status: 200, body: `{"message":"User not found"}`, wantMsg: "User not found"},
		{name: "failure status", status: 200, body: `{"status":"error","user_id":"x","message":"Locked"}`, wantMsg: "Locked"},
		{name: "message on 401", status: 401, body: `{"message":"Wrong password"}`, wantMsg: "Wrong password"},
		{name: "no message", status: 400, body: ``, wantMsg: model.DefaultAuthMessage},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				var req loginRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				if req.Email != "a@b.c" || req.Password != "pw" {
					t.Errorf("request got %+v", req)
				}
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			c := newAuthClient(srv.Client(), srv.URL)
			id, err := c.Login(t.Context(), model.Credentials{Email: "a@b.c", Password: "pw"})
			if tc.wantID != "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if id != tc.wantID {
					t.Fatalf("id got %q, want %q", id, tc.wantID)
				}
				return
			}
			if !errors.Is(err, model.ErrLoginFailed) {
				t.Fatalf("got %v, want ErrLoginFailed", err)
			}
			if err.Error() != tc.wantMsg {
				t.Fatalf("message got %q, want %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestAuthClient_Login_serverErrorIsNotAuthError(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	c := newAuthClient(srv.Client(), srv.URL)
	_, err := c.Login(t.Context(), model.Credentials{Email: "a@b.c", Password: "pw"})
	if err == nil || errors.Is(err, model.ErrLoginFailed) {
		t.Fatalf("got %v, want transport error", err)
	}
}

func TestAuthClient_Register_sendsName(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/register" {
			t.Errorf("path got %q", r.URL.Path)
		}
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Name != "Asha" {
			t.Errorf("name got %q", req.Name)
		}
		_, _ = w.Write([]byte(`{"status":"success","user_id":"u-1"}`))
	})

	c := newAuthClient(srv.Client(), srv.URL)
	id, err := c.Register(t.Context(), model.Credentials{Name: "Asha", Email: "a@b.c", Password: "pw"})
	if err != nil || id != "u-1" {
		t.Fatalf("got %q, %v", id, err)
	}
}
