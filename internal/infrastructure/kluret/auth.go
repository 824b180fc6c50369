package kluret

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
)

type loginRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse は{status, user_id}か{message}のどちらかです
type authResponse struct {
	Status  string     `json:"status"`
	UserID  flexString `json:"user_id"`
	Message string     `json:"message"`
}

type authClient struct {
	client  *http.Client
	baseURL string
}

// NewAuthClient は認証サービスのクライアントを作ります
func NewAuthClient(baseURL string, timeout time.Duration) repository.AuthRepository {
	return newAuthClient(&http.Client{Timeout: timeout}, baseURL)
}

func newAuthClient(client *http.Client, baseURL string) *authClient {
	return &authClient{client: client, baseURL: baseURL}
}

func (c *authClient) Login(ctx context.Context, creds model.Credentials) (string, error) {
	return c.post(ctx, "/login", loginRequest{Email: creds.Email, Password: creds.Password})
}

func (c *authClient) Register(ctx context.Context, creds model.Credentials) (string, error) {
	return c.post(ctx, "/register", loginRequest{Name: creds.Name, Email: creds.Email, Password: creds.Password})
}

// post は拒否をすべて、サービスが表示させたいメッセージ付きの*AuthErrorにします
// 通信の失敗は普通のエラーのままです
func (c *authClient) post(ctx context.Context, path string, req loginRequest) (string, error) {
	var res authResponse
	err := postJSON(ctx, c.client, joinURL(c.baseURL, path), nil, req, &res)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return "", &model.AuthError{Message: se.Message}
		}
		return "", errors.Wrapf(err, "auth %s", path)
	}

	userID := res.UserID.String()
	if userID == "" || isFailureStatus(res.Status) {
		return "", &model.AuthError{Message: strings.TrimSpace(res.Message)}
	}
	return userID, nil
}

func isFailureStatus(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "fail", "failed", "failure":
		return true
	}
	return false
}
