package model

import "github.com/go-faster/errors"

var (
	// ErrUnauthorized はリモートサービスが401を返したときのエラーです
	ErrUnauthorized = errors.New("unauthorized")
	// ErrSchema はリモートのレスポンスが想定した形でないときのエラーです
	ErrSchema = errors.New("unexpected response schema")
	// ErrLoginFailed にはすべての*AuthErrorがマッチします
	ErrLoginFailed       = errors.New("login failed")
	ErrInvalidPriceRange = errors.New("invalid price range")
	ErrEmptyMessage      = errors.New("empty chat message")
	ErrNotConnected      = errors.New("store not connected")
	ErrUnknownTenant     = errors.New("unknown tenant")
	ErrNotAuthenticated  = errors.New("not authenticated")
)

// DefaultAuthMessage は認証サービスが理由を返さないときに表示します
const DefaultAuthMessage = "Invalid email or password"

// AuthError は認証サービスがユーザーに見せたいメッセージを運びます
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return DefaultAuthMessage
	}
	return e.Message
}

func (e *AuthError) Is(target error) bool {
	return target == ErrLoginFailed
}
