package session

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName はBFFに対してブラウザを識別するクッキー名です
const CookieName = "kluret_client"

const issuer = "kluret-storefront"

var ErrInvalidCookie = errors.New("invalid client cookie")

// CookieCodec はクライアントIDに署名し、他のブラウザのIDを名乗れないようにします
// トークンに期限はなく、リモート呼び出しが拒否するまでセッションを信頼します
type CookieCodec struct {
	secret []byte
	now    func() time.Time
}

// NewCookieCodec はsecretを使うHS256のコーデックを返します
func NewCookieCodec(secret string) (*CookieCodec, error) {
	if secret == "" {
		return nil, errors.New("session secret cannot be empty")
	}
	return &CookieCodec{secret: []byte(secret), now: time.Now}, nil
}

// NewClientID は新しいランダムなクライアントIDを返します
func NewClientID() string {
	return uuid.NewString()
}

// Encode はclientIDに署名します
func (c *CookieCodec) Encode(clientID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:  clientID,
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(c.now()),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign client cookie")
	}
	return token, nil
}

// Decode はvalueを検証し、含まれるクライアントIDを返します
func (c *CookieCodec) Decode(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return "", errors.Wrapf(ErrInvalidCookie, "%v", err)
	}
	if !token.Valid {
		return "", ErrInvalidCookie
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.Wrap(ErrInvalidCookie, "subject is not a client id")
	}
	return claims.Subject, nil
}
