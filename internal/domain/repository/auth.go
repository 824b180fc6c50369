package repository

import (
	"context"

	"kluret.com/storefront/internal/domain/model"
)

// AuthRepository はリモートの認証サービスを抽象化します
type AuthRepository interface {
	// Login は成功時に不透明なユーザーIDを返します
	Login(ctx context.Context, creds model.Credentials) (string, error)
	// Register はアカウントを作成してそのユーザーIDを返します
	Register(ctx context.Context, creds model.Credentials) (string, error)
}
