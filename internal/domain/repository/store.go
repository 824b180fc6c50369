package repository

import (
	"context"

	"kluret.com/storefront/internal/domain/model"
)

// StoreRepository はダッシュボードの裏にあるストア・顧客データのサービスを抽象化します
type StoreRepository interface {
	Connect(ctx context.Context, tenant model.Tenant, creds model.Credentials) (*model.StoreConnection, error)
	// Dashboard はBearerトークンで認証します
	Dashboard(ctx context.Context, tenant model.Tenant, token, storeID string) (*model.StoreDashboard, error)
}
