package repository

import (
	"context"

	"kluret.com/storefront/internal/domain/model"
)

// DetailRepository は商品詳細の独立した3つの部分を取得します
// それぞれの呼び出しは単独で失敗することがあります
type DetailRepository interface {
	FetchImages(ctx context.Context, pageURL, productName string) ([]string, error)
	FetchDescription(ctx context.Context, pageURL string) (*model.Description, error)
	FetchSizes(ctx context.Context, pageURL string) ([]string, error)
}
