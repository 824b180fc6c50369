package repository

import (
	"context"

	"kluret.com/storefront/internal/domain/model"
)

// CartRepository はリモートのカートサービスを抽象化します
// カートの持ち主はサービス側で、呼び出し側は要約しか見ません
type CartRepository interface {
	Add(ctx context.Context, userID string, req model.AddToCartRequest) error
	Get(ctx context.Context, userID string) (*model.CartSummary, error)
}
