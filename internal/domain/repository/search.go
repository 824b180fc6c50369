package repository

import (
	"context"

	"kluret.com/storefront/internal/domain/model"
)

// SearchRepository はリモートの検索エンジンを抽象化します
// 順位付けがAIサービスかDBかスクレイパーかをドメイン層は知りません
type SearchRepository interface {
	// Search はサーバーの順位どおりに1ページ分の結果を返します
	// 1件も受け取らなかったページは、もう次のページがないことを意味します
	Search(ctx context.Context, params model.SearchParams) (*model.SearchPage, error)
}
