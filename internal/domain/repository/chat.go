package repository

import (
	"context"

	"kluret.com/storefront/internal/domain/model"
)

// ChatRepository はAIチャットのエンドポイントを抽象化します
type ChatRepository interface {
	Send(ctx context.Context, msg model.ChatMessage) (*model.ChatReply, error)
	SendImage(ctx context.Context, msg model.ChatMessage) (*model.ChatReply, error)
	AskAboutProduct(ctx context.Context, q model.ProductQuestion) (string, error)
}
