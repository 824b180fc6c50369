package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
	"kluret.com/storefront/internal/session"
)

// ChatSession はチャット検索の画面です
// チャットサービスは返信ごとに正式な履歴を返すので、ローカルの履歴はそれで置き換えます
type ChatSession struct {
	repo     repository.ChatRepository
	provider session.Provider

	mu      sync.Mutex
	history []model.ChatTurn
}

func NewChatSession(repo repository.ChatRepository, provider session.Provider) *ChatSession {
	return &ChatSession{repo: repo, provider: provider}
}

// Send はテキストメッセージを送信します
func (c *ChatSession) Send(ctx context.Context, text string) (*model.ChatReply, error) {
	return c.send(ctx, text, "", nil)
}

// SendImage は画像付きのメッセージを送信します
// 画像が空ならテキストメッセージとして送ります
func (c *ChatSession) SendImage(ctx context.Context, text, filename string, image []byte) (*model.ChatReply, error) {
	return c.send(ctx, text, filename, image)
}

func (c *ChatSession) send(ctx context.Context, text, filename string, image []byte) (*model.ChatReply, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(image) == 0 {
		return nil, model.ErrEmptyMessage
	}

	s, err := c.provider.GetSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read session")
	}
	msg := model.ChatMessage{UserID: s.UserID, Text: text, History: c.History()}

	var reply *model.ChatReply
	if len(image) > 0 {
		msg.Image = image
		msg.Filename = filename
		reply, err = c.repo.SendImage(ctx, msg)
	} else {
		reply, err = c.repo.Send(ctx, msg)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if reply.History != nil {
		c.history = append([]model.ChatTurn(nil), reply.History...)
	} else {
		c.history = append(c.history,
			model.ChatTurn{Role: "user", Content: text},
			model.ChatTurn{Role: "assistant", Content: reply.Response},
		)
	}
	c.mu.Unlock()
	return reply, nil
}

// AskAboutProduct は1つの商品についてアシスタントに質問します
// チャット履歴には触れません
func (c *ChatSession) AskAboutProduct(ctx context.Context, prompt string, d model.ProductDetail) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", model.ErrEmptyMessage
	}
	return c.repo.AskAboutProduct(ctx, model.ProductQuestion{
		Prompt:      prompt,
		Name:        d.Name,
		Description: d.Description,
	})
}

// History はこれまでの会話のコピーを返します
func (c *ChatSession) History() []model.ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.ChatTurn(nil), c.history...)
}

// Reset は新しい会話を始めます
func (c *ChatSession) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}
