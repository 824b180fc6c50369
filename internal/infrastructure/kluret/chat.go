package kluret

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
)

type chatRequest struct {
	UserInput   string           `json:"user_input"`
	UserHistory []model.ChatTurn `json:"user_history"`
	UserID      string           `json:"user_id"`
}

type chatResponse struct {
	Response           *string          `json:"response"`
	UpdatedUserHistory []model.ChatTurn `json:"updated_user_history"`
}

type productInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type productChatRequest struct {
	Prompt      string      `json:"prompt"`
	ProductInfo productInfo `json:"product_info"`
}

type productChatResponse struct {
	Response *string `json:"response"`
}

type chatClient struct {
	client  *http.Client
	baseURL string
}

// NewChatClient はAIチャットのクライアントを作ります
// チャットの返信は遅いので、タイムアウトは他のサービスより長めにします
func NewChatClient(baseURL string, timeout time.Duration) repository.ChatRepository {
	return newChatClient(&http.Client{Timeout: timeout}, baseURL)
}

func newChatClient(client *http.Client, baseURL string) *chatClient {
	return &chatClient{client: client, baseURL: baseURL}
}

func (c *chatClient) Send(ctx context.Context, msg model.ChatMessage) (*model.ChatReply, error) {
	req := chatRequest{UserInput: msg.Text, UserHistory: nonNilHistory(msg.History), UserID: msg.UserID}
	var res chatResponse
	if err := postJSON(ctx, c.client, joinURL(c.baseURL, "/chat"), nil, req, &res); err != nil {
		return nil, errors.Wrap(err, "chat")
	}
	return res.toModel()
}

// SendImage はメッセージをmultipartで送信します
// 履歴はJSONにエンコードしたフィールドで送ります
func (c *chatClient) SendImage(ctx context.Context, msg model.ChatMessage) (*model.ChatReply, error) {
	history, err := json.Marshal(nonNilHistory(msg.History))
	if err != nil {
		return nil, errors.Wrap(err, "encode history")
	}
	filename := msg.Filename
	if filename == "" {
		filename = "image"
	}
	fields := []formField{
		{Name: "user_input", Value: msg.Text},
		{Name: "user_history", Value: string(history)},
		{Name: "user_id", Value: msg.UserID},
		{Name: "image", File: msg.Image, Filename: filename},
	}

	var res chatResponse
	if err := postForm(ctx, c.client, joinURL(c.baseURL, "/chat_image"), fields, &res); err != nil {
		return nil, errors.Wrap(err, "chat image")
	}
	return res.toModel()
}

func (c *chatClient) AskAboutProduct(ctx context.Context, q model.ProductQuestion) (string, error) {
	req := productChatRequest{
		Prompt:      q.Prompt,
		ProductInfo: productInfo{Name: q.Name, Description: q.Description},
	}
	var res productChatResponse
	if err := postJSON(ctx, c.client, joinURL(c.baseURL, "/product_chat"), nil, req, &res); err != nil {
		return "", errors.Wrap(err, "product chat")
	}
	if res.Response == nil {
		return "", errors.Wrap(model.ErrSchema, "product chat: missing response")
	}
	return *res.Response, nil
}

func (r chatResponse) toModel() (*model.ChatReply, error) {
	if r.Response == nil {
		return nil, errors.Wrap(model.ErrSchema, "chat: missing response")
	}
	return &model.ChatReply{Response: *r.Response, History: r.UpdatedUserHistory}, nil
}

func nonNilHistory(h []model.ChatTurn) []model.ChatTurn {
	if h == nil {
		return []model.ChatTurn{}
	}
	return h
}
