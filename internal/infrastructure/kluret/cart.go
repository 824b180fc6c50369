package kluret

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
	"kluret.com/storefront/internal/pkg/money"
)

type addToCartRequest struct {
	UserID             string   `json:"user_id"`
	ProductID          string   `json:"product_id"`
	Name               string   `json:"name"`
	Price              string   `json:"price"`
	ProductPageURL     string   `json:"product_page_url"`
	CoverImageURL      string   `json:"cover_image_url"`
	DiscountPercentage *float64 `json:"discount_percentage,omitempty"`
	Size               string   `json:"size,omitempty"`
	Color              string   `json:"color,omitempty"`
}

type getCartRequest struct {
	UserID string `json:"user_id"`
}

type cartItemDTO struct {
	ProductID      flexString `json:"product_id"`
	Name           string     `json:"name"`
	Price          flexString `json:"price"`
	Size           string     `json:"size"`
	Color          string     `json:"color"`
	Quantity       int        `json:"quantity"`
	CoverImageURL  string     `json:"cover_image_url"`
	ProductPageURL string     `json:"product_page_url"`
}

type getCartResponse struct {
	CartItems *[]cartItemDTO `json:"cart_items"`
}

type cartClient struct {
	client  *http.Client
	baseURL string
}

// NewCartClient はカートサービスのクライアントを作ります
func NewCartClient(baseURL string, timeout time.Duration) repository.CartRepository {
	return newCartClient(&http.Client{Timeout: timeout}, baseURL)
}

func newCartClient(client *http.Client, baseURL string) *cartClient {
	return &cartClient{client: client, baseURL: baseURL}
}

// Add は商品のスナップショットを送信します。応答の本文は無視します
func (c *cartClient) Add(ctx context.Context, userID string, req model.AddToCartRequest) error {
	size := req.Size
	if size == "" {
		size = req.Product.Size
	}
	color := req.Color
	if color == "" {
		color = req.Product.Color
	}

	body := addToCartRequest{
		UserID:             userID,
		ProductID:          req.Product.ID,
		Name:               req.Product.Name,
		Price:              req.Product.Price,
		ProductPageURL:     req.Product.PageURL,
		CoverImageURL:      req.Product.CoverImageURL,
		DiscountPercentage: req.Product.DiscountPercentage,
		Size:               size,
		Color:              color,
	}
	if err := postJSON(ctx, c.client, joinURL(c.baseURL, "/add_to_cart"), nil, body, nil); err != nil {
		return errors.Wrap(err, "add to cart")
	}
	return nil
}

// Get は件数と合計を計算したカートを返します
// 数量がない行は1個として数えます
func (c *cartClient) Get(ctx context.Context, userID string) (*model.CartSummary, error) {
	var res getCartResponse
	if err := postJSON(ctx, c.client, joinURL(c.baseURL, "/get_cart"), nil, getCartRequest{UserID: userID}, &res); err != nil {
		return nil, errors.Wrap(err, "get cart")
	}
	if res.CartItems == nil {
		return nil, errors.Wrap(model.ErrSchema, "get cart: missing cart_items")
	}

	summary := &model.CartSummary{
		Items: make([]model.CartItem, 0, len(*res.CartItems)),
		Total: decimal.Zero,
	}
	for _, d := range *res.CartItems {
		qty := d.Quantity
		if qty <= 0 {
			qty = 1
		}
		item := model.CartItem{
			UserID:    userID,
			ProductID: d.ProductID.String(),
			Name:      d.Name,
			Size:      d.Size,
			Color:     d.Color,
			Price:     d.Price.String(),
			ImageURL:  d.CoverImageURL,
			PageURL:   d.ProductPageURL,
			Quantity:  qty,
		}
		summary.Items = append(summary.Items, item)
		summary.Count += qty
		if v, err := money.Parse(item.Price); err == nil {
			summary.Total = summary.Total.Add(v.Mul(decimal.NewFromInt(int64(qty))))
		}
	}
	return summary, nil
}
