package kluret

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
)

// productDTO は検索エンジンがエンコードした検索結果の1件です
type productDTO struct {
	ProductID          flexString  `json:"product_id"`
	Name               string      `json:"name"`
	Price              flexString  `json:"price"`
	ProductPageURL     string      `json:"product_page_url"`
	CoverImageURL      string      `json:"cover_image_url"`
	DiscountPercentage *flexString `json:"discount_percentage"`
	Color              string      `json:"color"`
	Size               string      `json:"size"`
}

type searchClient struct {
	client  *http.Client
	baseURL string
	logger  *slog.Logger
}

// NewSearchClient は検索エンジンのクライアントを作ります
func NewSearchClient(baseURL string, timeout time.Duration, logger *slog.Logger) repository.SearchRepository {
	return newSearchClient(&http.Client{Timeout: timeout}, baseURL, logger)
}

// newSearchClient はテストからhttp.ClientとbaseURLを差し込めるようにします
func newSearchClient(client *http.Client, baseURL string, logger *slog.Logger) *searchClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &searchClient{client: client, baseURL: baseURL, logger: logger}
}

// Search はクエリをform-dataで送信し、順位付きのリストを変換します
func (c *searchClient) Search(ctx context.Context, params model.SearchParams) (*model.SearchPage, error) {
	fields := []formField{
		{Name: "product_name", Value: params.Query},
		{Name: "page_index", Value: strconv.Itoa(params.Page)},
		{Name: "min_price", Value: strconv.FormatInt(params.PriceRange.Min, 10)},
		{Name: "max_price", Value: strconv.FormatInt(params.PriceRange.Max, 10)},
	}

	var raw json.RawMessage
	if err := postForm(ctx, c.client, joinURL(c.baseURL, "/search"), fields, &raw); err != nil {
		return nil, errors.Wrap(err, "search")
	}

	dtos, err := decodeProductList(raw)
	if err != nil {
		return nil, err
	}
	return &model.SearchPage{Products: c.toProducts(dtos), Received: len(dtos)}, nil
}

// decodeProductList は配列そのものか、"products"または"results"の下に
// 配列を包んだオブジェクトのどちらも受け付けます
func decodeProductList(raw json.RawMessage) ([]productDTO, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		var list []productDTO
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, errors.Wrapf(model.ErrSchema, "product list: %v", err)
		}
		return list, nil
	case '{':
		var wrapped struct {
			Products []productDTO `json:"products"`
			Results  []productDTO `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, errors.Wrapf(model.ErrSchema, "product list: %v", err)
		}
		if wrapped.Products != nil {
			return wrapped.Products, nil
		}
		return wrapped.Results, nil
	default:
		return nil, errors.Wrap(model.ErrSchema, "product list is neither array nor object")
	}
}

// toProducts はサーバーの順序を保ち、IDか名前のない結果を捨てます
func (c *searchClient) toProducts(dtos []productDTO) []model.Product {
	products := make([]model.Product, 0, len(dtos))
	for i, d := range dtos {
		p, ok := d.toModel()
		if !ok {
			c.logger.Warn("dropping malformed search hit", "index", i, "product_id", d.ProductID.String())
			continue
		}
		products = append(products, p)
	}
	return products
}

func (d productDTO) toModel() (model.Product, bool) {
	id := d.ProductID.String()
	name := strings.TrimSpace(d.Name)
	if id == "" || name == "" {
		return model.Product{}, false
	}

	p := model.Product{
		ID:            id,
		Name:          name,
		Price:         d.Price.String(),
		PageURL:       d.ProductPageURL,
		CoverImageURL: d.CoverImageURL,
		Color:         d.Color,
		Size:          d.Size,
	}
	if d.DiscountPercentage != nil {
		s := strings.TrimSuffix(d.DiscountPercentage.String(), "%")
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && v > 0 {
			p.DiscountPercentage = &v
		}
	}
	return p, true
}
