package kluret

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
	"kluret.com/storefront/internal/pkg/retry"
)

type detailRequest struct {
	URL         string `json:"url"`
	ProductName string `json:"product_name,omitempty"`
}

// detailResponse は3つの詳細エンドポイントをまとめて表します
// それぞれ自分のフィールドだけを埋めます
type detailResponse struct {
	Images      []string `json:"images"`
	Description string   `json:"description"`
	Sizes       []string `json:"sizes"`
}

type detailClient struct {
	client  *http.Client
	baseURL string
	policy  retry.Policy
	logger  *slog.Logger
}

// NewDetailClient は商品詳細のクライアントを作ります
// すべての呼び出しはpolicyに従って再試行します
func NewDetailClient(baseURL string, timeout time.Duration, policy retry.Policy, logger *slog.Logger) repository.DetailRepository {
	return newDetailClient(&http.Client{Timeout: timeout}, baseURL, policy, logger)
}

func newDetailClient(client *http.Client, baseURL string, policy retry.Policy, logger *slog.Logger) *detailClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &detailClient{client: client, baseURL: baseURL, policy: policy, logger: logger}
}

func (c *detailClient) fetch(ctx context.Context, path string, req detailRequest) (*detailResponse, error) {
	var out detailResponse
	url := joinURL(c.baseURL, path)
	attempt := 0
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		attempt++
		out = detailResponse{}
		err := postJSON(ctx, c.client, url, nil, req, &out)
		if err != nil && errors.Is(err, model.ErrSchema) {
			return retry.Permanent(err)
		}
		if err != nil {
			c.logger.Debug("detail fetch failed", "url", url, "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", path)
	}
	return &out, nil
}

// FetchImages は商品画像を順序を保ったまま重複を除いて返します
func (c *detailClient) FetchImages(ctx context.Context, pageURL, productName string) ([]string, error) {
	res, err := c.fetch(ctx, "/images", detailRequest{URL: pageURL, ProductName: productName})
	if err != nil {
		return nil, err
	}
	return dedupe(res.Images), nil
}

// FetchDescription は商品説明とその仕様表の行を返します
func (c *detailClient) FetchDescription(ctx context.Context, pageURL string) (*model.Description, error) {
	res, err := c.fetch(ctx, "/description", detailRequest{URL: pageURL})
	if err != nil {
		return nil, err
	}
	specs, err := parseSpecs(res.Description)
	if err != nil {
		// 生のテキストだけでも表示する価値がある
		c.logger.Warn("failed to parse description table", "url", pageURL, "error", err)
	}
	return &model.Description{HTML: res.Description, Specs: specs}, nil
}

// FetchSizes は選べるサイズをサーバーの順に返します
func (c *detailClient) FetchSizes(ctx context.Context, pageURL string) ([]string, error) {
	res, err := c.fetch(ctx, "/sizes", detailRequest{URL: pageURL})
	if err != nil {
		return nil, err
	}
	sizes := make([]string, 0, len(res.Sizes))
	for _, s := range res.Sizes {
		if s = strings.TrimSpace(s); s != "" {
			sizes = append(sizes, s)
		}
	}
	return sizes, nil
}

// parseSpecs は説明文の断片から"<tr><th>Label</th><td>Value</td></tr>"形式の行を読み取ります
// セルが2つ未満の行は読み飛ばします
func parseSpecs(fragment string) ([]model.SpecRow, error) {
	if !strings.Contains(fragment, "<tr") {
		return nil, nil
	}
	// tableの外にある裸の行はHTMLパーサーが捨ててしまう
	if !strings.Contains(fragment, "<table") {
		fragment = "<table>" + fragment + "</table>"
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse HTML")
	}

	var rows []model.SpecRow
	doc.Find("tr").Each(func(i int, s *goquery.Selection) {
		cells := s.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSpace(cells.Eq(0).Text())
		value := strings.TrimSpace(cells.Eq(1).Text())
		if label == "" {
			return
		}
		rows = append(rows, model.SpecRow{Label: label, Value: value})
	})
	return rows, nil
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
