package usecase

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
	"kluret.com/storefront/internal/eventbus"
)

// SearchErrorMessage はインラインのエラーパネルに表示する文言です
const SearchErrorMessage = "Failed to fetch products. Please try again."

// ErrSuperseded は完了前に新しい検索に置き換えられた呼び出し元に返します
// その結果は捨てられています
var ErrSuperseded = errors.New("search superseded")

// SearchController は1つの検索画面のクエリ・価格帯・ページ位置を持ち、
// 結果のページをサーバーの順序で結合します
type SearchController struct {
	repo   repository.SearchRepository
	logger *slog.Logger
	events *eventbus.Bus[model.SearchState]

	mu       sync.Mutex
	state    model.SearchState
	searched bool // 空でないクエリを一度でも発行した
	gen      uint64
	cancel   context.CancelFunc
}

// NewSearchController は空の状態のコントローラーを作ります
func NewSearchController(repo repository.SearchRepository, logger *slog.Logger) *SearchController {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchController{
		repo:   repo,
		logger: logger,
		events: eventbus.New[model.SearchState](),
		state:  model.SearchState{PriceRange: model.DefaultPriceRange, Page: 1},
	}
}

// State は現在の状態のコピーを返します
func (c *SearchController) State() model.SearchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// OnChange は状態が変わるたびに呼ばれるfnを登録します。fnの中でStateを読めます
func (c *SearchController) OnChange(fn func(model.SearchState)) (cancel func()) {
	return c.events.Subscribe(fn)
}

// PerformSearch は検索を実行します。クエリが空なら検索エンジンを呼ばずに結果を消します
// resetありならページ位置を1に戻して結果を置き換え、なしなら現在のページを追加します
// resetは実行中のリクエストもキャンセルします
func (c *SearchController) PerformSearch(ctx context.Context, query string, pr model.PriceRange, reset bool) (model.SearchState, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		c.mu.Lock()
		c.supersedeLocked()
		c.searched = false
		c.state = model.SearchState{PriceRange: pr, Page: 1}
		snap := c.state.Clone()
		c.mu.Unlock()

		c.events.Publish(snap)
		return snap, nil
	}
	if !pr.Valid() {
		return c.State(), errors.Wrapf(model.ErrInvalidPriceRange, "%d-%d", pr.Min, pr.Max)
	}

	c.mu.Lock()
	if reset {
		c.supersedeLocked()
		c.state = model.SearchState{Query: q, PriceRange: pr, Page: 1}
	} else {
		c.state.Query = q
		c.state.PriceRange = pr
	}
	c.searched = true
	reqCtx, g := c.beginLocked(ctx)
	params := model.SearchParams{Query: q, Page: c.state.Page, PriceRange: pr}
	c.mu.Unlock()

	return c.execute(reqCtx, g, params, reset)
}

// LoadMore は直前のクエリの次のページを取得します
// リクエストの実行中、空のページが返った後、クエリをまだ発行していないときは
// 何もせずfalseを返します
func (c *SearchController) LoadMore(ctx context.Context) (model.SearchState, bool, error) {
	c.mu.Lock()
	if c.state.Loading || !c.state.HasMore || !c.searched {
		snap := c.state.Clone()
		c.mu.Unlock()
		return snap, false, nil
	}
	c.state.Page++
	reqCtx, g := c.beginLocked(ctx)
	params := model.SearchParams{Query: c.state.Query, Page: c.state.Page, PriceRange: c.state.PriceRange}
	c.mu.Unlock()

	st, err := c.execute(reqCtx, g, params, false)
	return st, true, err
}

// Close は実行中のリクエストをキャンセルします
func (c *SearchController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.supersedeLocked()
}

// supersedeLocked は実行中のリクエストを無効にし、そのレスポンスを捨てるようにします
func (c *SearchController) supersedeLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *SearchController) beginLocked(ctx context.Context) (context.Context, uint64) {
	c.gen++
	if c.cancel != nil {
		c.cancel()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.state.Loading = true
	c.state.Error = ""
	return reqCtx, c.gen
}

func (c *SearchController) execute(ctx context.Context, g uint64, params model.SearchParams, reset bool) (model.SearchState, error) {
	c.events.Publish(c.State())

	page, err := c.repo.Search(ctx, params)

	c.mu.Lock()
	if g != c.gen {
		snap := c.state.Clone()
		c.mu.Unlock()
		return snap, ErrSuperseded
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.state.Loading = false

	if err != nil {
		c.state.Error = SearchErrorMessage
		if reset {
			c.state.Products = nil
			c.state.HasMore = false
		} else {
			// 次の追加読み込みで同じページをもう一度要求する
			c.state.Page--
		}
		snap := c.state.Clone()
		c.mu.Unlock()

		c.logger.Error("failed to fetch products", "query", params.Query, "page", params.Page, "error", err)
		c.events.Publish(snap)
		return snap, err
	}

	if reset {
		c.state.Products = page.Products
	} else {
		c.state.Products = append(c.state.Products, page.Products...)
	}
	// 不正な結果しかないページでも、サーバーにはまだ結果がある
	c.state.HasMore = page.Received > 0
	snap := c.state.Clone()
	c.mu.Unlock()

	c.events.Publish(snap)
	return snap, nil
}
