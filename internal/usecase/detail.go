package usecase

import (
	"context"
	"log/slog"
	"sync"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
)

// DetailLoader は3つの独立した取得でProductDetailを埋めます
type DetailLoader struct {
	repo   repository.DetailRepository
	logger *slog.Logger
}

func NewDetailLoader(repo repository.DetailRepository, logger *slog.Logger) *DetailLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetailLoader{repo: repo, logger: logger}
}

// Load はまずカバー画像だけの詳細を送り、その後は取得が終わるたびに
// 終わった順にスナップショットを送ります。失敗した取得はそのフィールドを既定値のままにし、
// 他のフィールドには影響しません。3つすべてが終わったら戻ります
// onUpdateは順番に呼ばれます。nilでもかまいません
func (l *DetailLoader) Load(ctx context.Context, stub model.Product, onUpdate func(model.ProductDetail)) model.ProductDetail {
	cover := coverImages(stub)
	d := model.ProductDetail{
		ProductID: stub.ID,
		Name:      stub.Name,
		Price:     stub.Price,
		PageURL:   stub.PageURL,
		Images:    cover,
		Sizes:     []string{},
	}

	var mu sync.Mutex
	merge := func(apply func(*model.ProductDetail)) {
		mu.Lock()
		defer mu.Unlock()
		apply(&d)
		if onUpdate != nil {
			onUpdate(d.Clone())
		}
	}
	merge(func(*model.ProductDetail) {})

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		images, err := l.repo.FetchImages(ctx, stub.PageURL, stub.Name)
		if err != nil {
			l.logger.Warn("failed to fetch product images", "product_id", stub.ID, "error", err)
		}
		merge(func(d *model.ProductDetail) {
			d.Images = uniqueOr(images, cover)
			d.ImagesLoaded = true
		})
	}()

	go func() {
		defer wg.Done()
		desc, err := l.repo.FetchDescription(ctx, stub.PageURL)
		if err != nil {
			l.logger.Warn("failed to fetch product description", "product_id", stub.ID, "error", err)
		}
		merge(func(d *model.ProductDetail) {
			if err == nil && desc != nil {
				d.Description = desc.HTML
				d.Specs = desc.Specs
			}
			d.DescriptionLoaded = true
		})
	}()

	go func() {
		defer wg.Done()
		sizes, err := l.repo.FetchSizes(ctx, stub.PageURL)
		if err != nil {
			l.logger.Warn("failed to fetch product sizes", "product_id", stub.ID, "error", err)
		}
		merge(func(d *model.ProductDetail) {
			if err == nil && sizes != nil {
				d.Sizes = append([]string(nil), sizes...)
			}
			d.SizesLoaded = true
		})
	}()

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	return d.Clone()
}

func coverImages(p model.Product) []string {
	if p.CoverImageURL == "" {
		return []string{}
	}
	return []string{p.CoverImageURL}
}

// uniqueOr は最初に出たものを残して画像の重複を除きます
// 何も残らなければdefを返します
func uniqueOr(images, def []string) []string {
	seen := make(map[string]bool, len(images))
	out := make([]string, 0, len(images))
	for _, img := range images {
		if img == "" || seen[img] {
			continue
		}
		seen[img] = true
		out = append(out, img)
	}
	if len(out) == 0 {
		return append([]string(nil), def...)
	}
	return out
}

// DetailView はワークスペースで開いている1つの商品です
// 別の商品を開くと前の読み込みをキャンセルし、遅れて届いた結果は捨てます
type DetailView struct {
	loader *DetailLoader

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *model.ProductDetail
}

func NewDetailView(loader *DetailLoader) *DetailView {
	return &DetailView{loader: loader}
}

// Open はstubを読み込み、この商品のスナップショットだけを転送します
func (v *DetailView) Open(ctx context.Context, stub model.Product, onUpdate func(model.ProductDetail)) model.ProductDetail {
	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	v.gen++
	g := v.gen
	loadCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.current = nil
	v.mu.Unlock()
	defer cancel()

	return v.loader.Load(loadCtx, stub, func(d model.ProductDetail) {
		v.mu.Lock()
		if g != v.gen {
			v.mu.Unlock()
			return
		}
		v.current = &d
		v.mu.Unlock()

		if onUpdate != nil {
			onUpdate(d)
		}
	})
}

// Current は開いている商品の最新のスナップショットを返します
func (v *DetailView) Current() (model.ProductDetail, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return model.ProductDetail{}, false
	}
	return v.current.Clone(), true
}

// Close は実行中の読み込みをキャンセルします
func (v *DetailView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.current = nil
}
