package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
	"kluret.com/storefront/internal/eventbus"
	"kluret.com/storefront/internal/session"
)

// DefaultPollInterval はバッジがカートを読み直す間隔です
const DefaultPollInterval = time.Second

// CartBadge はカートの件数をリモートのカートと同期させます
// 開始時、一定間隔ごと、その買い物客のカートが変更されるたびに更新します
// 更新同士は互いを待ちません。適用済みのものより古いレスポンスは捨てます
type CartBadge struct {
	repo     repository.CartRepository
	provider session.Provider
	events   *eventbus.Bus[model.CartMutated]
	interval time.Duration
	logger   *slog.Logger

	// OnUnauthorized はカートサービスがセッションを拒否したときに呼ばれます
	OnUnauthorized func(ctx context.Context)

	pubMu   sync.Mutex // 配信の順序を守る
	mu      sync.Mutex
	issued  uint64
	applied uint64
	userID  string
	state   model.CartBadgeState
	subs    *eventbus.Bus[model.CartBadgeState]
}

func NewCartBadge(repo repository.CartRepository, provider session.Provider, events *eventbus.Bus[model.CartMutated], interval time.Duration, logger *slog.Logger) *CartBadge {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CartBadge{
		repo:     repo,
		provider: provider,
		events:   events,
		interval: interval,
		logger:   logger,
		state:    model.CartBadgeState{Total: decimal.Zero},
		subs:     eventbus.New[model.CartBadgeState](),
	}
}

// State は現在のバッジ状態を返します
func (b *CartBadge) State() model.CartBadgeState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe はバッジの変更を受け取るfnを登録します。fnはブロックしてはいけません
func (b *CartBadge) Subscribe(fn func(model.CartBadgeState)) (cancel func()) {
	return b.subs.Subscribe(fn)
}

// Run はctxが終わるまでバッジを同期させます
// 戻った時点で実行中の更新はなく、以降の配信もありません
func (b *CartBadge) Run(ctx context.Context) error {
	var (
		wg      sync.WaitGroup
		runMu   sync.Mutex
		stopped bool
	)
	trigger := func() {
		runMu.Lock()
		defer runMu.Unlock()
		if stopped {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.refresh(ctx)
		}()
	}

	unsubCart := b.events.Subscribe(func(ev model.CartMutated) {
		if ctx.Err() != nil {
			return
		}
		if b.concerns(ctx, ev) {
			trigger()
		}
	})
	unsubSession := b.provider.OnSessionChange(func(model.Session) {
		if ctx.Err() == nil {
			trigger()
		}
	})

	trigger()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			unsubCart()
			unsubSession()
			runMu.Lock()
			stopped = true
			runMu.Unlock()
			wg.Wait()
			return nil
		case <-ticker.C:
			trigger()
		}
	}
}

// concerns はevがこのバッジの買い物客に関するものかを返します
// ログイン直後はまだ更新が終わっていないことがあるので、セッションは毎回読み直します
func (b *CartBadge) concerns(ctx context.Context, ev model.CartMutated) bool {
	if ev.UserID == "" {
		return true
	}
	b.mu.Lock()
	last := b.userID
	b.mu.Unlock()
	if ev.UserID == last {
		return true
	}
	s, err := b.provider.GetSession(ctx)
	if err != nil {
		b.logger.Warn("failed to read session for cart event", "error", err)
		return false
	}
	return ev.UserID == s.UserID
}

// Refresh はカートを1回読み込みます
func (b *CartBadge) Refresh(ctx context.Context) {
	b.refresh(ctx)
}

func (b *CartBadge) refresh(ctx context.Context) {
	b.mu.Lock()
	b.issued++
	seq := b.issued
	b.mu.Unlock()
	b.publish(func(st *model.CartBadgeState) bool {
		if st.Status == model.BadgeFetching {
			return false
		}
		st.Status = model.BadgeFetching
		return true
	})

	summary, userID, err := b.fetch(ctx)
	if ctx.Err() != nil {
		return
	}
	if errors.Is(err, model.ErrUnauthorized) && b.OnUnauthorized != nil {
		b.OnUnauthorized(ctx)
	}

	b.publish(func(st *model.CartBadgeState) bool {
		if seq <= b.applied {
			return false
		}
		b.applied = seq
		b.userID = userID

		if err != nil {
			st.Error = err.Error()
		} else {
			st.Count = summary.Count
			st.Total = summary.Total
			st.Error = ""
		}
		switch {
		case seq < b.issued:
			st.Status = model.BadgeFetching
		case err != nil:
			st.Status = model.BadgeError
		default:
			st.Status = model.BadgeIdle
		}
		return true
	})
	if err != nil {
		b.logger.Warn("failed to fetch cart", "user_id", userID, "error", err)
	}
}

func (b *CartBadge) fetch(ctx context.Context) (*model.CartSummary, string, error) {
	s, err := b.provider.GetSession(ctx)
	if err != nil {
		return nil, "", errors.Wrap(err, "read session")
	}
	if !s.Authenticated() {
		return &model.CartSummary{Total: decimal.Zero}, "", nil
	}
	summary, err := b.repo.Get(ctx, s.UserID)
	return summary, s.UserID, err
}

// publish は状態のロック下でfnを適用し、変更があれば
// 変更した順に新しい状態を購読者へ渡します
func (b *CartBadge) publish(fn func(*model.CartBadgeState) bool) {
	b.pubMu.Lock()
	defer b.pubMu.Unlock()

	b.mu.Lock()
	changed := fn(&b.state)
	snap := b.state
	b.mu.Unlock()

	if changed {
		b.subs.Publish(snap)
	}
}
