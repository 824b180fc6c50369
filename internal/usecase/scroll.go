package usecase

import (
	"context"
	"log/slog"
	"sync"

	"kluret.com/storefront/internal/domain/model"
)

// Observer は1つの対象を監視し、表示されたらコールバックを呼びます
type Observer interface {
	Observe(target string, onVisible func())
	Disconnect()
}

// Signals はブラウザが商品カードの表示を知らせたときに発火するObserverを作ります
type Signals struct {
	mu        sync.Mutex
	observers map[*signalObserver]struct{}
}

func NewSignals() *Signals {
	return &Signals{observers: make(map[*signalObserver]struct{})}
}

// NewObserver はsに結び付いたObserverを返します
func (s *Signals) NewObserver() Observer {
	return &signalObserver{signals: s}
}

// Signal はtargetが表示されたことを知らせ、発火したObserverの数を返します
func (s *Signals) Signal(target string) int {
	s.mu.Lock()
	var fire []func()
	for o := range s.observers {
		if o.target == target && o.onVisible != nil {
			fire = append(fire, o.onVisible)
		}
	}
	s.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
	return len(fire)
}

// Live は接続中のObserverの数を返します
func (s *Signals) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.observers)
}

type signalObserver struct {
	signals   *Signals
	target    string
	onVisible func()
}

func (o *signalObserver) Observe(target string, onVisible func()) {
	o.signals.mu.Lock()
	defer o.signals.mu.Unlock()
	o.target = target
	o.onVisible = onVisible
	o.signals.observers[o] = struct{}{}
}

func (o *signalObserver) Disconnect() {
	o.signals.mu.Lock()
	defer o.signals.mu.Unlock()
	delete(o.signals.observers, o)
	o.onVisible = nil
}

// ScrollCoordinator は最後に描画された商品に常に1つだけObserverを付け、
// それが表示されたら次のページを読み込みます
type ScrollCoordinator struct {
	ctx         context.Context
	search      *SearchController
	newObserver func() Observer
	logger      *slog.Logger

	mu     sync.Mutex
	live   Observer
	target string
	closed bool

	unsubscribe func()
}

// NewScrollCoordinator はsearchに追従し、ページごとに付け直します
// 表示をきっかけにした読み込みはctxで実行します
func NewScrollCoordinator(ctx context.Context, search *SearchController, newObserver func() Observer, logger *slog.Logger) *ScrollCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	s := &ScrollCoordinator{ctx: ctx, search: search, newObserver: newObserver, logger: logger}
	s.unsubscribe = search.OnChange(s.follow)
	return s
}

func (s *ScrollCoordinator) follow(st model.SearchState) {
	if st.Loading {
		return
	}
	s.Attach(st.LastProductID())
}

// Attach は接続中のObserverを外し、代わりにtargetを監視します
// targetが空なら何も監視しません
func (s *ScrollCoordinator) Attach(target string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.live != nil && s.target == target {
		return
	}
	if s.live != nil {
		s.live.Disconnect()
		s.live = nil
	}
	s.target = target
	if target == "" {
		return
	}
	o := s.newObserver()
	o.Observe(target, s.onVisible)
	s.live = o
}

// Target は現在監視している商品IDを返します
func (s *ScrollCoordinator) Target() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.live == nil {
		return ""
	}
	return s.target
}

func (s *ScrollCoordinator) onVisible() {
	st := s.search.State()
	if !st.HasMore || st.Loading {
		return
	}
	if _, _, err := s.search.LoadMore(s.ctx); err != nil {
		s.logger.Warn("infinite scroll load failed", "query", st.Query, "error", err)
	}
}

// Close は接続中のObserverを外します。以降のシグナルでは何も起きません
func (s *ScrollCoordinator) Close() {
	s.unsubscribe()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.live != nil {
		s.live.Disconnect()
		s.live = nil
	}
}
