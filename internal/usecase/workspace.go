package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
	"kluret.com/storefront/internal/eventbus"
	"kluret.com/storefront/internal/session"
)

// gatedActionTimeout はログイン後に実行される保留中の処理の制限時間です
const gatedActionTimeout = 30 * time.Second

// CartEventPublisher はカートの変更を、場合によっては他のプロセスにも知らせます
type CartEventPublisher interface {
	Publish(ctx context.Context, ev model.CartMutated) error
}

// LocalPublisher はプロセス内のBusにだけ発行します
type LocalPublisher struct {
	Bus *eventbus.Bus[model.CartMutated]
}

func (p LocalPublisher) Publish(_ context.Context, ev model.CartMutated) error {
	p.Bus.Publish(ev)
	return nil
}

// Deps はすべてのワークスペースで共有される依存関係です
type Deps struct {
	Search   repository.SearchRepository
	Detail   repository.DetailRepository
	Cart     repository.CartRepository
	Auth     repository.AuthRepository
	Chat     repository.ChatRepository
	Store    repository.StoreRepository
	Sessions *session.Manager

	CartEvents    *eventbus.Bus[model.CartMutated]
	CartPublisher CartEventPublisher
	PollInterval  time.Duration
	Logger        *slog.Logger
	Now           func() time.Time
}

// Workspace は1つのブラウザクライアントの画面状態です
type Workspace struct {
	ID       string
	Provider session.Provider
	Search   *SearchController
	Scroll   *ScrollCoordinator
	Signals  *Signals
	Gate     *AuthGate
	Detail   *DetailView
	Chat     *ChatSession
	Store    *Dashboard

	deps   Deps
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	lastSeen time.Time
	lastGate error
}

func newWorkspace(id string, deps Deps) *Workspace {
	ctx, cancel := context.WithCancel(context.Background())
	logger := deps.Logger.With("client_id", id)
	provider := deps.Sessions.Provider(id)
	search := NewSearchController(deps.Search, logger)
	signals := NewSignals()

	return &Workspace{
		ID:       id,
		Provider: provider,
		Search:   search,
		Scroll:   NewScrollCoordinator(ctx, search, signals.NewObserver, logger),
		Signals:  signals,
		Gate:     NewAuthGate(provider, logger),
		Detail:   NewDetailView(NewDetailLoader(deps.Detail, logger)),
		Chat:     NewChatSession(deps.Chat, provider),
		Store:    NewDashboard(deps.Store, deps.Sessions, id),
		deps:     deps,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		lastSeen: deps.Now(),
	}
}

// Login は買い物客を認証します
// セッションの変更で保留中の処理が再開され、Loginが戻る前に実行されます
func (w *Workspace) Login(ctx context.Context, creds model.Credentials) (model.Session, error) {
	userID, err := w.deps.Auth.Login(ctx, creds)
	if err != nil {
		return model.Session{}, err
	}
	return w.setUser(ctx, userID)
}

// Register はアカウントを作成し、そのアカウントでログインします
func (w *Workspace) Register(ctx context.Context, creds model.Credentials) (model.Session, error) {
	userID, err := w.deps.Auth.Register(ctx, creds)
	if err != nil {
		return model.Session{}, err
	}
	return w.setUser(ctx, userID)
}

func (w *Workspace) setUser(ctx context.Context, userID string) (model.Session, error) {
	return w.deps.Sessions.Update(ctx, w.ID, func(s *model.Session) { s.UserID = userID })
}

// Logout は買い物客の情報を破棄しますが、ダッシュボードの認証情報は残します
func (w *Workspace) Logout(ctx context.Context) error {
	_, err := w.setUser(ctx, "")
	if err == nil {
		w.Chat.Reset()
	}
	return err
}

// AddToCart はログイン済みなら商品を追加してtrueを返し、
// 未ログインならログインモーダルの後ろに保留してfalseを返します
func (w *Workspace) AddToCart(ctx context.Context, req model.AddToCartRequest) (bool, error) {
	var (
		mu     sync.Mutex
		addErr error
	)
	ran := w.Gate.CheckAuth(ctx, func(s model.Session) {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), gatedActionTimeout)
		defer cancel()
		err := w.addToCart(actx, s, req)

		mu.Lock()
		addErr = err
		mu.Unlock()
		w.mu.Lock()
		w.lastGate = err
		w.mu.Unlock()
	})
	if !ran {
		return false, nil
	}
	mu.Lock()
	defer mu.Unlock()
	return true, addErr
}

// LastGatedError は直近の保留中の処理の結果を返します
func (w *Workspace) LastGatedError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastGate
}

func (w *Workspace) addToCart(ctx context.Context, s model.Session, req model.AddToCartRequest) error {
	err := w.deps.Cart.Add(ctx, s.UserID, req)
	if errors.Is(err, model.ErrUnauthorized) {
		w.forgetUser(ctx)
	}
	if err != nil {
		w.logger.Error("failed to add to cart", "product_id", req.Product.ID, "error", err)
		return err
	}

	ev := model.CartMutated{UserID: s.UserID, ProductID: req.Product.ID, At: w.deps.Now()}
	if err := w.deps.CartPublisher.Publish(ctx, ev); err != nil {
		w.logger.Warn("failed to publish cart mutation", "error", err)
	}
	return nil
}

// forgetUser はリモート側が受け付けなくなったセッションを破棄します
func (w *Workspace) forgetUser(ctx context.Context) {
	if _, err := w.setUser(ctx, ""); err != nil {
		w.logger.Warn("failed to clear rejected session", "error", err)
	}
}

// NewCartBadge はこのワークスペースに結び付いたバッジを返します
// 呼び出し元がRunしている間だけ動きます
func (w *Workspace) NewCartBadge() *CartBadge {
	b := NewCartBadge(w.deps.Cart, w.Provider, w.deps.CartEvents, w.deps.PollInterval, w.logger)
	b.OnUnauthorized = w.forgetUser
	return b
}

// Cart はログイン済みの買い物客のカートを読みます
func (w *Workspace) Cart(ctx context.Context) (*model.CartSummary, error) {
	s, err := w.Provider.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if !s.Authenticated() {
		return nil, model.ErrNotAuthenticated
	}
	summary, err := w.deps.Cart.Get(ctx, s.UserID)
	if errors.Is(err, model.ErrUnauthorized) {
		w.forgetUser(ctx)
	}
	return summary, err
}

// Context はワークスペースが閉じるとキャンセルされます
func (w *Workspace) Context() context.Context {
	return w.ctx
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Close はワークスペースの全コンポーネントを破棄します
func (w *Workspace) Close() {
	w.cancel()
	w.Scroll.Close()
	w.Search.Close()
	w.Gate.Close()
	w.Detail.Close()
}

// Workspaces はクライアントIDからワークスペースを引きます
type Workspaces struct {
	deps Deps

	mu sync.Mutex
	m  map[string]*Workspace
}

// NewWorkspaces は省略可能な依存関係の既定値を埋めます
func NewWorkspaces(deps Deps) *Workspaces {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.CartEvents == nil {
		deps.CartEvents = eventbus.New[model.CartMutated]()
	}
	if deps.CartPublisher == nil {
		deps.CartPublisher = LocalPublisher{Bus: deps.CartEvents}
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = DefaultPollInterval
	}
	return &Workspaces{deps: deps, m: make(map[string]*Workspace)}
}

// Get はclientIDのワークスペースを返します。初回は作成します
func (ws *Workspaces) Get(clientID string) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	w, ok := ws.m[clientID]
	if !ok {
		w = newWorkspace(clientID, ws.deps)
		ws.m[clientID] = w
	}
	w.touch(ws.deps.Now())
	return w
}

// Len は開いているワークスペースの数を返します
func (ws *Workspaces) Len() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.m)
}

// Sweep はmaxIdleの間使われなかったワークスペースを閉じ、その数を返します
// セッションは残すので、戻ってきたクライアントには同じセッションの新しい画面を作ります
func (ws *Workspaces) Sweep(maxIdle time.Duration) int {
	cutoff := ws.deps.Now().Add(-maxIdle)

	ws.mu.Lock()
	var idle []*Workspace
	for id, w := range ws.m {
		if w.idleSince().Before(cutoff) {
			idle = append(idle, w)
			delete(ws.m, id)
		}
	}
	ws.mu.Unlock()

	for _, w := range idle {
		w.Close()
	}
	return len(idle)
}

// RunSweeper はctxが終わるまでintervalごとにSweepを呼びます
func (ws *Workspaces) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := ws.Sweep(maxIdle); n > 0 {
				ws.deps.Logger.Debug("closed idle workspaces", "count", n)
			}
		}
	}
}

// Close はすべてのワークスペースを閉じます
func (ws *Workspaces) Close() {
	ws.mu.Lock()
	all := ws.m
	ws.m = make(map[string]*Workspace)
	ws.mu.Unlock()

	for _, w := range all {
		w.Close()
	}
}
