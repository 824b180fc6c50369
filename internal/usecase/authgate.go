package usecase

import (
	"context"
	"log/slog"
	"sync"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/session"
)

// GatedAction はセッションが使えるようになったら実行される処理です
type GatedAction func(model.Session)

// AuthGate はログイン済みの買い物客が必要な処理を実行します
// セッションがなければ処理を保留してログインモーダルを開き、次のログイン成功後に1回だけ実行します
// 保留しておくのは最新の1件だけです
type AuthGate struct {
	provider session.Provider
	logger   *slog.Logger

	mu        sync.Mutex
	pending   GatedAction
	modalOpen bool

	unsubscribe func()
}

func NewAuthGate(provider session.Provider, logger *slog.Logger) *AuthGate {
	if logger == nil {
		logger = slog.Default()
	}
	g := &AuthGate{provider: provider, logger: logger}
	g.unsubscribe = provider.OnSessionChange(g.onSessionChange)
	return g
}

// CheckAuth はセッションがあればactionをすぐ実行してtrueを返します
// なければactionを保留し、モーダルを開いてfalseを返します
func (g *AuthGate) CheckAuth(ctx context.Context, action GatedAction) bool {
	s, err := g.provider.GetSession(ctx)
	if err != nil {
		g.logger.Warn("failed to read session, treating as logged out", "error", err)
	}
	if err == nil && s.Authenticated() {
		action(s)
		return true
	}

	g.mu.Lock()
	g.pending = action
	g.modalOpen = true
	g.mu.Unlock()
	return false
}

func (g *AuthGate) onSessionChange(s model.Session) {
	if !s.Authenticated() {
		return
	}

	g.mu.Lock()
	action := g.pending
	g.pending = nil
	g.modalOpen = false
	g.mu.Unlock()

	if action != nil {
		action(s)
	}
}

// ModalOpen はログインモーダルを表示すべきかを返します
func (g *AuthGate) ModalOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.modalOpen
}

// Pending はログイン待ちの処理があるかを返します
func (g *AuthGate) Pending() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pending != nil
}

// Dismiss はモーダルを閉じ、保留中の処理を破棄します
func (g *AuthGate) Dismiss() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = nil
	g.modalOpen = false
}

// Close はセッション変更の監視をやめます
func (g *AuthGate) Close() {
	g.unsubscribe()
	g.Dismiss()
}
