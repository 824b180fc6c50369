// Package session はブラウザがローカルストレージに持っていたクライアントごとのセッションを保持し、
// 変更を関係するコンポーネントに通知します
package session

import (
	"context"
	"sync"

	"kluret.com/storefront/internal/domain/model"
)

// Store はクライアントIDごとに1つのSessionを永続化します
// エントリがなければエラーではなくゼロ値のSessionです
type Store interface {
	Get(ctx context.Context, clientID string) (model.Session, error)
	Put(ctx context.Context, clientID string, s model.Session) error
	Delete(ctx context.Context, clientID string) error
}

// MemoryStore はプロセス内のStoreです
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]model.Session)}
}

func (m *MemoryStore) Get(_ context.Context, clientID string) (model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions[clientID], nil
}

func (m *MemoryStore) Put(_ context.Context, clientID string, s model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.Empty() {
		delete(m.sessions, clientID)
		return nil
	}
	m.sessions[clientID] = s
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, clientID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, clientID)
	return nil
}
