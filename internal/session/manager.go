package session

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
)

// Listener は1つのクライアントのセッション変更をすべて受け取ります
type Listener func(model.Session)

// Provider は各コンポーネントがストレージを直接読む代わりに注入されるものです
type Provider interface {
	GetSession(ctx context.Context) (model.Session, error)
	OnSessionChange(l Listener) (cancel func())
}

// Manager はセッションを書き込み、変更をクライアントごとに通知します
type Manager struct {
	store Store

	mu        sync.Mutex
	nextID    uint64
	listeners map[string]map[uint64]Listener
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, listeners: make(map[string]map[uint64]Listener)}
}

// Get はクライアントのセッションを読みます
func (m *Manager) Get(ctx context.Context, clientID string) (model.Session, error) {
	return m.store.Get(ctx, clientID)
}

// Update は保存されたセッションにfnを適用して保存し、
// その結果をクライアントのリスナーに通知します
func (m *Manager) Update(ctx context.Context, clientID string, fn func(*model.Session)) (model.Session, error) {
	s, err := m.store.Get(ctx, clientID)
	if err != nil {
		return model.Session{}, err
	}
	fn(&s)
	if err := m.store.Put(ctx, clientID, s); err != nil {
		return model.Session{}, errors.Wrap(err, "save session")
	}
	m.notify(clientID, s)
	return s, nil
}

// Clear はクライアントのセッションを丸ごと削除します
func (m *Manager) Clear(ctx context.Context, clientID string) error {
	if err := m.store.Delete(ctx, clientID); err != nil {
		return err
	}
	m.notify(clientID, model.Session{})
	return nil
}

func (m *Manager) notify(clientID string, s model.Session) {
	m.mu.Lock()
	ls := make([]Listener, 0, len(m.listeners[clientID]))
	for _, l := range m.listeners[clientID] {
		ls = append(ls, l)
	}
	m.mu.Unlock()

	for _, l := range ls {
		l(s)
	}
}

func (m *Manager) subscribe(clientID string, l Listener) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	if m.listeners[clientID] == nil {
		m.listeners[clientID] = make(map[uint64]Listener)
	}
	m.listeners[clientID][id] = l
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.listeners[clientID], id)
			if len(m.listeners[clientID]) == 0 {
				delete(m.listeners, clientID)
			}
		})
	}
}

// Provider は1つのクライアントのセッションを見るためのビューを返します
func (m *Manager) Provider(clientID string) Provider {
	return &clientProvider{m: m, clientID: clientID}
}

type clientProvider struct {
	m        *Manager
	clientID string
}

func (p *clientProvider) GetSession(ctx context.Context) (model.Session, error) {
	return p.m.Get(ctx, p.clientID)
}

func (p *clientProvider) OnSessionChange(l Listener) func() {
	return p.m.subscribe(p.clientID, l)
}
