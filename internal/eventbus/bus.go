// Package eventbus はカートの変更をカートバッジに伝える型付きのPub/Subです
package eventbus

import "sync"

// Bus は発行されたイベントを発行順に全購読者へ同期的に配信します
// 並行に使っても安全です
type Bus[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]func(T)
}

// New は空のBusを返します
func New[T any]() *Bus[T] {
	return &Bus[T]{subs: make(map[uint64]func(T))}
}

// Subscribe はfnを登録し、登録を解除する関数を返します
// 返した関数は何度呼んでも問題ありません
func (b *Bus[T]) Subscribe(fn func(T)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Publish は現在の購読者にevを渡します。購読者はブロックしてはいけません
// コールバックの中から購読を解除することはできます
func (b *Bus[T]) Publish(ev T) {
	b.mu.RLock()
	fns := make([]func(T), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// Len は購読者の数を返します
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
