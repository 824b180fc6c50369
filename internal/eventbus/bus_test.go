package eventbus

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBus_deliversToAllSubscribers(t *testing.T) {
	t.Parallel()

	b := New[int]()
	var a, c []int
	b.Subscribe(func(v int) { a = append(a, v) })
	b.Subscribe(func(v int) { c = append(c, v) })

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, []int{1, 2}, a)
	assert.Equal(t, []int{1, 2}, c)
}

func TestBus_cancelStopsDelivery(t *testing.T) {
	t.Parallel()

	b := New[string]()
	var got []string
	cancel := b.Subscribe(func(v string) { got = append(got, v) })

	b.Publish("a")
	cancel()
	cancel()
	b.Publish("b")

	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 0, b.Len())
}

func TestBus_unsubscribeFromCallback(t *testing.T) {
	t.Parallel()

	b := New[int]()
	calls := 0
	var cancel func()
	cancel = b.Subscribe(func(int) {
		calls++
		cancel()
	})

	b.Publish(1)
	b.Publish(2)
	assert.Equal(t, 1, calls)
}

func TestBus_concurrentPublish(t *testing.T) {
	t.Parallel()

	b := New[int]()
	var mu sync.Mutex
	sum := 0
	b.Subscribe(func(v int) {
		mu.Lock()
		sum += v
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			b.Publish(v)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 5050, sum)
}
