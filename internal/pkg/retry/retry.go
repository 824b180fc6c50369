// Package retry は一定の間隔を空けて決まった回数だけ処理を再試行します
package retry

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Policy はDoの動作を決めます。Attemptsが1未満なら1として扱います
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Default は1秒間隔で3回試行します
var Default = Policy{Attempts: 3, Delay: time.Second}

// permanent は再試行してはいけないエラーを表します
type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent はerrを包み、Doがすぐに返すようにします
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

// Do はfnが成功するか、Permanentエラーを返すか、回数を使い切るか、
// ctxが終わるまでfnを呼びます。最後のエラーを返します
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			t := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-t.C:
			}
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		var perm permanent
		if errors.As(err, &perm) {
			return perm.err
		}
	}
	return errors.Wrapf(err, "after %d attempts", attempts)
}
