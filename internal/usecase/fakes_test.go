package usecase

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
)

var errRemote = errors.New("remote down")

type searchCall struct {
	params model.SearchParams
}

// fakeSearchRepo answers per page. A non-nil gate blocks every call
// until a value is sent on it.
type fakeSearchRepo struct {
	mu    sync.Mutex
	pages map[int][]model.Product
	// dropped adds hits per page the client could not use
	dropped map[int]int
	errs    map[int]error
	calls []searchCall
	gate  chan struct{}
	// started is signalled when a call begins, if non-nil
	started chan model.SearchParams
}

func newFakeSearchRepo() *fakeSearchRepo {
	return &fakeSearchRepo{pages: map[int][]model.Product{}, dropped: map[int]int{}, errs: map[int]error{}}
}

func (f *fakeSearchRepo) Search(ctx context.Context, p model.SearchParams) (*model.SearchPage, error) {
	f.mu.Lock()
	f.calls = append(f.calls, searchCall{params: p})
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- p
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[p.Page]; err != nil {
		return nil, err
	}
	products := append([]model.Product(nil), f.pages[p.Page]...)
	return &model.SearchPage{Products: products, Received: len(products) + f.dropped[p.Page]}, nil
}

func (f *fakeSearchRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSearchRepo) lastCall() model.SearchParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1].params
}

func products(ids ...string) []model.Product {
	out := make([]model.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.Product{ID: id, Name: "product " + id, Price: "₹100", CoverImageURL: "https://img/" + id})
	}
	return out
}

func ids(ps []model.Product) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

type fakeCartRepo struct {
	mu      sync.Mutex
	adds    []model.AddToCartRequest
	addUser []string
	addErr  error
	getErr  error
	gets    int
	count   int
}

func (f *fakeCartRepo) Add(ctx context.Context, userID string, req model.AddToCartRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.adds = append(f.adds, req)
	f.addUser = append(f.addUser, userID)
	f.count++
	return nil
}

func (f *fakeCartRepo) Get(ctx context.Context, userID string) (*model.CartSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &model.CartSummary{Count: f.count}, nil
}

func (f *fakeCartRepo) addCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.adds)
}

func (f *fakeCartRepo) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

type fakeAuthRepo struct {
	userID string
	err    error
}

func (f fakeAuthRepo) Login(ctx context.Context, creds model.Credentials) (string, error) {
	return f.userID, f.err
}

func (f fakeAuthRepo) Register(ctx context.Context, creds model.Credentials) (string, error) {
	return f.userID, f.err
}
