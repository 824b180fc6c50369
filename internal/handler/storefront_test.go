package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/session"
	"kluret.com/storefront/internal/usecase"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakeSearch struct{}

func (fakeSearch) Search(ctx context.Context, p model.SearchParams) (*model.SearchPage, error) {
	pages := map[int][]string{1: {"a", "b"}, 2: {"c"}}
	var out []model.Product
	for _, id := range pages[p.Page] {
		out = append(out, model.Product{ID: id, Name: p.Query + " " + id, Price: "₹1,000", CoverImageURL: "https://img/" + id})
	}
	return &model.SearchPage{Products: out, Received: len(out)}, nil
}

type fakeDetail struct{}

func (fakeDetail) FetchImages(ctx context.Context, pageURL, name string) ([]string, error) {
	return []string{"https://img/big"}, nil
}

func (fakeDetail) FetchDescription(ctx context.Context, pageURL string) (*model.Description, error) {
	return nil, errors.New("boom")
}

func (fakeDetail) FetchSizes(ctx context.Context, pageURL string) ([]string, error) {
	return []string{"S", "M"}, nil
}

type fakeCart struct {
	mu    sync.Mutex
	items map[string][]model.CartItem
}

func (f *fakeCart) Add(ctx context.Context, userID string, req model.AddToCartRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[userID] = append(f.items[userID], model.CartItem{ProductID: req.Product.ID, Name: req.Product.Name, Price: req.Product.Price, Quantity: 1})
	return nil
}

func (f *fakeCart) Get(ctx context.Context, userID string) (*model.CartSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := append([]model.CartItem(nil), f.items[userID]...)
	return &model.CartSummary{Items: items, Count: len(items), Total: decimal.NewFromInt(int64(1000 * len(items)))}, nil
}

type fakeAuth struct{}

func (fakeAuth) Login(ctx context.Context, c model.Credentials) (string, error) {
	if c.Password != "secret" {
		return "", &model.AuthError{Message: "Wrong password"}
	}
	return "user-1", nil
}

func (fakeAuth) Register(ctx context.Context, c model.Credentials) (string, error) {
	return "user-2", nil
}

type fakeChat struct{}

func (fakeChat) Send(ctx context.Context, m model.ChatMessage) (*model.ChatReply, error) {
	return &model.ChatReply{Response: "echo: " + m.Text}, nil
}

func (fakeChat) SendImage(ctx context.Context, m model.ChatMessage) (*model.ChatReply, error) {
	return &model.ChatReply{Response: "image " + m.Filename}, nil
}

func (fakeChat) AskAboutProduct(ctx context.Context, q model.ProductQuestion) (string, error) {
	return "about " + q.Name, nil
}

type fakeStore struct{}

func (fakeStore) Connect(ctx context.Context, t model.Tenant, c model.Credentials) (*model.StoreConnection, error) {
	return &model.StoreConnection{Token: "tok", ID: "store-1"}, nil
}

func (fakeStore) Dashboard(ctx context.Context, t model.Tenant, token, id string) (*model.StoreDashboard, error) {
	return &model.StoreDashboard{StoreID: id, Name: "Shop", Orders: []model.Order{{ID: "o1", Total: "250"}}}, nil
}

type testEnv struct {
	url    string
	client *http.Client
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ws := usecase.NewWorkspaces(usecase.Deps{
		Search:       fakeSearch{},
		Detail:       fakeDetail{},
		Cart:         &fakeCart{items: map[string][]model.CartItem{}},
		Auth:         fakeAuth{},
		Chat:         fakeChat{},
		Store:        fakeStore{},
		Sessions:     session.NewManager(session.NewMemoryStore()),
		PollInterval: 20 * time.Millisecond,
	})
	t.Cleanup(ws.Close)

	codec, err := session.NewCookieCodec("test-secret")
	if err != nil {
		t.Fatalf("NewCookieCodec: %v", err)
	}
	r := NewRouter(RouterConfig{AllowedOrigins: []string{"http://localhost:3000"}, Cookies: codec}, NewStorefrontHandler(ws, nil))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	return &testEnv{url: srv.URL, client: &http.Client{Jar: jar}}
}

func unary[Req, Res any](t *testing.T, env *testEnv, procedure string, msg *Req) (*Res, error) {
	t.Helper()
	c := connect.NewClient[Req, Res](env.client, env.url+procedure, WithJSONCodec())
	resp, err := c.CallUnary(context.Background(), connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp, err := env.client.Get(env.url + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status got %d, want %d", resp.StatusCode, http.StatusOK)
	}
}

func TestStorefront_searchAndScroll(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	st, err := unary[SearchRequest, SearchState](t, env, SearchProcedure, &SearchRequest{
		Query:      "Nike shoes",
		PriceRange: &PriceRange{Min: 500, Max: 2000},
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(st.Products) != 2 || st.Products[0].ID != "a" || st.Products[1].ID != "b" {
		t.Fatalf("Products got %+v", st.Products)
	}
	if !st.HasMore || st.Page != 1 {
		t.Fatalf("HasMore/Page got %v/%d, want true/1", st.HasMore, st.Page)
	}
	if st.Observed != "b" {
		t.Fatalf("Observed got %q, want %q", st.Observed, "b")
	}

	// the cookie ties the next call to the same workspace
	st, err = unary[ItemVisibleRequest, SearchState](t, env, ItemVisibleProcedure, &ItemVisibleRequest{ProductID: "b"})
	if err != nil {
		t.Fatalf("ItemVisible: %v", err)
	}
	if len(st.Products) != 3 || st.Page != 2 || st.Observed != "c" {
		t.Fatalf("after scroll got %d products, page %d, observed %q", len(st.Products), st.Page, st.Observed)
	}

	st, err = unary[Empty, SearchState](t, env, LoadMoreProcedure, &Empty{})
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	if st.HasMore {
		t.Fatalf("HasMore got true after an empty page")
	}
	if st.PriceRange != (PriceRange{Min: 500, Max: 2000}) {
		t.Fatalf("PriceRange got %+v", st.PriceRange)
	}
}

func TestStorefront_invalidPriceRange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := unary[SearchRequest, SearchState](t, env, SearchProcedure, &SearchRequest{
		Query:      "shoes",
		PriceRange: &PriceRange{Min: 900, Max: 10},
	})
	if got := connect.CodeOf(err); got != connect.CodeInvalidArgument {
		t.Fatalf("code got %v, want %v", got, connect.CodeInvalidArgument)
	}
}

func TestStorefront_addToCartResumesAfterLogin(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	add := &AddToCartRequest{Product: Product{ID: "a", Name: "Shoe", Price: "₹1,000"}, Size: "9"}
	res, err := unary[AddToCartRequest, AddToCartResponse](t, env, AddToCartProcedure, add)
	if err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if res.Added || !res.LoginRequired {
		t.Fatalf("AddToCart got %+v, want login required", res)
	}

	_, err = unary[CredentialsRequest, LoginResponse](t, env, LoginProcedure, &CredentialsRequest{Email: "a@b.c", Password: "nope"})
	if got := connect.CodeOf(err); got != connect.CodeUnauthenticated {
		t.Fatalf("code got %v, want %v", got, connect.CodeUnauthenticated)
	}
	var ce *connect.Error
	if !errors.As(err, &ce) || ce.Message() != "Wrong password" {
		t.Fatalf("error got %v, want the server message", err)
	}

	login, err := unary[CredentialsRequest, LoginResponse](t, env, LoginProcedure, &CredentialsRequest{Email: "a@b.c", Password: "secret"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.UserID != "user-1" || !login.ResumedAction || login.ActionError != "" {
		t.Fatalf("Login got %+v", login)
	}

	cart, err := unary[Empty, Cart](t, env, GetCartProcedure, &Empty{})
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if cart.Count != 1 || cart.Items[0].ProductID != "a" || cart.Total != "₹1,000.00" {
		t.Fatalf("GetCart got %+v", cart)
	}

	if _, err := unary[Empty, Empty](t, env, LogoutProcedure, &Empty{}); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	_, err = unary[Empty, Cart](t, env, GetCartProcedure, &Empty{})
	if got := connect.CodeOf(err); got != connect.CodeUnauthenticated {
		t.Fatalf("code after logout got %v, want %v", got, connect.CodeUnauthenticated)
	}
}

func TestStorefront_watchProductDetail(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	if _, err := unary[SearchRequest, SearchState](t, env, SearchProcedure, &SearchRequest{Query: "shoes"}); err != nil {
		t.Fatalf("Search: %v", err)
	}

	c := connect.NewClient[ProductDetailRequest, ProductDetail](env.client, env.url+WatchProductDetailProcedure, WithJSONCodec())
	stream, err := c.CallServerStream(context.Background(), connect.NewRequest(&ProductDetailRequest{ProductID: "a"}))
	if err != nil {
		t.Fatalf("WatchProductDetail: %v", err)
	}
	defer stream.Close()

	var got []*ProductDetail
	for stream.Receive() {
		got = append(got, stream.Msg())
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d snapshots, want 4", len(got))
	}
	if len(got[0].Images) != 1 || got[0].Images[0] != "https://img/a" {
		t.Fatalf("first snapshot images got %v, want the cover", got[0].Images)
	}
	last := got[len(got)-1]
	if !last.Complete || last.Description != "" || len(last.Sizes) != 2 || last.Images[0] != "https://img/big" {
		t.Fatalf("last snapshot got %+v", last)
	}

	_, err = unary[ProductDetailRequest, ProductDetail](t, env, GetProductDetailProcedure, &ProductDetailRequest{ProductID: "zzz"})
	if got := connect.CodeOf(err); got != connect.CodeNotFound {
		t.Fatalf("code got %v, want %v", got, connect.CodeNotFound)
	}
}

func TestStorefront_watchCartBadge(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	if _, err := unary[CredentialsRequest, LoginResponse](t, env, LoginProcedure, &CredentialsRequest{Password: "secret"}); err != nil {
		t.Fatalf("Login: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c := connect.NewClient[Empty, CartBadge](env.client, env.url+WatchCartBadgeProcedure, WithJSONCodec())
	stream, err := c.CallServerStream(ctx, connect.NewRequest(&Empty{}))
	if err != nil {
		t.Fatalf("WatchCartBadge: %v", err)
	}
	defer stream.Close()

	if !stream.Receive() {
		t.Fatalf("no initial badge: %v", stream.Err())
	}

	add := &AddToCartRequest{Product: Product{ID: "a", Name: "Shoe", Price: "₹1,000"}}
	if _, err := unary[AddToCartRequest, AddToCartResponse](t, env, AddToCartProcedure, add); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	for stream.Receive() {
		if b := stream.Msg(); b.Count == 1 && b.Status == model.BadgeIdle.String() {
			return
		}
	}
	t.Fatalf("badge never reached 1: %v", stream.Err())
}

func TestStorefront_chatAndDashboard(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	chat, err := unary[ChatRequest, ChatResponse](t, env, SendChatProcedure, &ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatalf("SendChat: %v", err)
	}
	if chat.Response != "echo: hi" || len(chat.History) != 2 {
		t.Fatalf("SendChat got %+v", chat)
	}

	img, err := unary[ChatImageRequest, ChatResponse](t, env, SendChatImageProcedure, &ChatImageRequest{Filename: "a.png", Image: []byte{1, 2, 3}})
	if err != nil {
		t.Fatalf("SendChatImage: %v", err)
	}
	if img.Response != "image a.png" {
		t.Fatalf("SendChatImage got %+v", img)
	}

	_, err = unary[ChatRequest, ChatResponse](t, env, SendChatProcedure, &ChatRequest{Message: " "})
	if got := connect.CodeOf(err); got != connect.CodeInvalidArgument {
		t.Fatalf("code got %v, want %v", got, connect.CodeInvalidArgument)
	}

	ask, err := unary[AskProductRequest, AskProductResponse](t, env, AskProductProcedure, &AskProductRequest{Prompt: "fabric?", Name: "Shirt"})
	if err != nil {
		t.Fatalf("AskProduct: %v", err)
	}
	if ask.Response != "about Shirt" {
		t.Fatalf("AskProduct got %q", ask.Response)
	}

	_, err = unary[DashboardRequest, Dashboard](t, env, GetDashboardProcedure, &DashboardRequest{Tenant: "connectstore"})
	if got := connect.CodeOf(err); got != connect.CodeFailedPrecondition {
		t.Fatalf("code got %v, want %v", got, connect.CodeFailedPrecondition)
	}
	if _, err := unary[ConnectStoreRequest, Empty](t, env, ConnectStoreProcedure, &ConnectStoreRequest{Tenant: "connectstore"}); err != nil {
		t.Fatalf("ConnectStore: %v", err)
	}
	dash, err := unary[DashboardRequest, Dashboard](t, env, GetDashboardProcedure, &DashboardRequest{Tenant: "connectstore"})
	if err != nil {
		t.Fatalf("GetDashboard: %v", err)
	}
	if dash.StoreID != "store-1" || dash.OrderCount != 1 || dash.Revenue != "₹250.00" {
		t.Fatalf("GetDashboard got %+v", dash)
	}
}

func TestStorefront_requiresClientID(t *testing.T) {
	t.Parallel()

	h := NewStorefrontHandler(usecase.NewWorkspaces(usecase.Deps{Sessions: session.NewManager(session.NewMemoryStore())}), nil)
	_, err := h.LoadMore(context.Background(), connect.NewRequest(&Empty{}))
	if got := connect.CodeOf(err); got != connect.CodeUnauthenticated {
		t.Fatalf("code got %v, want %v", got, connect.CodeUnauthenticated)
	}
}

func TestClientCookie_replacesTamperedCookie(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.url+"/healthz", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(resp.Cookies()) != 0 {
		t.Fatalf("healthz should not issue a cookie")
	}

	c := connect.NewClient[Empty, SearchState](http.DefaultClient, env.url+LoadMoreProcedure, WithJSONCodec())
	call := connect.NewRequest(&Empty{})
	call.Header().Set("Cookie", session.CookieName+"=not-a-token")
	res, err := c.CallUnary(context.Background(), call)
	if err != nil {
		t.Fatalf("LoadMore: %v", err)
	}
	var found bool
	for _, v := range res.Header().Values("Set-Cookie") {
		if len(v) > len(session.CookieName) && v[:len(session.CookieName)] == session.CookieName {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a fresh %s cookie", session.CookieName)
	}
}

func TestToConnectError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want connect.Code
	}{
		{model.ErrInvalidPriceRange, connect.CodeInvalidArgument},
		{&model.AuthError{}, connect.CodeUnauthenticated},
		{model.ErrUnauthorized, connect.CodeUnauthenticated},
		{model.ErrNotConnected, connect.CodeFailedPrecondition},
		{usecase.ErrSuperseded, connect.CodeAborted},
		{model.ErrSchema, connect.CodeInternal},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{errors.New("connection refused"), connect.CodeUnavailable},
	}
	for _, tt := range tests {
		if got := connect.CodeOf(toConnectError(tt.err)); got != tt.want {
			t.Fatalf("toConnectError(%v) got %v, want %v", tt.err, got, tt.want)
		}
	}
}
