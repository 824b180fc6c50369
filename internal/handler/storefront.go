package handler

import (
	"context"
	"log/slog"
	"sync"

	"connectrpc.com/connect"
	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/usecase"
)

var errNoClient = errors.New("request carries no client id")

// StorefrontHandler はconnectのプロシージャを呼び出し元ブラウザのワークスペースに結び付けます
type StorefrontHandler struct {
	workspaces *usecase.Workspaces
	logger     *slog.Logger
}

func NewStorefrontHandler(workspaces *usecase.Workspaces, logger *slog.Logger) *StorefrontHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StorefrontHandler{workspaces: workspaces, logger: logger}
}

func (h *StorefrontHandler) workspace(ctx context.Context) (*usecase.Workspace, error) {
	id, ok := ClientIDFromContext(ctx)
	if !ok {
		return nil, connect.NewError(connect.CodeUnauthenticated, errNoClient)
	}
	return h.workspaces.Get(id), nil
}

// Search は新しい検索を始めます。検索エンジンの障害はRPCエラーではなく
// 返す状態の中で伝えます
func (h *StorefrontHandler) Search(ctx context.Context, req *connect.Request[SearchRequest]) (*connect.Response[SearchState], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	pr := w.Search.State().PriceRange
	if req.Msg.PriceRange != nil {
		pr = model.PriceRange{Min: req.Msg.PriceRange.Min, Max: req.Msg.PriceRange.Max}
	}

	st, err := w.Search.PerformSearch(ctx, req.Msg.Query, pr, true)
	if err := searchError(err); err != nil {
		return nil, err
	}
	return connect.NewResponse(searchStateFromModel(st, w.Scroll.Target())), nil
}

// LoadMore は次のページを追加します。読み込み中や最後のページの後は何もしません
func (h *StorefrontHandler) LoadMore(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[SearchState], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	st, _, err := w.Search.LoadMore(ctx)
	if err := searchError(err); err != nil {
		return nil, err
	}
	return connect.NewResponse(searchStateFromModel(st, w.Scroll.Target())), nil
}

// ItemVisible は商品カードが画面に入ったことを知らせます
func (h *StorefrontHandler) ItemVisible(ctx context.Context, req *connect.Request[ItemVisibleRequest]) (*connect.Response[SearchState], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	w.Signals.Signal(req.Msg.ProductID)
	return connect.NewResponse(searchStateFromModel(w.Search.State(), w.Scroll.Target())), nil
}

func searchError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrInvalidPriceRange), errors.Is(err, usecase.ErrSuperseded):
		return toConnectError(err)
	}
	// すでに状態にある
	return nil
}

func (h *StorefrontHandler) stub(w *usecase.Workspace, req *ProductDetailRequest) (model.Product, error) {
	if req.Product != nil && req.Product.ID != "" {
		return req.Product.toModel(), nil
	}
	for _, p := range w.Search.State().Products {
		if p.ID == req.ProductID {
			return p, nil
		}
	}
	return model.Product{}, toConnectError(errors.Wrapf(errProductNotFound, "%q", req.ProductID))
}

// GetProductDetail は全取得が終わった時点の商品を返します
func (h *StorefrontHandler) GetProductDetail(ctx context.Context, req *connect.Request[ProductDetailRequest]) (*connect.Response[ProductDetail], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	stub, err := h.stub(w, req.Msg)
	if err != nil {
		return nil, err
	}
	d := w.Detail.Open(ctx, stub, nil)
	return connect.NewResponse(detailFromModel(d)), nil
}

// WatchProductDetail は商品が埋まっていく様子をストリームで返します
// 最初はカバー画像だけの状態です
func (h *StorefrontHandler) WatchProductDetail(ctx context.Context, req *connect.Request[ProductDetailRequest], stream *connect.ServerStream[ProductDetail]) error {
	w, err := h.workspace(ctx)
	if err != nil {
		return err
	}
	stub, err := h.stub(w, req.Msg)
	if err != nil {
		return err
	}

	var (
		mu      sync.Mutex
		sendErr error
	)
	w.Detail.Open(ctx, stub, func(d model.ProductDetail) {
		mu.Lock()
		defer mu.Unlock()
		if sendErr != nil {
			return
		}
		sendErr = stream.Send(detailFromModel(d))
	})

	mu.Lock()
	defer mu.Unlock()
	return sendErr
}

// AddToCart はログイン済みならカートに追加し、未ログインならログインまで保留します
func (h *StorefrontHandler) AddToCart(ctx context.Context, req *connect.Request[AddToCartRequest]) (*connect.Response[AddToCartResponse], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	ran, err := w.AddToCart(ctx, model.AddToCartRequest{
		Product: req.Msg.Product.toModel(),
		Size:    req.Msg.Size,
		Color:   req.Msg.Color,
	})
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AddToCartResponse{Added: ran, LoginRequired: !ran}), nil
}

func (h *StorefrontHandler) Login(ctx context.Context, req *connect.Request[CredentialsRequest]) (*connect.Response[LoginResponse], error) {
	return h.authenticate(ctx, req.Msg, (*usecase.Workspace).Login)
}

func (h *StorefrontHandler) Register(ctx context.Context, req *connect.Request[CredentialsRequest]) (*connect.Response[LoginResponse], error) {
	return h.authenticate(ctx, req.Msg, (*usecase.Workspace).Register)
}

func (h *StorefrontHandler) authenticate(
	ctx context.Context,
	msg *CredentialsRequest,
	auth func(*usecase.Workspace, context.Context, model.Credentials) (model.Session, error),
) (*connect.Response[LoginResponse], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	pending := w.Gate.Pending()
	s, err := auth(w, ctx, msg.toModel())
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &LoginResponse{UserID: s.UserID}
	if pending && !w.Gate.Pending() {
		resp.ResumedAction = true
		if err := w.LastGatedError(); err != nil {
			resp.ActionError = err.Error()
		}
	}
	return connect.NewResponse(resp), nil
}

func (h *StorefrontHandler) Logout(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[Empty], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	if err := w.Logout(ctx); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (h *StorefrontHandler) GetCart(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[Cart], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	c, err := w.Cart(ctx)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(cartFromModel(c)), nil
}

// WatchCartBadge はクライアントが切断するまでバッジをストリームで返します
// クライアントが読むより速く届いた更新は最新のものにまとめます
func (h *StorefrontHandler) WatchCartBadge(ctx context.Context, req *connect.Request[Empty], stream *connect.ServerStream[CartBadge]) error {
	w, err := h.workspace(ctx)
	if err != nil {
		return err
	}
	badge := w.NewCartBadge()

	latest := make(chan model.CartBadgeState, 1)
	unsubscribe := badge.Subscribe(func(st model.CartBadgeState) {
		select {
		case <-latest:
		default:
		}
		latest <- st
	})
	defer unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := badge.Run(ctx); err != nil {
			h.logger.Warn("cart badge stopped", "client_id", w.ID, "error", err)
		}
	}()
	defer func() {
		cancel()
		<-done
	}()

	if err := stream.Send(badgeFromModel(badge.State())); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-latest:
			if err := stream.Send(badgeFromModel(st)); err != nil {
				return err
			}
		}
	}
}

func (h *StorefrontHandler) SendChat(ctx context.Context, req *connect.Request[ChatRequest]) (*connect.Response[ChatResponse], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := w.Chat.Send(ctx, req.Msg.Message)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(chatFromModel(reply, w.Chat.History())), nil
}

func (h *StorefrontHandler) SendChatImage(ctx context.Context, req *connect.Request[ChatImageRequest]) (*connect.Response[ChatResponse], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := w.Chat.SendImage(ctx, req.Msg.Message, req.Msg.Filename, req.Msg.Image)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(chatFromModel(reply, w.Chat.History())), nil
}

// AskProduct は詳細画面で開いている商品か、リクエストで指定した商品について質問します
func (h *StorefrontHandler) AskProduct(ctx context.Context, req *connect.Request[AskProductRequest]) (*connect.Response[AskProductResponse], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	d := model.ProductDetail{Name: req.Msg.Name, Description: req.Msg.Description}
	if d.Name == "" {
		cur, ok := w.Detail.Current()
		if !ok {
			return nil, toConnectError(errors.Wrap(errProductNotFound, "no product is open"))
		}
		d = cur
	}
	answer, err := w.Chat.AskAboutProduct(ctx, req.Msg.Prompt, d)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AskProductResponse{Response: answer}), nil
}

func (h *StorefrontHandler) ConnectStore(ctx context.Context, req *connect.Request[ConnectStoreRequest]) (*connect.Response[Empty], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	creds := model.Credentials{Email: req.Msg.Email, Password: req.Msg.Password}
	if err := w.Store.Connect(ctx, model.Tenant(req.Msg.Tenant), creds); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&Empty{}), nil
}

func (h *StorefrontHandler) GetDashboard(ctx context.Context, req *connect.Request[DashboardRequest]) (*connect.Response[Dashboard], error) {
	w, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	sum, err := w.Store.Load(ctx, model.Tenant(req.Msg.Tenant))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(dashboardFromModel(sum)), nil
}
