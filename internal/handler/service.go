package handler

import (
	"net/http"

	"connectrpc.com/connect"
)

// StorefrontServiceName はサービスの完全修飾名です
const StorefrontServiceName = "kluret.v1.StorefrontService"

// プロシージャのパス。connectの生成コードと同じ形にしています
const (
	SearchProcedure             = "/" + StorefrontServiceName + "/Search"
	LoadMoreProcedure           = "/" + StorefrontServiceName + "/LoadMore"
	ItemVisibleProcedure        = "/" + StorefrontServiceName + "/ItemVisible"
	GetProductDetailProcedure   = "/" + StorefrontServiceName + "/GetProductDetail"
	WatchProductDetailProcedure = "/" + StorefrontServiceName + "/WatchProductDetail"
	AddToCartProcedure          = "/" + StorefrontServiceName + "/AddToCart"
	LoginProcedure              = "/" + StorefrontServiceName + "/Login"
	RegisterProcedure           = "/" + StorefrontServiceName + "/Register"
	LogoutProcedure             = "/" + StorefrontServiceName + "/Logout"
	GetCartProcedure            = "/" + StorefrontServiceName + "/GetCart"
	WatchCartBadgeProcedure     = "/" + StorefrontServiceName + "/WatchCartBadge"
	SendChatProcedure           = "/" + StorefrontServiceName + "/SendChat"
	SendChatImageProcedure      = "/" + StorefrontServiceName + "/SendChatImage"
	AskProductProcedure         = "/" + StorefrontServiceName + "/AskProduct"
	ConnectStoreProcedure       = "/" + StorefrontServiceName + "/ConnectStore"
	GetDashboardProcedure       = "/" + StorefrontServiceName + "/GetDashboard"
)

// NewStorefrontServiceHandler はhの全プロシージャのHTTPハンドラーを作り、
// マウント先のパスと一緒に返します
func NewStorefrontServiceHandler(h *StorefrontHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{WithJSONCodec()}, opts...)

	mux := http.NewServeMux()
	mux.Handle(SearchProcedure, connect.NewUnaryHandler(SearchProcedure, h.Search, opts...))
	mux.Handle(LoadMoreProcedure, connect.NewUnaryHandler(LoadMoreProcedure, h.LoadMore, opts...))
	mux.Handle(ItemVisibleProcedure, connect.NewUnaryHandler(ItemVisibleProcedure, h.ItemVisible, opts...))
	mux.Handle(GetProductDetailProcedure, connect.NewUnaryHandler(GetProductDetailProcedure, h.GetProductDetail, opts...))
	mux.Handle(WatchProductDetailProcedure, connect.NewServerStreamHandler(WatchProductDetailProcedure, h.WatchProductDetail, opts...))
	mux.Handle(AddToCartProcedure, connect.NewUnaryHandler(AddToCartProcedure, h.AddToCart, opts...))
	mux.Handle(LoginProcedure, connect.NewUnaryHandler(LoginProcedure, h.Login, opts...))
	mux.Handle(RegisterProcedure, connect.NewUnaryHandler(RegisterProcedure, h.Register, opts...))
	mux.Handle(LogoutProcedure, connect.NewUnaryHandler(LogoutProcedure, h.Logout, opts...))
	mux.Handle(GetCartProcedure, connect.NewUnaryHandler(GetCartProcedure, h.GetCart, opts...))
	mux.Handle(WatchCartBadgeProcedure, connect.NewServerStreamHandler(WatchCartBadgeProcedure, h.WatchCartBadge, opts...))
	mux.Handle(SendChatProcedure, connect.NewUnaryHandler(SendChatProcedure, h.SendChat, opts...))
	mux.Handle(SendChatImageProcedure, connect.NewUnaryHandler(SendChatImageProcedure, h.SendChatImage, opts...))
	mux.Handle(AskProductProcedure, connect.NewUnaryHandler(AskProductProcedure, h.AskProduct, opts...))
	mux.Handle(ConnectStoreProcedure, connect.NewUnaryHandler(ConnectStoreProcedure, h.ConnectStore, opts...))
	mux.Handle(GetDashboardProcedure, connect.NewUnaryHandler(GetDashboardProcedure, h.GetDashboard, opts...))

	return "/" + StorefrontServiceName + "/", mux
}
