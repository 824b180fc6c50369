package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem はリモートカートの1行です
// カートの持ち主はカートサービスで、BFFはバッジ表示のために読むだけです
type CartItem struct {
	UserID    string
	ProductID string
	Name      string
	Size      string
	Color     string
	Price     string // 追加時点の価格
	ImageURL  string
	PageURL   string
	Quantity  int
}

// CartSummary はバッジ表示に必要なカートの要約です
type CartSummary struct {
	Items []CartItem
	Count int
	Total decimal.Decimal
}

// AddToCartRequest はログイン待ちになったカート追加の元の商品情報を運びます
type AddToCartRequest struct {
	Product Product
	Size    string
	Color   string
}

// CartMutated はこのプロセスがカートを変更するたびに発行されます
type CartMutated struct {
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	At        time.Time `json:"at"`
}

// BadgeStatus はカートバッジ同期の状態です
type BadgeStatus int32

const (
	BadgeIdle     BadgeStatus = 0
	BadgeFetching BadgeStatus = 1
	BadgeError    BadgeStatus = 2
)

func (s BadgeStatus) String() string {
	switch s {
	case BadgeFetching:
		return "fetching"
	case BadgeError:
		return "error"
	default:
		return "idle"
	}
}

// CartBadgeState はカートバッジの購読者に配信される状態です
type CartBadgeState struct {
	Count  int
	Total  decimal.Decimal
	Status BadgeStatus
	Error  string
}
