package model

import "github.com/shopspring/decimal"

// Tenant は2つのダッシュボード領域のどちらかを選びます
// どちらも同じダッシュボードを使い、違いは識別に使うセッションキーだけです
type Tenant string

const (
	TenantConnectStore Tenant = "connectstore"
	TenantAccessAPI    Tenant = "accessapi"
)

// Valid は既知のテナントかを返します
func (t Tenant) Valid() bool {
	return t == TenantConnectStore || t == TenantAccessAPI
}

// StoreConnection はストアへのログイン成功時に返されます
type StoreConnection struct {
	Token string
	ID    string
}

// Customer は接続したストアの顧客です
type Customer struct {
	ID    string
	Name  string
	Email string
}

// Order は接続したストアの注文です
type Order struct {
	ID         string
	CustomerID string
	Status     string
	Total      string
}

// StoreDashboard は1つのストアのダッシュボード情報です
type StoreDashboard struct {
	StoreID   string
	Name      string
	Domain    string
	Customers []Customer
	Orders    []Order
}

// DashboardSummary はヘッダーのタイル表示用にStoreDashboardから計算します
type DashboardSummary struct {
	Dashboard     StoreDashboard
	CustomerCount int
	OrderCount    int
	Revenue       decimal.Decimal
}
