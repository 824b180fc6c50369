package handler

import (
	"github.com/shopspring/decimal"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/pkg/money"
)

type Empty struct{}

type Product struct {
	ID                 string   `json:"product_id"`
	Name               string   `json:"product_name"`
	Price              string   `json:"product_price"`
	PageURL            string   `json:"product_page_url,omitempty"`
	CoverImageURL      string   `json:"product_cover_image,omitempty"`
	DiscountPercentage *float64 `json:"discount_percentage,omitempty"`
	DiscountedPrice    string   `json:"discounted_price,omitempty"`
	Color              string   `json:"color,omitempty"`
	Size               string   `json:"size,omitempty"`
}

func productFromModel(p model.Product) Product {
	out := Product{
		ID:                 p.ID,
		Name:               p.Name,
		Price:              p.Price,
		PageURL:            p.PageURL,
		CoverImageURL:      p.CoverImageURL,
		DiscountPercentage: p.DiscountPercentage,
		Color:              p.Color,
		Size:               p.Size,
	}
	if p.DiscountPercentage != nil {
		out.DiscountedPrice = money.Format(p.DiscountedPrice(), money.INR)
	}
	return out
}

func (p Product) toModel() model.Product {
	return model.Product{
		ID:                 p.ID,
		Name:               p.Name,
		Price:              p.Price,
		PageURL:            p.PageURL,
		CoverImageURL:      p.CoverImageURL,
		DiscountPercentage: p.DiscountPercentage,
		Color:              p.Color,
		Size:               p.Size,
	}
}

type PriceRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

type SearchRequest struct {
	Query      string      `json:"query"`
	PriceRange *PriceRange `json:"price_range,omitempty"` // nilなら現在の価格帯のまま
}

type ItemVisibleRequest struct {
	ProductID string `json:"product_id"`
}

type SearchState struct {
	Query      string     `json:"query"`
	PriceRange PriceRange `json:"price_range"`
	Products   []Product  `json:"products"`
	Loading    bool       `json:"loading"`
	Error      string     `json:"error,omitempty"`
	HasMore    bool       `json:"has_more"`
	Page       int        `json:"page"`
	// Observed は表示されると次のページを読み込む商品です
	Observed string `json:"observed,omitempty"`
}

func searchStateFromModel(s model.SearchState, observed string) *SearchState {
	out := &SearchState{
		Query:      s.Query,
		PriceRange: PriceRange{Min: s.PriceRange.Min, Max: s.PriceRange.Max},
		Products:   make([]Product, 0, len(s.Products)),
		Loading:    s.Loading,
		Error:      s.Error,
		HasMore:    s.HasMore,
		Page:       s.Page,
		Observed:   observed,
	}
	for _, p := range s.Products {
		out.Products = append(out.Products, productFromModel(p))
	}
	return out
}

// ProductDetailRequest は現在の検索結果の商品を指定するか、
// 他の画面から開いた商品の情報を丸ごと運びます
type ProductDetailRequest struct {
	ProductID string   `json:"product_id"`
	Product   *Product `json:"product,omitempty"`
}

type SpecRow struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ProductDetail struct {
	ProductID   string    `json:"product_id"`
	Name        string    `json:"product_name"`
	Price       string    `json:"product_price"`
	PageURL     string    `json:"product_page_url,omitempty"`
	Images      []string  `json:"images"`
	Description string    `json:"description"`
	Specs       []SpecRow `json:"specs,omitempty"`
	Sizes       []string  `json:"sizes"`
	Complete    bool      `json:"complete"`
}

func detailFromModel(d model.ProductDetail) *ProductDetail {
	out := &ProductDetail{
		ProductID:   d.ProductID,
		Name:        d.Name,
		Price:       d.Price,
		PageURL:     d.PageURL,
		Images:      d.Images,
		Description: d.Description,
		Sizes:       d.Sizes,
		Complete:    d.Complete(),
	}
	if out.Images == nil {
		out.Images = []string{}
	}
	if out.Sizes == nil {
		out.Sizes = []string{}
	}
	for _, r := range d.Specs {
		out.Specs = append(out.Specs, SpecRow{Label: r.Label, Value: r.Value})
	}
	return out
}

type AddToCartRequest struct {
	Product Product `json:"product"`
	Size    string  `json:"size,omitempty"`
	Color   string  `json:"color,omitempty"`
}

type AddToCartResponse struct {
	Added bool `json:"added"`
	// LoginRequired はカート追加がログインモーダル待ちになったことを表します
	LoginRequired bool `json:"login_required"`
}

type CredentialsRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *CredentialsRequest) toModel() model.Credentials {
	return model.Credentials{Name: r.Name, Email: r.Email, Password: r.Password}
}

type LoginResponse struct {
	UserID string `json:"user_id"`
	// ResumedAction はこのログインで保留中の操作が実行されたときに設定されます
	ResumedAction bool   `json:"resumed_action,omitempty"`
	ActionError   string `json:"action_error,omitempty"`
}

type CartItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"product_name"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Price     string `json:"product_price"`
	ImageURL  string `json:"product_cover_image,omitempty"`
	Quantity  int    `json:"quantity"`
}

type Cart struct {
	Items []CartItem `json:"items"`
	Count int        `json:"count"`
	Total string     `json:"total"`
}

func cartFromModel(c *model.CartSummary) *Cart {
	out := &Cart{Items: make([]CartItem, 0, len(c.Items)), Count: c.Count, Total: formatINR(c.Total)}
	for _, it := range c.Items {
		out.Items = append(out.Items, CartItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Color:     it.Color,
			Price:     it.Price,
			ImageURL:  it.ImageURL,
			Quantity:  it.Quantity,
		})
	}
	return out
}

type CartBadge struct {
	Count  int    `json:"count"`
	Total  string `json:"total"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func badgeFromModel(b model.CartBadgeState) *CartBadge {
	return &CartBadge{Count: b.Count, Total: formatINR(b.Total), Status: b.Status.String(), Error: b.Error}
}

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ChatImageRequest struct {
	Message  string `json:"message"`
	Filename string `json:"filename"`
	Image    []byte `json:"image"` // JSONではbase64
}

type ChatResponse struct {
	Response string     `json:"response"`
	History  []ChatTurn `json:"history"`
}

func chatFromModel(r *model.ChatReply, history []model.ChatTurn) *ChatResponse {
	out := &ChatResponse{Response: r.Response, History: make([]ChatTurn, 0, len(history))}
	for _, t := range history {
		out.History = append(out.History, ChatTurn{Role: t.Role, Content: t.Content})
	}
	return out
}

// AskProductRequest はNameがなければ開いている商品について質問します
type AskProductRequest struct {
	Prompt      string `json:"prompt"`
	Name        string `json:"product_name,omitempty"`
	Description string `json:"description,omitempty"`
}

type AskProductResponse struct {
	Response string `json:"response"`
}

type ConnectStoreRequest struct {
	Tenant   string `json:"tenant"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type DashboardRequest struct {
	Tenant string `json:"tenant"`
}

type Customer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type Order struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Total      string `json:"total"`
}

type Dashboard struct {
	StoreID       string     `json:"store_id"`
	Name          string     `json:"name"`
	Domain        string     `json:"domain,omitempty"`
	Customers     []Customer `json:"customers"`
	Orders        []Order    `json:"orders"`
	CustomerCount int        `json:"customer_count"`
	OrderCount    int        `json:"order_count"`
	Revenue       string     `json:"revenue"`
}

func dashboardFromModel(s *model.DashboardSummary) *Dashboard {
	d := s.Dashboard
	out := &Dashboard{
		StoreID:       d.StoreID,
		Name:          d.Name,
		Domain:        d.Domain,
		Customers:     make([]Customer, 0, len(d.Customers)),
		Orders:        make([]Order, 0, len(d.Orders)),
		CustomerCount: s.CustomerCount,
		OrderCount:    s.OrderCount,
		Revenue:       formatINR(s.Revenue),
	}
	for _, c := range d.Customers {
		out.Customers = append(out.Customers, Customer{ID: c.ID, Name: c.Name, Email: c.Email})
	}
	for _, o := range d.Orders {
		out.Orders = append(out.Orders, Order{ID: o.ID, CustomerID: o.CustomerID, Status: o.Status, Total: o.Total})
	}
	return out
}

func formatINR(d decimal.Decimal) string {
	return money.Format(d, money.INR)
}
