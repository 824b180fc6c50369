package kluret

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
)

type storeConnectResponse struct {
	Token    string     `json:"token"`
	StoreID  flexString `json:"store_id"`
	UserUUID string     `json:"user_uuid"`
	Message  string     `json:"message"`
}

type dashboardRequest struct {
	StoreID string `json:"store_id"`
}

type customerDTO struct {
	ID    flexString `json:"id"`
	Name  string     `json:"name"`
	Email string     `json:"email"`
}

type orderDTO struct {
	ID         flexString `json:"id"`
	CustomerID flexString `json:"customer_id"`
	Status     string     `json:"status"`
	Total      flexString `json:"total"`
}

// dashboardResponse はストアサービスが送ってくる大文字始まりのキーをそのまま使います
type dashboardResponse struct {
	Store *struct {
		StoreID   flexString    `json:"store_id"`
		Name      string        `json:"name"`
		Domain    string        `json:"domain"`
		Customers []customerDTO `json:"Customers"`
		Orders    []orderDTO    `json:"Orders"`
	} `json:"store"`
}

type storeClient struct {
	client  *http.Client
	baseURL string
}

// NewStoreClient はストアデータサービスのクライアントを作ります
func NewStoreClient(baseURL string, timeout time.Duration) repository.StoreRepository {
	return newStoreClient(&http.Client{Timeout: timeout}, baseURL)
}

func newStoreClient(client *http.Client, baseURL string) *storeClient {
	return &storeClient{client: client, baseURL: baseURL}
}

func (c *storeClient) Connect(ctx context.Context, tenant model.Tenant, creds model.Credentials) (*model.StoreConnection, error) {
	if !tenant.Valid() {
		return nil, errors.Wrapf(model.ErrUnknownTenant, "%q", tenant)
	}

	var res storeConnectResponse
	req := loginRequest{Email: creds.Email, Password: creds.Password}
	err := postJSON(ctx, c.client, joinURL(c.baseURL, "/"+string(tenant)+"/login"), nil, req, &res)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return nil, &model.AuthError{Message: se.Message}
		}
		return nil, errors.Wrap(err, "store connect")
	}

	id := res.StoreID.String()
	if tenant == model.TenantAccessAPI && res.UserUUID != "" {
		id = res.UserUUID
	}
	if res.Token == "" || id == "" {
		return nil, &model.AuthError{Message: res.Message}
	}
	return &model.StoreConnection{Token: res.Token, ID: id}, nil
}

func (c *storeClient) Dashboard(ctx context.Context, tenant model.Tenant, token, storeID string) (*model.StoreDashboard, error) {
	if !tenant.Valid() {
		return nil, errors.Wrapf(model.ErrUnknownTenant, "%q", tenant)
	}

	var res dashboardResponse
	url := joinURL(c.baseURL, "/"+string(tenant)+"/dashboard")
	if err := postJSON(ctx, c.client, url, bearer(token), dashboardRequest{StoreID: storeID}, &res); err != nil {
		return nil, errors.Wrap(err, "store dashboard")
	}
	if res.Store == nil {
		return nil, errors.Wrap(model.ErrSchema, "store dashboard: missing store")
	}

	d := &model.StoreDashboard{
		StoreID:   res.Store.StoreID.String(),
		Name:      res.Store.Name,
		Domain:    res.Store.Domain,
		Customers: make([]model.Customer, 0, len(res.Store.Customers)),
		Orders:    make([]model.Order, 0, len(res.Store.Orders)),
	}
	if d.StoreID == "" {
		d.StoreID = storeID
	}
	for _, cu := range res.Store.Customers {
		d.Customers = append(d.Customers, model.Customer{ID: cu.ID.String(), Name: cu.Name, Email: cu.Email})
	}
	for _, o := range res.Store.Orders {
		d.Orders = append(d.Orders, model.Order{
			ID:         o.ID.String(),
			CustomerID: o.CustomerID.String(),
			Status:     o.Status,
			Total:      o.Total.String(),
		})
	}
	return d, nil
}
