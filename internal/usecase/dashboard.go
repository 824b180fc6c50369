package usecase

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"kluret.com/storefront/internal/domain/model"
	"kluret.com/storefront/internal/domain/repository"
	"kluret.com/storefront/internal/pkg/money"
	"kluret.com/storefront/internal/session"
)

// Dashboard は両方のテナント領域で共有するダッシュボードです
type Dashboard struct {
	repo     repository.StoreRepository
	sessions *session.Manager
	clientID string
}

func NewDashboard(repo repository.StoreRepository, sessions *session.Manager, clientID string) *Dashboard {
	return &Dashboard{repo: repo, sessions: sessions, clientID: clientID}
}

// credentials はテナントの認証に使うセッションキーを選びます
func credentials(t model.Tenant, s model.Session) (token, id string) {
	switch t {
	case model.TenantConnectStore:
		return s.StoreToken, s.StoreID
	case model.TenantAccessAPI:
		return s.StoreToken, s.UserUUID
	}
	return "", ""
}

func setCredentials(t model.Tenant, s *model.Session, token, id string) {
	s.StoreToken = token
	switch t {
	case model.TenantConnectStore:
		s.StoreID = id
	case model.TenantAccessAPI:
		s.UserUUID = id
	}
}

// Connect はテナント領域にログインし、その認証情報を保持します
func (d *Dashboard) Connect(ctx context.Context, t model.Tenant, creds model.Credentials) error {
	if !t.Valid() {
		return errors.Wrapf(model.ErrUnknownTenant, "%q", t)
	}
	conn, err := d.repo.Connect(ctx, t, creds)
	if err != nil {
		return err
	}
	_, err = d.sessions.Update(ctx, d.clientID, func(s *model.Session) {
		setCredentials(t, s, conn.Token, conn.ID)
	})
	return err
}

// Connected はテナントの認証情報がそろっているかを返します
func (d *Dashboard) Connected(ctx context.Context, t model.Tenant) (bool, error) {
	s, err := d.sessions.Get(ctx, d.clientID)
	if err != nil {
		return false, err
	}
	token, id := credentials(t, s)
	return token != "" && id != "", nil
}

// Load はダッシュボードを取得します
// トークンが拒否されたら認証情報を破棄し、接続画面に戻します
func (d *Dashboard) Load(ctx context.Context, t model.Tenant) (*model.DashboardSummary, error) {
	if !t.Valid() {
		return nil, errors.Wrapf(model.ErrUnknownTenant, "%q", t)
	}
	s, err := d.sessions.Get(ctx, d.clientID)
	if err != nil {
		return nil, err
	}
	token, id := credentials(t, s)
	if token == "" || id == "" {
		return nil, errors.Wrapf(model.ErrNotConnected, "%s", t)
	}

	dash, err := d.repo.Dashboard(ctx, t, token, id)
	if errors.Is(err, model.ErrUnauthorized) {
		if derr := d.Disconnect(ctx, t); derr != nil {
			return nil, errors.Wrap(derr, "forget rejected token")
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return summarize(dash), nil
}

// Disconnect はテナントの認証情報を破棄します
func (d *Dashboard) Disconnect(ctx context.Context, t model.Tenant) error {
	_, err := d.sessions.Update(ctx, d.clientID, func(s *model.Session) {
		setCredentials(t, s, "", "")
	})
	return err
}

func summarize(d *model.StoreDashboard) *model.DashboardSummary {
	revenue := decimal.Zero
	for _, o := range d.Orders {
		if v, err := money.Parse(o.Total); err == nil {
			revenue = revenue.Add(v)
		}
	}
	return &model.DashboardSummary{
		Dashboard:     *d,
		CustomerCount: len(d.Customers),
		OrderCount:    len(d.Orders),
		Revenue:       revenue,
	}
}
