package kluret

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"kluret.com/storefront/internal/domain/model"
)

func newTestServer(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchClient_Search_sendsFormFields(t *testing.T) {
	t.Parallel()

	got := map[string]string{}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method got %s, want POST", r.Method)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		for _, k := range []string{"product_name", "page_index", "min_price", "max_price"} {
			got[k] = r.FormValue(k)
		}
		_, _ = w.Write([]byte(`[]`))
	})

	c := newSearchClient(srv.Client(), srv.URL, nil)
	_, err := c.Search(t.Context(), model.SearchParams{
		Query:      "Nike shoes",
		Page:       2,
		PriceRange: model.PriceRange{Min: 500, Max: 2000},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{"product_name": "Nike shoes", "page_index": "2", "min_price": "500", "max_price": "2000"}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s got %q, want %q", k, got[k], v)
		}
	}
}

func TestSearchClient_Search_mapsBareArrayInOrder(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"product_id": 42, "name": "Air Zoom", "price": "₹1,299", "product_page_url": "https://shop/1", "cover_image_url": "https://img/1.jpg", "discount_percentage": "20%"},
			{"product_id": "b-7", "name": "Revolution", "price": 899, "product_page_url": "https://shop/2", "cover_image_url": "https://img/2.jpg"}
		]`))
	})

	c := newSearchClient(srv.Client(), srv.URL, nil)
	page, err := c.Search(t.Context(), model.SearchParams{Query: "nike", Page: 1, PriceRange: model.DefaultPriceRange})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := page.Products
	if len(got) != 2 {
		t.Fatalf("len got %d, want 2", len(got))
	}
	if got[0].ID != "42" || got[1].ID != "b-7" {
		t.Fatalf("order got [%q %q], want [42 b-7]", got[0].ID, got[1].ID)
	}
	if got[0].DiscountPercentage == nil || *got[0].DiscountPercentage != 20 {
		t.Fatalf("DiscountPercentage got %v, want 20", got[0].DiscountPercentage)
	}
	if got[1].DiscountPercentage != nil {
		t.Fatalf("DiscountPercentage got %v, want nil", *got[1].DiscountPercentage)
	}
	if got[1].Price != "899" {
		t.Fatalf("Price got %q, want %q", got[1].Price, "899")
	}
	if got[0].PageURL != "https://shop/1" || got[0].CoverImageURL != "https://img/1.jpg" {
		t.Fatalf("urls got %q %q", got[0].PageURL, got[0].CoverImageURL)
	}
}

func TestSearchClient_Search_acceptsWrappedListAndDropsMalformed(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"products": [
			{"product_id": "1", "name": "ok"},
			{"name": "no id"},
			{"product_id": "3", "name": "  "}
		]}`))
	})

	c := newSearchClient(srv.Client(), srv.URL, nil)
	page, err := c.Search(t.Context(), model.SearchParams{Query: "x", Page: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Products) != 1 || page.Products[0].ID != "1" {
		t.Fatalf("got %+v, want single product 1", page.Products)
	}
	if page.Received != 3 {
		t.Fatalf("Received got %d, want 3", page.Received)
	}
}

func TestSearchClient_Search_errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"message":"ranking down"}`,
			check: func(err error) bool {
				var se *StatusError
				return errors.As(err, &se) && se.Code == 500 && se.Message == "ranking down"
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{}`,
			check:  func(err error) bool { return errors.Is(err, model.ErrUnauthorized) },
		},
		{
			name:   "bad json",
			status: http.StatusOK,
			body:   `{not json`,
			check:  func(err error) bool { return errors.Is(err, model.ErrSchema) },
		},
		{
			name:   "scalar body",
			status: http.StatusOK,
			body:   `"nope"`,
			check:  func(err error) bool { return errors.Is(err, model.ErrSchema) },
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			c := newSearchClient(srv.Client(), srv.URL, nil)
			_, err := c.Search(t.Context(), model.SearchParams{Query: "x", Page: 1})
			if err == nil || !tc.check(err) {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
