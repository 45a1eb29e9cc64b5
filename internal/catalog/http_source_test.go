package catalog

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/storefront/internal/apiclient"
	"github.com/hitoshi/storefront/internal/model"
	"github.com/hitoshi/storefront/internal/security"
)

func newTestSource(t *testing.T, handler http.HandlerFunc) *HTTPSource {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	api, err := apiclient.New(apiclient.Options{
		Name:    "catalog",
		BaseURL: server.URL,
		Timeout: time.Second,
		Logger:  slog.New(slog.NewJSONHandler(&buf, nil)),
	})
	if err != nil {
		t.Fatalf("apiclient.New error = %v", err)
	}
	return NewHTTPSource(api, security.NewContentSanitizer())
}

func TestHTTPSource_ListProducts_Array(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			t.Errorf("path = %s, want /products", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":1,"title":"Backpack","price":109.95,"category":"men's clothing","image":"https://example.com/1.jpg","description":"<p>ok</p><script>x</script>"},
			{"id":"p2","title":"Shirt","price":22.3,"category":"men's clothing","image":"https://example.com/2.jpg","description":"plain"}
		]`))
	})

	products, err := src.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts error = %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("len = %d, want 2", len(products))
	}
	if products[0].ID != "1" || products[0].Price != 10995 {
		t.Errorf("products[0] = %+v, want id 1 price 10995", products[0])
	}
	if strings.Contains(products[0].Description, "<script") {
		t.Errorf("Description not sanitized: %q", products[0].Description)
	}
	if products[1].ID != "p2" || products[1].Price != 2230 {
		t.Errorf("products[1] = %+v, want id p2 price 2230", products[1])
	}
}

func TestHTTPSource_ListProducts_Wrapped(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"products":[{"id":5,"title":"Ring","price":"9.99"}]}`))
	})

	products, err := src.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts error = %v", err)
	}
	if len(products) != 1 || products[0].ID != "5" || products[0].Price != 999 {
		t.Errorf("products = %+v", products)
	}
}

func TestHTTPSource_ListProducts_InvalidShape(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`"nope"`))
	})

	_, err := src.ListProducts(context.Background())
	if !model.IsCode(err, model.ErrCodeUpstream) {
		t.Errorf("error = %v, want UPSTREAM_ERROR", err)
	}
}

func TestHTTPSource_GetProduct(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/1" {
			t.Errorf("path = %s, want /products/1", r.URL.Path)
		}
		w.Write([]byte(`{"id":1,"title":"<b>Backpack</b>","price":9.99,"image":"javascript:alert(1)"}`))
	})

	p, err := src.GetProduct(context.Background(), "1")
	if err != nil {
		t.Fatalf("GetProduct error = %v", err)
	}
	if p.Title != "Backpack" {
		t.Errorf("Title = %q, want Backpack", p.Title)
	}
	if p.Image != "" {
		t.Errorf("Image = %q, want empty for javascript url", p.Image)
	}
	if p.Price.String() != "9.99" {
		t.Errorf("Price = %s, want 9.99", p.Price)
	}
}

func TestHTTPSource_GetProduct_NotFound(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := src.GetProduct(context.Background(), "999")
	if !model.IsCode(err, model.ErrCodeProductNotFound) {
		t.Errorf("error = %v, want PRODUCT_NOT_FOUND", err)
	}
}

// TestHTTPSource_GetProduct_EmptyBody は200で空ボディを返すAPIでもPRODUCT_NOT_FOUNDとなることを検証する。
func TestHTTPSource_GetProduct_EmptyBody(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := src.GetProduct(context.Background(), "999")
	if !model.IsCode(err, model.ErrCodeProductNotFound) {
		t.Errorf("error = %v, want PRODUCT_NOT_FOUND", err)
	}
}

func TestHTTPSource_GetProduct_ServerError(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := src.GetProduct(context.Background(), "1")
	if !model.IsCode(err, model.ErrCodeUpstream) {
		t.Errorf("error = %v, want UPSTREAM_ERROR", err)
	}
}

func TestHTTPSource_GetProduct_EmptyID(t *testing.T) {
	src := newTestSource(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := src.GetProduct(context.Background(), "")
	if !model.IsCode(err, model.ErrCodeInvalidProduct) {
		t.Errorf("error = %v, want INVALID_PRODUCT", err)
	}
}
