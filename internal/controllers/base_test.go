package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/drstein77/cartwidget/internal/cart"
	"github.com/drstein77/cartwidget/internal/metrics"
	"github.com/drstein77/cartwidget/internal/models"
	"github.com/drstein77/cartwidget/internal/storage"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticCatalog []models.Product

func (c staticCatalog) Products() []models.Product { return c }

var testProducts = staticCatalog{
	{Name: "Tacos", Price: "$50.00 MXN", Image: "https://img.test/tacos.jpg"},
	{Name: "Agua", Price: "$20.00 MXN", Image: "https://img.test/agua.jpg"},
}

// failingBackend wraps a memory backend and fails the selected operations.
type failingBackend struct {
	*storage.MemoryStorage
	failGet, failSet, failPing bool
}

func (f *failingBackend) Get(ctx context.Context, sid, key string) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("backend down")
	}
	return f.MemoryStorage.Get(ctx, sid, key)
}

func (f *failingBackend) Set(ctx context.Context, sid, key string, value []byte) error {
	if f.failSet {
		return errors.New("backend down")
	}
	return f.MemoryStorage.Set(ctx, sid, key, value)
}

func (f *failingBackend) Ping(ctx context.Context) bool {
	return !f.failPing
}

type testEnv struct {
	server  *httptest.Server
	client  *http.Client
	backend *failingBackend
	metrics *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	backend := &failingBackend{MemoryStorage: storage.NewMemoryStorage(nil, zap.NewNop())}
	store := sessions.NewCookieStore([]byte("test-secret-key-32-bytes-long!!!"))
	store.Options = &sessions.Options{Path: "/", HttpOnly: true}
	m := metrics.New()

	h, err := NewBaseController(backend, testProducts, store, m, zap.NewNop())
	require.NoError(t, err)

	srv := httptest.NewServer(h.Route())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server:  srv,
		client:  &http.Client{Jar: jar, Timeout: 5 * time.Second},
		backend: backend,
		metrics: m,
	}
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) api(t *testing.T, method, path string, body any) (*http.Response, cartResponse) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	raw := readBody(t, resp)

	var out cartResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.Unmarshal([]byte(raw), &out), raw)
	}
	return resp, out
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func addForm(p models.Product) url.Values {
	return url.Values{"name": {p.Name}, "price": {p.Price}, "image": {p.Image}}
}

func TestIndex_EmptyCart(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, cart.EmptyMessage)
	assert.Contains(t, body, `<span id="cart-total">0.00</span>`)
	assert.Contains(t, body, "display: none")
	assert.Contains(t, body, "Tacos")
	assert.Contains(t, body, "$50.00 MXN")
}

func TestForm_AddShowsItemAndToast(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postForm(t, "/cart/add", addForm(testProducts[0]))
	require.Equal(t, http.StatusOK, resp.StatusCode, "redirect lands on the page")
	assert.Equal(t, "/", resp.Request.URL.Path)
	assert.Contains(t, body, "Tacos has been added to the cart.")
	assert.Contains(t, body, `data-bs-delay="2000"`)
	assert.Contains(t, body, `<span id="cart-total">50.00</span>`)
	assert.Contains(t, body, "display: inline-block")

	// The flash is consumed by the first render.
	_, body = env.get(t, "/")
	assert.NotContains(t, body, "has been added to the cart.")
	assert.Contains(t, body, `<span id="cart-total">50.00</span>`)
}

func TestForm_IncrementDecrementClear(t *testing.T) {
	env := newTestEnv(t)

	env.postForm(t, "/cart/add", addForm(testProducts[0]))
	env.postForm(t, "/cart/add", addForm(testProducts[1]))
	_, body := env.postForm(t, "/cart/increment", url.Values{"id": {"Agua"}})
	assert.Contains(t, body, `<span id="cart-total">90.00</span>`)

	_, body = env.postForm(t, "/cart/decrement", url.Values{"id": {"Tacos"}})
	assert.Contains(t, body, `<span id="cart-total">40.00</span>`)
	assert.NotContains(t, body, `alt="Tacos" style=`, "line item removed at zero")
	assert.Contains(t, body, `alt="Agua" style=`)

	_, body = env.postForm(t, "/cart/clear", nil)
	assert.Contains(t, body, cart.EmptyMessage)
	assert.Contains(t, body, `<span id="cart-total">0.00</span>`)
}

func TestForm_AddRejectsBadPrice(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postForm(t, "/cart/add", url.Values{"name": {"Tacos"}, "price": {"cheap"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.postForm(t, "/cart/add", url.Values{"name": {"  "}, "price": {"$1 MXN"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_Scenarios(t *testing.T) {
	env := newTestEnv(t)

	resp, view := env.api(t, http.MethodGet, "/api/v0/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, view.Empty)
	assert.False(t, view.BadgeVisible)

	tacos := models.AddRequest{Name: "Tacos", Price: "$50.00 MXN", Image: "t.jpg"}
	_, view = env.api(t, http.MethodPost, "/api/v0/cart/items", tacos)
	assert.Equal(t, []string{"Tacos has been added to the cart."}, view.Notifications)
	assert.Equal(t, int64(2000), view.NotificationMS)

	_, view = env.api(t, http.MethodPost, "/api/v0/cart/items", tacos)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, "100.00", view.Total)
	assert.Equal(t, 2, view.Badge)

	env.api(t, http.MethodPost, "/api/v0/cart/items", models.AddRequest{Name: "Agua", Price: "$20.00 MXN"})
	env.api(t, http.MethodPost, "/api/v0/cart/decrement", models.ItemRequest{ID: "Tacos"})
	_, view = env.api(t, http.MethodPost, "/api/v0/cart/decrement", models.ItemRequest{ID: "Tacos"})
	require.Len(t, view.Items, 1)
	assert.Equal(t, "Agua", view.Items[0].ID)
	assert.Equal(t, "20.00", view.Total)
	assert.Empty(t, view.Notifications)

	_, view = env.api(t, http.MethodPost, "/api/v0/cart/decrement", models.ItemRequest{ID: "Missing"})
	require.Len(t, view.Items, 1)

	_, view = env.api(t, http.MethodPost, "/api/v0/cart/increment", models.ItemRequest{ID: "Agua"})
	assert.Equal(t, "40.00", view.Total)

	_, view = env.api(t, http.MethodDelete, "/api/v0/cart", nil)
	assert.True(t, view.Empty)
	assert.Equal(t, 0, view.Badge)

	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.Commands.WithLabelValues("add")))
	assert.Equal(t, 3.0, testutil.ToFloat64(env.metrics.Commands.WithLabelValues("decrement")))
}

func TestAPI_SessionsAreIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.api(t, http.MethodPost, "/api/v0/cart/items", models.AddRequest{Name: "Tacos", Price: "$50 MXN"})

	other := &http.Client{Timeout: 5 * time.Second}
	resp, err := other.Get(env.server.URL + "/api/v0/cart")
	require.NoError(t, err)
	var view cartResponse
	require.NoError(t, json.Unmarshal([]byte(readBody(t, resp)), &view))
	assert.True(t, view.Empty)
}

func TestAPI_BadBodies(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/v0/cart/items", "/api/v0/cart/increment", "/api/v0/cart/decrement"} {
		resp, err := env.client.Post(env.server.URL+path, "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		readBody(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}

	for _, price := range []string{"$-1 MXN", "$NaN MXN", "$Inf MXN", "$0x1p4 MXN"} {
		resp, _ := env.api(t, http.MethodPost, "/api/v0/cart/items", models.AddRequest{Name: "Tacos", Price: price})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, price)
	}

	_, view := env.api(t, http.MethodGet, "/api/v0/cart", nil)
	assert.True(t, view.Empty, "rejected prices never reach the cart")
}

func TestAPI_OversizedBodyRejected(t *testing.T) {
	env := newTestEnv(t)

	big := models.AddRequest{Name: strings.Repeat("T", maxBodyBytes), Price: "$50 MXN"}
	resp, _ := env.api(t, http.MethodPost, "/api/v0/cart/items", big)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.api(t, http.MethodPost, "/api/v0/cart/increment", models.ItemRequest{ID: strings.Repeat("x", maxBodyBytes)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.postForm(t, "/cart/add", url.Values{
		"name":  {strings.Repeat("T", maxBodyBytes)},
		"price": {"$50 MXN"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, view := env.api(t, http.MethodGet, "/api/v0/cart", nil)
	assert.True(t, view.Empty)
}

func TestAPI_CorruptStoredCartStartsEmpty(t *testing.T) {
	env := newTestEnv(t)

	// Establish a session, then corrupt its stored cart behind the handler's back.
	env.api(t, http.MethodPost, "/api/v0/cart/items", models.AddRequest{Name: "Tacos", Price: "$50 MXN"})
	u, err := url.Parse(env.server.URL)
	require.NoError(t, err)
	require.NotEmpty(t, env.client.Jar.Cookies(u))

	corruptAll(t, env.backend.MemoryStorage)

	resp, view := env.api(t, http.MethodGet, "/api/v0/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, view.Empty)
}

func TestAPI_StoreFailures(t *testing.T) {
	env := newTestEnv(t)

	env.backend.failGet = true
	resp, _ := env.api(t, http.MethodGet, "/api/v0/cart", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	env.backend.failGet = false
	env.backend.failSet = true
	resp, _ = env.api(t, http.MethodPost, "/api/v0/cart/items", models.AddRequest{Name: "Tacos", Price: "$50 MXN"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreErrors.WithLabelValues("get")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreErrors.WithLabelValues("set")))
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	env.backend.failPing = true
	resp, _ = env.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// corruptAll overwrites every stored cart with a value that is not JSON.
func corruptAll(t *testing.T, ms *storage.MemoryStorage) {
	t.Helper()
	ctx := context.Background()
	for _, sid := range ms.Sessions() {
		require.NoError(t, ms.Set(ctx, sid, cart.StorageKey, []byte("not-json")))
	}
}
