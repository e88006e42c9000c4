package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lori/internal/core"
	"lori/internal/log"
	"lori/internal/summary"
	"lori/internal/tab"
	"lori/internal/view"
)

type pendingRemovals struct {
	mu  sync.Mutex
	fns []func()
}

func (p *pendingRemovals) schedule(_ time.Duration, fn func()) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fns = append(p.fns, fn)
	return func() {}
}

func (p *pendingRemovals) flush() {
	p.mu.Lock()
	fns := p.fns
	p.fns = nil
	p.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type testServer struct {
	*Server
	ctrl    *view.Controller
	store   *tab.Store
	removal *pendingRemovals
}

func newTestServer(t *testing.T, opts ...ServerOption) *testServer {
	t.Helper()
	store := tab.NewStore(core.DefaultItems())
	removal := &pendingRemovals{}
	ctrl := view.NewController(store, summary.Static{}, view.WithScheduler(removal.schedule))
	t.Cleanup(ctrl.Wait)
	srv := NewServer(":0", ctrl, opts...)
	require.NotNil(t, srv.templates, "embedded templates must parse")
	return &testServer{Server: srv, ctrl: ctrl, store: store, removal: removal}
}

func (ts *testServer) do(t *testing.T, method, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) gesture(t *testing.T, id, phase string, x float64) (view.RowState, int) {
	t.Helper()
	rr := ts.do(t, http.MethodPost, "/ui/gesture/"+id+"/"+phase, url.Values{"x": {formatX(x)}})
	var row view.RowState
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &row))
	}
	return row, rr.Code
}

func formatX(x float64) string {
	b, _ := json.Marshal(x)
	return string(b)
}

func TestIndexAndHealth(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Total da conta")
	assert.Contains(t, body, "Chopp")
	assert.Contains(t, body, "Pizza")
	assert.Contains(t, body, `id="screen"`)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	assert.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRequestIDIsEchoed(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc123")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc123", rr.Header().Get("X-Request-ID"))
}

func TestReadyReportsFailingDependency(t *testing.T) {
	ts := newTestServer(t, WithReadyCheck("storage", func(context.Context) error {
		return errors.New("disk gone")
	}))

	rr := ts.do(t, http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var resp struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp.Status)
	assert.Equal(t, "failed: disk gone", resp.Checks["storage"])
	assert.Equal(t, "ok", resp.Checks["templates"])
}

func TestStaticAssetsAreCached(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodGet, "/static/swipe.js", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=3600", rr.Header().Get("Cache-Control"))
	assert.Contains(t, rr.Body.String(), "/ui/gesture/")

	rr = ts.do(t, http.MethodGet, "/ui/screen", nil)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestWrongMethodIsRejected(t *testing.T) {
	ts := newTestServer(t)
	rr := ts.do(t, http.MethodGet, "/items", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestTapOpensCounterAndIncrements(t *testing.T) {
	ts := newTestServer(t)

	row, code := ts.gesture(t, "chopp", "start", 40)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "dragging", row.State)

	row, code = ts.gesture(t, "chopp", "end", 40)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "tap", row.Outcome)
	assert.True(t, row.Open)

	rr := ts.do(t, http.MethodGet, "/ui/screen", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="counter"`)
	assert.Contains(t, rr.Body.String(), "Subtotal: R$ 0.00")

	rr = ts.do(t, http.MethodPost, "/ui/items/chopp/increment", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<span class="big-count">1</span>`)
	assert.Contains(t, rr.Body.String(), "Subtotal: R$ 12.00")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"tab:changed"`)

	rr = ts.do(t, http.MethodPost, "/ui/items/chopp/decrement", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, http.MethodPost, "/ui/items/chopp/decrement", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `<span class="big-count">0</span>`)

	rr = ts.do(t, http.MethodPost, "/ui/back", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="dashboard"`)
}

func TestOpenItemRoute(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/ui/items/pizza/open", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="counter"`)
	assert.Contains(t, rr.Body.String(), "Pizza")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"screen":"counter"`)
}

func TestStaleActionRerendersScreen(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/ui/back", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="dashboard"`)

	rr = ts.do(t, http.MethodPost, "/ui/items/ghost/open", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="dashboard"`)
}

func TestPriceEdit(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.ctrl.OpenItem(context.Background(), "pizza"))

	rr := ts.do(t, http.MethodPost, "/ui/price/edit", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="8.5"`)

	rr = ts.do(t, http.MethodPost, "/ui/price/save", url.Values{"price": {"15,5"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "R$ 15.50")
	assert.NotContains(t, rr.Body.String(), `class="modal"`)

	it, ok := ts.store.Get("pizza")
	require.True(t, ok)
	assert.Equal(t, 15.5, it.Price)

	// Garbage becomes zero rather than an error.
	ts.do(t, http.MethodPost, "/ui/price/edit", url.Values{})
	rr = ts.do(t, http.MethodPost, "/ui/price/save", url.Values{"price": {"abc"}})
	require.Equal(t, http.StatusOK, rr.Code)
	it, _ = ts.store.Get("pizza")
	assert.Equal(t, 0.0, it.Price)
}

func TestAddItemFlow(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/ui/add", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="add-item"`)
	assert.Contains(t, rr.Body.String(), "fa-martini-glass")

	rr = ts.do(t, http.MethodPost, "/ui/add/form", url.Values{"name": {"Cai"}, "price": {""}, "icon": {"4"}})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(t, http.MethodPost, "/items", url.Values{"name": {"  "}, "price": {"10"}, "icon": {"4"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, FlashTarget, rr.Header().Get("HX-Retarget"))
	assert.Contains(t, rr.Body.String(), "Informe o nome do item")

	rr = ts.do(t, http.MethodPost, "/items", url.Values{"name": {"Caipirinha"}, "price": {"abc"}, "icon": {"4"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Preço inválido")

	rr = ts.do(t, http.MethodPost, "/items", url.Values{"name": {"Caipirinha"}, "price": {"18,50"}, "icon": {"99"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Escolha um ícone")
	assert.Equal(t, 2, ts.store.Len())

	rr = ts.do(t, http.MethodPost, "/items", url.Values{"name": {"Caipirinha"}, "price": {"18,50"}, "icon": {"4"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="dashboard"`)
	assert.Contains(t, rr.Body.String(), "Caipirinha")
	assert.Contains(t, rr.Body.String(), "R$ 18.50")
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"form:reset"`)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"message":"Caipirinha adicionado"`)

	items := ts.store.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "Caipirinha", items[2].Name)
	assert.Equal(t, "bg-pink-400", items[2].Color)
	assert.Equal(t, 0, items[2].Count)

	// Icon choice survives, name and price do not.
	st := ts.ctrl.Snapshot()
	assert.Equal(t, view.Form{IconIndex: 4}, st.Form)
}

func TestCancelAddKeepsDraft(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, http.MethodPost, "/ui/add", url.Values{})
	ts.do(t, http.MethodPost, "/ui/add/form", url.Values{"name": {"Água"}, "price": {"5"}, "icon": {"3"}})

	rr := ts.do(t, http.MethodPost, "/ui/add/cancel", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="dashboard"`)

	rr = ts.do(t, http.MethodPost, "/ui/add", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `value="Água"`)
	assert.Contains(t, rr.Body.String(), `name="price" value="5"`)
}

func TestResetGate(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.store.Increment(ctx, "chopp")
	ts.store.Increment(ctx, "pizza")

	rr := ts.do(t, http.MethodPost, "/ui/reset", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Zerar a contagem")

	rr = ts.do(t, http.MethodPost, "/ui/reset/confirm", url.Values{"confirm": {"no"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Zerar a contagem")
	assert.NotContains(t, rr.Header().Get("HX-Trigger"), "show-notification")
	assert.Equal(t, 20.5, ts.store.TotalBill())

	ts.do(t, http.MethodPost, "/ui/reset", url.Values{})
	rr = ts.do(t, http.MethodPost, "/ui/reset/confirm", url.Values{"confirm": {"yes"}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="dashboard"`)
	assert.Equal(t, 0.0, ts.store.TotalBill())
	assert.Equal(t, 2, ts.store.Len())
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"message":"Contagem zerada"`)
}

func TestRecapFlow(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/ui/recap", url.Values{})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nada consumido ainda")

	ctx := context.Background()
	ts.store.Increment(ctx, "chopp")
	ts.store.Increment(ctx, "chopp")

	rr = ts.do(t, http.MethodPost, "/ui/recap", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="recap"`)
	assert.Contains(t, rr.Body.String(), "2x Chopp")
	assert.Contains(t, rr.Body.String(), "R$ 24.00")
	assert.NotContains(t, rr.Body.String(), "Pizza")

	ts.ctrl.Wait()
	rr = ts.do(t, http.MethodGet, "/ui/recap/summary", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "hx-get")
	assert.Contains(t, rr.Body.String(), "Você consumiu 2x Chopp por um total de R$ 24.00.")

	rr = ts.do(t, http.MethodPost, "/ui/recap/continue", url.Values{})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-screen="dashboard"`)
}

func TestSwipeRemovesItem(t *testing.T) {
	ts := newTestServer(t)

	_, code := ts.gesture(t, "pizza", "start", 300)
	require.Equal(t, http.StatusOK, code)
	row, _ := ts.gesture(t, "pizza", "move", 140)
	assert.Equal(t, -150.0, row.Offset)

	rr := ts.do(t, http.MethodGet, "/ui/screen", nil)
	assert.Contains(t, rr.Body.String(), "translateX(-150px)")

	row, _ = ts.gesture(t, "pizza", "end", 140)
	assert.Equal(t, "commit", row.Outcome)
	assert.True(t, row.Removed)
	assert.Equal(t, 2, ts.store.Len(), "removal waits for the settle delay")

	rr = ts.do(t, http.MethodGet, "/ui/screen", nil)
	assert.Contains(t, rr.Body.String(), "row-wrap removing")

	ts.removal.flush()
	assert.Equal(t, 1, ts.store.Len())
	_, ok := ts.store.Get("pizza")
	assert.False(t, ok)

	rr = ts.do(t, http.MethodGet, "/metrics", nil)
	assert.Contains(t, rr.Body.String(), "swipes_committed_total 1")
	assert.Contains(t, rr.Body.String(), "tab_items 1")
}

func TestShortSwipeSpringsBack(t *testing.T) {
	ts := newTestServer(t)

	ts.gesture(t, "chopp", "start", 200)
	ts.gesture(t, "chopp", "move", 150)
	row, _ := ts.gesture(t, "chopp", "end", 150)
	assert.Equal(t, "spring_back", row.Outcome)
	assert.Equal(t, 0.0, row.Offset)
	assert.False(t, row.Open)
	assert.Equal(t, 2, ts.store.Len())
}

func TestGestureErrors(t *testing.T) {
	ts := newTestServer(t)

	_, code := ts.gesture(t, "chopp", "wiggle", 0)
	assert.Equal(t, http.StatusBadRequest, code)

	rr := ts.do(t, http.MethodPost, "/ui/gesture/chopp/move", url.Values{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, http.MethodPost, "/ui/gesture/chopp/cancel", url.Values{})
	assert.Equal(t, http.StatusOK, rr.Code)

	_, code = ts.gesture(t, "ghost", "start", 0)
	assert.Equal(t, http.StatusNotFound, code)

	require.NoError(t, ts.ctrl.OpenItem(context.Background(), "chopp"))
	_, code = ts.gesture(t, "pizza", "start", 0)
	assert.Equal(t, http.StatusConflict, code)
}

func TestGestureAcceptsJSON(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ui/gesture/chopp/start", strings.NewReader(`{"x": 12.5}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	ts.Handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"state":"dragging"`)
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Increment(context.Background(), "chopp")

	ts.do(t, http.MethodGet, "/", nil)
	rr := ts.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "http_requests_total 1")
	assert.Contains(t, body, "tab_items 2")
	assert.Contains(t, body, "tab_bill_total 12.00")
	assert.Contains(t, body, "uptime_seconds")
}

func TestShutdownIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	assert.NoError(t, ts.Shutdown(ctx))
	assert.NoError(t, ts.Shutdown(ctx))
}

func TestShutdownAppliesCommittedSwipe(t *testing.T) {
	ts := newTestServer(t)

	ts.gesture(t, "pizza", "start", 300)
	ts.gesture(t, "pizza", "move", 140)
	row, _ := ts.gesture(t, "pizza", "end", 140)
	require.Equal(t, "commit", row.Outcome)
	require.Equal(t, 2, ts.store.Len())

	require.NoError(t, ts.Shutdown(context.Background()))

	_, ok := ts.store.Get("pizza")
	assert.False(t, ok)
	assert.Equal(t, 1, ts.store.Len())
}

func TestDashboardRowsShowSubtotal(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	ts.store.Increment(ctx, "pizza")
	ts.store.Increment(ctx, "pizza")
	ts.store.Increment(ctx, "pizza")

	rr := ts.do(t, http.MethodGet, "/ui/screen", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `<span class="row-subtotal">R$ 25.50</span>`)
	assert.Contains(t, body, `<span class="row-subtotal">R$ 0.00</span>`)
}

func TestGestureRequestsLogAsGesture(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	ts := newTestServer(t, WithLogger(logger))

	_, code := ts.gesture(t, "chopp", "start", 120)
	require.Equal(t, http.StatusOK, code)

	var line string
	for _, l := range strings.Split(buf.String(), "\n") {
		if strings.Contains(l, "Gesture event") {
			line = l
		}
	}
	require.NotEmpty(t, line, "gesture event not logged: %s", buf.String())
	assert.Contains(t, line, "component=gesture")
	assert.Contains(t, line, "phase=start")
}
