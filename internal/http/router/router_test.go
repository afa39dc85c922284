package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/swapmarket-backend/internal/auth"
	"github.com/ignatzorin/swapmarket-backend/internal/config"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/swapmarket-backend/internal/infrastructure/persistence/memory"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/dto"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/handler"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/swapmarket-backend/internal/testutil"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/dispute"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/escrow"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/inventory"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/order"
	"github.com/ignatzorin/swapmarket-backend/internal/usecase/trade"
	"github.com/ignatzorin/swapmarket-backend/internal/ws"
)

const testSecret = "router-test-secret"

type harness struct {
	t        *testing.T
	engine   *gin.Engine
	mem      *memory.Store
	tokens   *auth.TokenManager
	notifier *testutil.RecordingEmitter
	gateway  *testutil.GatewayMock
	clock    *testutil.Clock
}

func newHarness(t *testing.T, rateLimit int64) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := memory.NewStore()
	notifier := &testutil.RecordingEmitter{}
	gateway := &testutil.GatewayMock{}
	clock := testutil.NewClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	tokens := auth.NewTokenManager(testSecret, time.Minute)

	cfg := &config.Config{
		Env:             "test",
		StorageDriver:   "memory",
		AllowedOrigins:  []string{"http://localhost:3000"},
		RateLimitLimit:  rateLimit,
		RateLimitPeriod: time.Minute,
	}

	settings := trade.Settings{Window: 24 * time.Hour, Now: clock.Now}
	inv := inventory.NewAdjuster()
	ledger := escrow.NewLedger(mem)
	reversal := dispute.NewReversalProtocol(mem, inv, ledger, gateway)

	engine := SetupRouter(
		cfg,
		tokens,
		handler.NewOrderHandler(
			order.NewCreateOrderUseCase(mem, inv, ledger, notifier),
			order.NewUpdateOrderStatusUseCase(mem, inv, ledger, gateway, notifier),
			order.NewInitiatePaymentUseCase(mem, gateway, notifier),
			order.NewGetOrderUseCase(mem),
			order.NewListMyOrdersUseCase(mem),
			ledger,
		),
		handler.NewDisputeHandler(
			dispute.NewCreateDisputeUseCase(mem, notifier),
			dispute.NewReviewDisputeUseCase(mem, notifier),
			dispute.NewResolveDisputeUseCase(mem, reversal, notifier),
			dispute.NewGetDisputeUseCase(mem),
		),
		handler.NewTradeHandler(
			trade.NewCreateOfferUseCase(mem, notifier, settings),
			trade.NewUpdateTradeStatusUseCase(mem, inv, notifier, settings),
			trade.NewTradeTimerUseCase(mem, notifier, settings),
			trade.NewGetTradeUseCase(mem),
			clock.Now,
		),
		handler.NewWSHandler(ws.NewHub(), tokens, cfg.AllowedOrigins),
		handler.NewHealthHandler(nil, cfg.StorageDriver),
	)

	return &harness{
		t:        t,
		engine:   engine,
		mem:      mem,
		tokens:   tokens,
		notifier: notifier,
		gateway:  gateway,
		clock:    clock,
	}
}

func (h *harness) do(method, path string, actor *entity.Actor, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.doWithHeaders(method, path, actor, body, nil)
}

func (h *harness) doWithHeaders(method, path string, actor *entity.Actor, body any, headers map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := h.tokens.IssueAccess(*actor)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.True(t, env.Success, w.Body.String())

	var data T
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

func ptr(a entity.Actor) *entity.Actor { return &a }

func TestRouter_RequiresToken(t *testing.T) {
	h := newHarness(t, 100)

	w := h.do(http.MethodGet, "/api/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_InvalidUUID(t *testing.T) {
	h := newHarness(t, 100)
	buyer := testutil.User(uuid.New())

	w := h.do(http.MethodGet, "/api/orders/not-a-uuid", ptr(buyer), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", errorCode(t, w))
}

func TestRouter_CreateOrderValidation(t *testing.T) {
	h := newHarness(t, 100)
	buyer := testutil.User(uuid.New())

	w := h.do(http.MethodPost, "/api/orders", ptr(buyer), map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/orders", ptr(buyer), map[string]any{
		"items": []map[string]any{{"listing_id": uuid.New(), "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, w))
}

// Объявление на 5 шт., заказ на 2, оплата, спор, полный возврат: остаток снова 5,
// эскроу возвращено, повторное решение отклоняется с INVALID_STATE.
func TestRouter_DisputeFullRefundScenario(t *testing.T) {
	h := newHarness(t, 100)
	listing := testutil.SeedListing(h.mem, testutil.WithQuantity(5), testutil.DistressSale())
	buyer := testutil.User(uuid.New())
	seller := testutil.User(listing.OwnerID)
	admin := testutil.Admin()

	w := h.do(http.MethodPost, "/api/orders", ptr(buyer), map[string]any{
		"items":           []map[string]any{{"listing_id": listing.ID, "quantity": 2}},
		"shipping_method": "pickup",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[dto.OrderResponse](t, w)
	assert.Equal(t, int64(2000), created.TotalPriceCents)
	require.NotNil(t, created.Escrow)
	assert.Equal(t, "held", created.Escrow.Status)

	w = h.do(http.MethodPatch, "/api/orders/"+created.ID.String()+"/status", ptr(buyer), map[string]any{"status": "paid"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPatch, "/api/orders/"+created.ID.String()+"/status", ptr(seller), map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	disputeBody := map[string]any{
		"order_id":    created.ID,
		"reason":      "item_not_received",
		"description": "посылка не пришла",
	}
	w = h.do(http.MethodPost, "/api/disputes", ptr(buyer), disputeBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	opened := decode[dto.DisputeResponse](t, w)
	assert.Equal(t, "open", opened.Status)

	w = h.do(http.MethodPost, "/api/disputes", ptr(seller), disputeBody)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", errorCode(t, w))

	resolvePath := "/api/disputes/" + opened.ID.String() + "/resolve"
	w = h.do(http.MethodPost, resolvePath, ptr(buyer), map[string]any{"resolution": "full_refund"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, resolvePath, ptr(admin), map[string]any{"resolution": "full_refund", "admin_notes": "подтверждено"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[dto.DisputeResponse](t, w)
	assert.Equal(t, "resolved", resolved.Status)
	require.NotNil(t, resolved.Resolution)
	assert.Equal(t, "full_refund", *resolved.Resolution)

	w = h.do(http.MethodGet, "/api/orders/"+created.ID.String(), ptr(buyer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	reversed := decode[dto.OrderResponse](t, w)
	assert.Equal(t, "cancelled", reversed.Status)
	assert.Equal(t, "refunded", reversed.PaymentStatus)
	assert.NotNil(t, reversed.ReversedAt)

	w = h.do(http.MethodGet, "/api/orders/"+created.ID.String()+"/escrow", ptr(seller), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refunded", decode[dto.EscrowResponse](t, w).Status)

	restored, err := h.mem.GetListing(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, restored.Quantity)

	w = h.do(http.MethodPost, resolvePath, ptr(admin), map[string]any{"resolution": "full_refund"})
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))

	w = h.do(http.MethodGet, "/api/orders/"+created.ID.String()+"/disputes", ptr(seller), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.DisputeResponse](t, w), 1)

	assert.Empty(t, h.gateway.Calls, "платёж без ссылки возвращается без шлюза")
}

func TestRouter_CreateOrderRetryWithIdempotencyKey(t *testing.T) {
	h := newHarness(t, 100)
	listing := testutil.SeedListing(h.mem, testutil.WithQuantity(5))
	buyer := testutil.User(uuid.New())

	body := map[string]any{"items": []map[string]any{{"listing_id": listing.ID, "quantity": 2}}}
	headers := map[string]string{middleware.IdempotencyKeyHeader: "checkout-42"}

	first := h.doWithHeaders(http.MethodPost, "/api/orders", ptr(buyer), body, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := h.doWithHeaders(http.MethodPost, "/api/orders", ptr(buyer), body, headers)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())

	assert.Equal(t, "true", second.Header().Get(middleware.IdempotencyReplayedHeader))
	assert.Equal(t, decode[dto.OrderResponse](t, first).ID, decode[dto.OrderResponse](t, second).ID)

	stock, err := h.mem.GetListing(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stock.Quantity)

	w := h.do(http.MethodGet, "/api/orders", ptr(buyer), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]dto.OrderResponse](t, w), 1)
}

func TestRouter_TradeTimerFlow(t *testing.T) {
	h := newHarness(t, 100)
	listing := testutil.SeedListing(h.mem)
	buyer := testutil.User(uuid.New())
	seller := testutil.User(listing.OwnerID)

	w := h.do(http.MethodPost, "/api/trades", ptr(buyer), map[string]any{
		"listing_id":        listing.ID,
		"cash_top_up_cents": 500,
		"message":           "обменяю с доплатой",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	offered := decode[dto.TradeResponse](t, w)
	assert.Equal(t, "pending", offered.Status)
	assert.Nil(t, offered.Timer)
	base := "/api/trades/" + offered.ID.String()

	w = h.do(http.MethodPost, base+"/accept", ptr(buyer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, base+"/accept", ptr(seller), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	accepted := decode[dto.TradeResponse](t, w)
	require.NotNil(t, accepted.Timer)
	assert.Equal(t, (24 * time.Hour).Milliseconds(), accepted.Timer.RemainingMs)

	h.clock.Advance(time.Hour)

	w = h.do(http.MethodPost, base+"/timer/extend", ptr(buyer), nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.True(t, decode[dto.ExtendTimerResponse](t, w).Requested)

	w = h.do(http.MethodPost, base+"/timer/extend", ptr(seller), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	extended := decode[dto.ExtendTimerResponse](t, w)
	assert.False(t, extended.Requested)
	assert.Equal(t, 1, extended.Trade.ExtensionCount)

	w = h.do(http.MethodPost, base+"/timer/pause", ptr(buyer), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(http.MethodPost, base+"/timer/pause", ptr(seller), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	h.clock.Advance(5 * time.Hour)

	w = h.do(http.MethodGet, base+"/timer", ptr(buyer), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	view := decode[dto.TimerResponse](t, w)
	assert.True(t, view.IsPaused)
	assert.Equal(t, (23*time.Hour + 30*time.Minute).Milliseconds(), view.RemainingMs)
	assert.Equal(t, 2, view.ExtensionsLeft)

	w = h.do(http.MethodPost, base+"/timer/extend", ptr(seller), nil)
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	w = h.do(http.MethodPost, base+"/counter", ptr(seller), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, base+"/cancel", ptr(buyer), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	restored, err := h.mem.GetListing(context.Background(), listing.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.Quantity)
}

func TestRouter_RateLimit(t *testing.T) {
	h := newHarness(t, 2)
	buyer := testutil.User(uuid.New())

	for i := 0; i < 2; i++ {
		w := h.do(http.MethodGet, "/api/trades", ptr(buyer), nil)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := h.do(http.MethodGet, "/api/trades", ptr(buyer), nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "LIMIT_EXCEEDED", errorCode(t, w))

	// лимит считается на пользователя
	other := testutil.User(uuid.New())
	w = h.do(http.MethodGet, "/api/trades", ptr(other), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_HealthMetricsAndCORS(t *testing.T) {
	h := newHarness(t, 100)

	w := h.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health handler.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "memory", health.Checks["storage_driver"])

	w = h.do(http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swapmarket_http_requests_total")

	req := httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/api/orders", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.engine.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_WebSocketRequiresToken(t *testing.T) {
	h := newHarness(t, 100)

	w := h.do(http.MethodGet, "/api/ws", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/api/ws?token=garbage", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
