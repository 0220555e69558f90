package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ingressos-web/internal/auth"
	"ingressos-web/internal/checkout"
	"ingressos-web/internal/metrics"
	"ingressos-web/internal/middleware"
	"ingressos-web/internal/payment"
	"ingressos-web/internal/session"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) ListPaymentMethods(ctx context.Context) ([]payment.EnabledMethod, error) {
	args := m.Called(ctx)
	methods, _ := args.Get(0).([]payment.EnabledMethod)
	return methods, args.Error(1)
}

func (m *MockBackend) GetInstallments(ctx context.Context, amount decimal.Decimal) ([]payment.InstallmentOption, error) {
	args := m.Called(ctx, amount.StringFixed(2))
	options, _ := args.Get(0).([]payment.InstallmentOption)
	return options, args.Error(1)
}

func (m *MockBackend) CreatePayment(ctx context.Context, req payment.Request, token string) (*payment.Response, error) {
	args := m.Called(ctx, req, token)
	res, _ := args.Get(0).(*payment.Response)
	return res, args.Error(1)
}

func (m *MockBackend) CancelOrder(ctx context.Context, orderID, token string) error {
	return m.Called(ctx, orderID, token).Error(0)
}

func (m *MockBackend) AcceptSharedTicket(ctx context.Context, shareToken, token string) error {
	return m.Called(ctx, shareToken, token).Error(0)
}

type testServer struct {
	router  http.Handler
	backend *MockBackend
	store   *session.Store
	metrics *metrics.Checkout
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	be := new(MockBackend)
	be.On("ListPaymentMethods", mock.Anything).Return([]payment.EnabledMethod{
		{ID: "PIX", Name: "Pix", Enabled: true},
		{ID: "CREDIT_CARD", Name: "Cartão", Enabled: true},
	}, nil).Maybe()

	store := session.NewStore(time.Minute)
	m := &metrics.Checkout{}
	h := New(store, session.NewCookieBinder([]byte("0123456789abcdef0123456789abcdef"), false), be, checkout.Deps{
		Payments:  be,
		Orders:    be,
		Transfers: be,
		Tokens:    auth.ContextToken{},
		Metrics:   m,
	}, nil)

	r := mux.NewRouter()
	h.Routes(r)
	return &testServer{router: middleware.AuthMiddleware(r), backend: be, store: store, metrics: m}
}

type call struct {
	method string
	path   string
	body   any
	cookie *http.Cookie
	token  string
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// create opens a checkout session and returns its id and cookie.
func (s *testServer) create(t *testing.T, body map[string]any) (string, *http.Cookie) {
	t.Helper()
	w := s.do(t, call{method: http.MethodPost, path: "/checkout", body: body})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view formView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	return view.ID, cookies[0]
}

func (s *testServer) fillPayer(t *testing.T, id string, cookie *http.Cookie) {
	t.Helper()
	w := s.do(t, call{method: http.MethodPut, path: "/checkout/" + id + "/payer", cookie: cookie, body: map[string]string{
		"name":  "Maria Silva",
		"email": "maria@example.com",
		"cpf":   "12345678909",
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func decodeView(t *testing.T, w *httptest.ResponseRecorder) checkout.View {
	t.Helper()
	var v checkout.View
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestCreate(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, call{method: http.MethodPost, path: "/checkout", body: map[string]any{
		"amount":      "150.00",
		"description": "Ingresso",
		"items":       []map[string]any{{"occurrence_id": "o1", "ticket_type_id": "t1", "quantity": 1}},
	}})

	require.Equal(t, http.StatusCreated, w.Code)
	var view formView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "R$ 150,00", view.Amount)
	assert.Equal(t, payment.MethodPix, view.Method)
	assert.Len(t, view.Methods, 2)
	assert.False(t, view.Valid)
	assert.Equal(t, "idle", view.State)
	assert.Equal(t, 1, s.store.Len())
	assert.Equal(t, uint64(1), s.metrics.SessionsCreated.Load())
}

func TestCreate_InvalidInput(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, call{method: http.MethodPost, path: "/checkout", body: map[string]any{"amount": 0}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGet_RequiresBoundCookie(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.create(t, map[string]any{"amount": 10})

	w := s.do(t, call{method: http.MethodGet, path: "/checkout/" + id, cookie: cookie})
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, call{method: http.MethodGet, path: "/checkout/" + id})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, call{method: http.MethodGet, path: "/checkout/other", cookie: cookie})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdates(t *testing.T) {
	s := newTestServer(t)
	s.backend.On("GetInstallments", mock.Anything, "100.00").Return([]payment.InstallmentOption{
		{Installments: 1, InstallmentAmount: decimal.NewFromInt(100), TotalAmount: decimal.NewFromInt(100)},
		{Installments: 3, InstallmentAmount: decimal.RequireFromString("34.33"), TotalAmount: decimal.RequireFromString("102.99")},
	}, nil).Once()

	id, cookie := s.create(t, map[string]any{"amount": "100"})
	s.fillPayer(t, id, cookie)

	w := s.do(t, call{method: http.MethodPut, path: "/checkout/" + id + "/method", cookie: cookie, body: map[string]string{"billing_type": "credit_card"}})
	require.Equal(t, http.StatusOK, w.Code)
	var view formView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, payment.MethodCreditCard, view.Method)
	assert.Len(t, view.InstallmentOptions, 2)
	assert.False(t, view.Valid)

	w = s.do(t, call{method: http.MethodPut, path: "/checkout/" + id + "/card", cookie: cookie, body: map[string]string{
		"holder_name":  "MARIA SILVA",
		"number":       "4111111111111111",
		"expiry_month": "12",
		"expiry_year":  "2030",
		"ccv":          "123",
	}})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.True(t, view.Valid)
	require.NotNil(t, view.Card)
	assert.Equal(t, "••••••••••••1111", view.Card.Number)
	assert.NotContains(t, w.Body.String(), "4111111111111111")
	assert.NotContains(t, w.Body.String(), `"123"`)

	w = s.do(t, call{method: http.MethodPut, path: "/checkout/" + id + "/installments", cookie: cookie, body: map[string]int{"installments": 3}})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, 3, view.Installments)

	w = s.do(t, call{method: http.MethodPut, path: "/checkout/" + id + "/installments", cookie: cookie, body: map[string]int{"installments": 0}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, call{method: http.MethodPut, path: "/checkout/" + id + "/method", cookie: cookie, body: map[string]string{"billing_type": "CHEQUE"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, call{method: http.MethodPut, path: "/checkout/" + id + "/payer", cookie: cookie, body: map[string]string{"address": "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.backend.AssertExpectations(t)
}

func TestSubmit_WithoutToken(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.create(t, map[string]any{"amount": 10})
	s.fillPayer(t, id, cookie)

	w := s.do(t, call{method: http.MethodPost, path: "/checkout/" + id + "/submit", cookie: cookie})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	v := decodeView(t, w)
	assert.Equal(t, checkout.ModeError, v.Mode)
	assert.Equal(t, payment.MsgAuthRequired, v.Message)
	assert.True(t, v.CanRetry)
	s.backend.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_Pix(t *testing.T) {
	s := newTestServer(t)
	s.backend.On("CreatePayment", mock.Anything, mock.Anything, "tok").
		Return(&payment.Response{Success: true, PaymentID: "pay_1", Status: "PENDING", QRCode: "iVBOR", PixCode: "0002"}, nil)

	id, cookie := s.create(t, map[string]any{"amount": "25.5"})
	s.fillPayer(t, id, cookie)

	w := s.do(t, call{method: http.MethodPost, path: "/checkout/" + id + "/submit", cookie: cookie, token: "tok"})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decodeView(t, w)
	assert.Equal(t, checkout.ModePix, v.Mode)
	assert.Equal(t, "pay_1", v.PaymentID)
	assert.Equal(t, "data:image/png;base64,iVBOR", v.QRImage)
	assert.Equal(t, "R$ 25,50", v.Amount)

	w = s.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, w.Code)
	var mv map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mv))
	assert.EqualValues(t, 1, mv["approved"])
	assert.EqualValues(t, 1, mv["active_sessions"])
}

func TestSubmit_ViewUsesSubmittedMethod(t *testing.T) {
	s := newTestServer(t)
	id, cookie := s.create(t, map[string]any{"amount": 10})
	s.fillPayer(t, id, cookie)

	sess, ok := s.store.Get(id)
	require.True(t, ok)

	// The method changes while the PIX payment is being created.
	s.backend.On("CreatePayment", mock.Anything, mock.Anything, "tok").
		Run(func(mock.Arguments) { require.NoError(t, sess.Form.SetBillingMethod(payment.MethodBoleto)) }).
		Return(nil, context.DeadlineExceeded).Once()
	s.backend.On("CreatePayment", mock.Anything, mock.Anything, "tok").
		Run(func(mock.Arguments) { require.NoError(t, sess.Form.SetBillingMethod(payment.MethodCreditCard)) }).
		Return(&payment.Response{Success: true, PaymentID: "pay_b", Status: "PENDING", BankSlipURL: "https://slip/1"}, nil).Once()

	w := s.do(t, call{method: http.MethodPost, path: "/checkout/" + id + "/submit", cookie: cookie, token: "tok"})
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, payment.MethodPix, decodeView(t, w).Method)

	w = s.do(t, call{method: http.MethodPost, path: "/checkout/" + id + "/submit", cookie: cookie, token: "tok"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	v := decodeView(t, w)
	assert.Equal(t, payment.MethodBoleto, v.Method)
	assert.Equal(t, checkout.ModeBoleto, v.Mode)
}

func TestSubmit_RejectedStatus(t *testing.T) {
	s := newTestServer(t)
	s.backend.On("CreatePayment", mock.Anything, mock.Anything, "tok").
		Return(&payment.Response{Success: false, Error: "Cartão recusado"}, nil)

	id, cookie := s.create(t, map[string]any{"amount": 10})
	s.fillPayer(t, id, cookie)

	w := s.do(t, call{method: http.MethodPost, path: "/checkout/" + id + "/submit", cookie: cookie, token: "tok"})

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, "Cartão recusado", decodeView(t, w).Message)
}

func TestSubmit_SharedTicketTransferFailed(t *testing.T) {
	s := newTestServer(t)
	s.backend.On("CreatePayment", mock.Anything, mock.Anything, "tok").
		Return(&payment.Response{Success: true, PaymentID: "pay_9"}, nil)
	s.backend.On("AcceptSharedTicket", mock.Anything, "share-1", "tok").
		Return(assert.AnError)

	id, cookie := s.create(t, map[string]any{"amount": 80, "shared_ticket_token": "share-1"})
	s.fillPayer(t, id, cookie)

	w := s.do(t, call{method: http.MethodPost, path: "/checkout/" + id + "/submit", cookie: cookie, token: "tok"})

	assert.Equal(t, http.StatusMultiStatus, w.Code)
	v := decodeView(t, w)
	assert.Equal(t, payment.KindTransferFailed, v.ErrorKind)
	assert.False(t, v.CanRetry)
	assert.Equal(t, "pay_9", v.PaymentID)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
