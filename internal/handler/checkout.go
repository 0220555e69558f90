package handler

import (
	"context"
	"net/http"
	"time"

	"ingressos-web/internal/checkout"
	"ingressos-web/internal/followup"
	"ingressos-web/internal/logger"
	"ingressos-web/internal/metrics"
	"ingressos-web/internal/payment"
	"ingressos-web/internal/session"
	"ingressos-web/internal/utils"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	msgSessionNotFound = "Sessão de checkout não encontrada ou expirada"
	msgInvalidBody     = "Requisição inválida"
	msgInvalidAmount   = "Valor da compra inválido"
	maxBodyBytes       = 64 << 10
)

type Handler struct {
	store   *session.Store
	cookies *session.CookieBinder
	methods checkout.MethodsSource
	deps    checkout.Deps
	loc     *time.Location
	metrics *metrics.Checkout

	followups   followup.Repository
	internalKey string
}

type Option func(*Handler)

// WithFollowUps exposes the follow-up queue to internal services that
// authenticate with key in X-Service-Auth.
func WithFollowUps(repo followup.Repository, key string) Option {
	return func(h *Handler) {
		h.followups = repo
		h.internalKey = key
	}
}

// New builds the checkout HTTP handlers. deps is shared by every session's
// orchestrator.
func New(store *session.Store, cookies *session.CookieBinder, methods checkout.MethodsSource, deps checkout.Deps, loc *time.Location, opts ...Option) *Handler {
	if deps.Metrics == nil {
		deps.Metrics = &metrics.Checkout{}
	}
	if loc == nil {
		loc = time.UTC
	}
	h := &Handler{
		store:   store,
		cookies: cookies,
		methods: methods,
		deps:    deps,
		loc:     loc,
		metrics: deps.Metrics,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) Routes(r *mux.Router) {
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/metrics", h.Metrics).Methods(http.MethodGet)

	r.HandleFunc("/checkout", h.Create).Methods(http.MethodPost)
	r.HandleFunc("/checkout/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc("/checkout/{id}/payer", h.UpdatePayer).Methods(http.MethodPut)
	r.HandleFunc("/checkout/{id}/method", h.UpdateMethod).Methods(http.MethodPut)
	r.HandleFunc("/checkout/{id}/card", h.UpdateCard).Methods(http.MethodPut)
	r.HandleFunc("/checkout/{id}/installments", h.UpdateInstallments).Methods(http.MethodPut)
	r.HandleFunc("/checkout/{id}/submit", h.Submit).Methods(http.MethodPost)

	if h.followups != nil {
		internal := r.PathPrefix("/internal").Subrouter()
		internal.Use(h.requireService)
		internal.HandleFunc("/followups", h.ListFollowUps).Methods(http.MethodGet)
		internal.HandleFunc("/followups/{id}/resolve", h.ResolveFollowUp).Methods(http.MethodPost)
	}
}

// ----------------- Session lifecycle -----------------

type createRequest struct {
	Amount            decimal.Decimal     `json:"amount"`
	Description       string              `json:"description"`
	Items             []checkout.CartItem `json:"items"`
	SharedTicketToken string              `json:"shared_ticket_token"`
	Method            string              `json:"billing_type"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		utils.WriteJSONError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		utils.WriteJSONError(w, msgInvalidAmount, http.StatusUnprocessableEntity)
		return
	}

	method, ok := payment.ParseMethod(req.Method)
	if !ok {
		method = payment.MethodPix
	}

	id := uuid.NewString()
	ctx := logger.WithSessionID(r.Context(), id)
	log := logger.FromCtx(ctx)

	purchase := checkout.Purchase{
		Amount:      req.Amount,
		Description: req.Description,
		Context: checkout.PaymentContext{
			Items:             req.Items,
			SharedTicketToken: req.SharedTicketToken,
		},
	}

	form := checkout.NewForm(method)
	loader := checkout.NewLoader(h.methods)
	orch := checkout.NewOrchestrator(form, purchase, h.deps, checkout.WithLocation(h.loc))

	// Failed loads only log; PIX and boleto work without them.
	_ = loader.Mount(ctx, purchase.Amount, method)

	sess := &session.Session{ID: id, Form: form, Loader: loader, Orchestrator: orch}
	h.store.Add(sess)
	h.metrics.SessionsCreated.Inc()

	if err := h.cookies.Bind(w, r, id); err != nil {
		log.Error("failed to bind checkout session cookie", zap.Error(err))
		h.store.Delete(id)
		utils.WriteJSONError(w, payment.MsgUnknown, http.StatusInternalServerError)
		return
	}

	log.Info("checkout session created",
		zap.String("billing_type", string(method)),
		zap.String("amount", purchase.Amount.StringFixed(2)),
		zap.Int("items", len(req.Items)),
		zap.Bool("shared_ticket", purchase.Context.Shared()),
	)

	utils.WriteJSON(w, http.StatusCreated, newFormView(sess))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, newFormView(sess))
}

// ----------------- Form updates -----------------

func (h *Handler) UpdatePayer(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var fields map[string]string
	if err := decode(w, r, &fields); err != nil {
		utils.WriteJSONError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	for name, value := range fields {
		if err := sess.Form.SetPayerField(checkout.PayerField(name), value); err != nil {
			utils.WriteJSONError(w, "Campo desconhecido: "+name, http.StatusBadRequest)
			return
		}
	}

	utils.WriteJSON(w, http.StatusOK, newFormView(sess))
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var fields map[string]string
	if err := decode(w, r, &fields); err != nil {
		utils.WriteJSONError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	for name, value := range fields {
		if err := sess.Form.SetCardField(checkout.CardField(name), value); err != nil {
			utils.WriteJSONError(w, "Campo desconhecido: "+name, http.StatusBadRequest)
			return
		}
	}

	utils.WriteJSON(w, http.StatusOK, newFormView(sess))
}

type methodRequest struct {
	Method string `json:"billing_type"`
}

func (h *Handler) UpdateMethod(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req methodRequest
	if err := decode(w, r, &req); err != nil {
		utils.WriteJSONError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}

	method, _ := payment.ParseMethod(req.Method)
	if err := sess.Form.SetBillingMethod(method); err != nil {
		utils.WriteJSONError(w, "Forma de pagamento inválida", http.StatusBadRequest)
		return
	}

	_ = sess.Loader.Refresh(ctx, sess.Orchestrator.Purchase().Amount, method)

	utils.WriteJSON(w, http.StatusOK, newFormView(sess))
}

type installmentsRequest struct {
	Installments int `json:"installments"`
}

func (h *Handler) UpdateInstallments(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req installmentsRequest
	if err := decode(w, r, &req); err != nil {
		utils.WriteJSONError(w, msgInvalidBody, http.StatusBadRequest)
		return
	}
	if err := sess.Form.SetInstallments(req.Installments); err != nil {
		utils.WriteJSONError(w, "Número de parcelas inválido", http.StatusBadRequest)
		return
	}

	utils.WriteJSON(w, http.StatusOK, newFormView(sess))
}

// ----------------- Submit -----------------

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ctx, ok := h.lookup(w, r)
	if !ok {
		return
	}

	result, err := sess.Orchestrator.Submit(ctx)
	view := checkout.Render(submittedMethod(sess, result, err), sess.Orchestrator.Purchase().Amount, result, err)

	status := http.StatusOK
	if err != nil {
		status = payment.HTTPStatus(checkout.AsFailure(err).Kind())
	}
	utils.WriteJSON(w, status, view)
}

// ----------------- Ops -----------------

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type metricsView struct {
	metrics.CheckoutSnapshot
	ActiveSessions int `json:"active_sessions"`
}

func (h *Handler) Metrics(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, metricsView{
		CheckoutSnapshot: h.metrics.Snapshot(),
		ActiveSessions:   h.store.Len(),
	})
}

// ----------------- Helpers -----------------

// lookup resolves the session in the path. The browser must carry the
// cookie bound to it; anything else is reported as not found.
func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, context.Context, bool) {
	id := mux.Vars(r)["id"]

	sess, ok := h.store.Get(id)
	if !ok || h.cookies.SessionID(r) != id {
		utils.WriteJSONError(w, msgSessionNotFound, http.StatusNotFound)
		return nil, nil, false
	}
	return sess, logger.WithSessionID(r.Context(), id), true
}

// submittedMethod is the method the orchestrator actually submitted, which
// may differ from the form when it changed mid-request.
func submittedMethod(sess *session.Session, result checkout.Result, err error) payment.Method {
	if result != nil {
		return result.Method()
	}
	if f := checkout.AsFailure(err); f != nil && f.Method() != "" {
		return f.Method()
	}
	return sess.Form.Snapshot().Method
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return utils.DecodeJSON(w, r, v, maxBodyBytes)
}
