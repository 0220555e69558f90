package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"ingressos-web/internal/events"
	"ingressos-web/internal/followup"
	"ingressos-web/internal/logger"
	"ingressos-web/internal/metrics"
	"ingressos-web/internal/payment"

	"go.uber.org/zap"
)

const (
	sharedReferencePrefix = "shared_ticket_"
	boletoDueDays         = 7
	dueDateLayout         = "2006-01-02"
	defaultCancelTimeout  = 10 * time.Second

	// The storefront does not collect a billing address; the gateway
	// requires one for card holders.
	placeholderPostalCode        = "01310-100"
	placeholderAddressNumber     = "1000"
	placeholderAddressComplement = "Sala 1"
)

type PaymentCreator interface {
	CreatePayment(ctx context.Context, req payment.Request, token string) (*payment.Response, error)
}

type OrderCanceller interface {
	CancelOrder(ctx context.Context, orderID, token string) error
}

type TransferAccepter interface {
	AcceptSharedTicket(ctx context.Context, shareToken, token string) error
}

// orderCarrier is satisfied by errors that know which orders the backend
// created before failing.
type orderCarrier interface {
	CreatedOrderIDs() []string
}

// Deps are the collaborators of an Orchestrator. FollowUps, Events and
// Metrics are optional.
type Deps struct {
	Payments  PaymentCreator
	Orders    OrderCanceller
	Transfers TransferAccepter
	Tokens    TokenSource
	FollowUps followup.Recorder
	Events    events.Publisher
	Metrics   *metrics.Checkout
}

type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateAcceptingTransfer
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateAcceptingTransfer:
		return "accepting_transfer"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithLocation sets the zone boleto due dates are computed in.
func WithLocation(loc *time.Location) Option {
	return func(o *Orchestrator) {
		if loc != nil {
			o.loc = loc
		}
	}
}

func WithCancelTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.cancelTimeout = d
		}
	}
}

// OnSuccess is called once the payment was created, pending or approved.
// For shared tickets it only runs after the transfer was accepted.
func OnSuccess(fn func(paymentID string, result Result)) Option {
	return func(o *Orchestrator) { o.onSuccess = fn }
}

func OnError(fn func(message string)) Option {
	return func(o *Orchestrator) { o.onError = fn }
}

// Orchestrator drives one checkout from form to terminal outcome.
type Orchestrator struct {
	deps     Deps
	form     *Form
	purchase Purchase

	now           func() time.Time
	loc           *time.Location
	cancelTimeout time.Duration
	onSuccess     func(string, Result)
	onError       func(string)

	inFlight atomic.Bool

	mu      sync.RWMutex
	state   State
	last    Result
	lastErr *Failure
}

func NewOrchestrator(form *Form, purchase Purchase, deps Deps, opts ...Option) *Orchestrator {
	if deps.FollowUps == nil {
		deps.FollowUps = followup.LogRecorder{}
	}
	if deps.Events == nil {
		deps.Events = events.Nop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = &metrics.Checkout{}
	}

	o := &Orchestrator{
		deps:          deps,
		form:          form,
		purchase:      purchase,
		now:           time.Now,
		loc:           time.UTC,
		cancelTimeout: defaultCancelTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) Form() *Form        { return o.form }
func (o *Orchestrator) Purchase() Purchase { return o.purchase }
func (o *Orchestrator) InFlight() bool     { return o.inFlight.Load() }

func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Last returns the outcome of the latest finished submission. A transfer
// failure yields both the paid Result and the Failure.
func (o *Orchestrator) Last() (Result, *Failure) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.last, o.lastErr
}

// Submit creates the payment for the current form state. Every call builds
// a fresh request; no idempotency key is sent, so retrying after a network
// failure may create a second payment on the backend.
//
// A concurrent call while one is in flight fails with KindInFlight and has
// no side effects.
func (o *Orchestrator) Submit(ctx context.Context) (Result, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return nil, newFailure(payment.KindInFlight, "", ErrInFlight)
	}
	defer o.inFlight.Store(false)

	o.deps.Metrics.Submissions.Inc()

	snap := o.form.Snapshot()
	result, approved, err := o.submit(ctx, snap)
	if f, ok := err.(*Failure); ok {
		f.method = snap.Method
	}
	o.finish(ctx, snap, result, approved, err)

	if err != nil {
		return nil, err
	}
	return result, nil
}

// submit reports whether the created payment counts as approved alongside
// the result.
func (o *Orchestrator) submit(ctx context.Context, snap FormSnapshot) (Result, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("billing_type", string(snap.Method)),
		zap.Bool("shared_ticket", o.purchase.Context.Shared()),
	)

	o.setState(StateValidating)
	if !snap.Valid() {
		return nil, false, newFailure(payment.KindValidation, payment.MsgFormIncomplete, ErrFormInvalid)
	}

	token := ""
	if o.deps.Tokens != nil {
		token = o.deps.Tokens.Token(ctx)
	}
	if token == "" {
		log.Info("submit without auth token")
		return nil, false, newFailure(payment.KindAuthRequired, "", ErrAuthRequired)
	}

	req, err := o.buildRequest(snap)
	if err != nil {
		return nil, false, err
	}

	o.setState(StateSubmitting)
	o.deps.Metrics.ByMethod.With(string(snap.Method)).Inc()

	timer := metrics.StartTimer()
	res, err := o.deps.Payments.CreatePayment(ctx, req, token)
	o.deps.Metrics.PaymentLatency.Observe(timer.Duration())

	if err != nil {
		var oc orderCarrier
		if errors.As(err, &oc) {
			for _, orderID := range oc.CreatedOrderIDs() {
				if orderID != "" {
					o.cancelOrderBestEffort(ctx, orderID, token)
				}
			}
		}
		c := payment.Classify(err)
		log.Warn("payment creation failed", zap.String("kind", string(c.Kind)), zap.Error(err))
		return nil, false, newFailure(c.Kind, c.Message, err)
	}
	if res == nil {
		return nil, false, newFailure(payment.KindUnknown, "", ErrEmptyResponse)
	}

	if !res.Success {
		log.Info("payment rejected by backend", zap.String("reason", res.Error))
		return nil, false, newFailure(payment.KindRejected, res.Error, fmt.Errorf("%w: %s", ErrRejected, res.Error))
	}

	result := toResult(snap.Method, res, req.DueDate)
	approved := isApproved(res)

	if o.purchase.Context.Shared() && approved {
		o.setState(StateAcceptingTransfer)
		if err := o.acceptTransfer(ctx, token); err != nil {
			log.Error("payment approved but shared ticket transfer failed",
				zap.String("payment_id", res.PaymentID),
				logger.Secret("share_token", o.purchase.Context.SharedTicketToken),
				zap.Error(err),
			)
			o.recordFollowUp(ctx, &followup.Record{
				Kind:         followup.KindTransferFailed,
				PaymentID:    res.PaymentID,
				ShareTokenFP: logger.Fingerprint(o.purchase.Context.SharedTicketToken),
				Detail:       err.Error(),
			})
			f := newFailure(payment.KindTransferFailed, "", err)
			f.paid = result
			return nil, false, f
		}
	}

	return result, approved, nil
}

func (o *Orchestrator) acceptTransfer(ctx context.Context, token string) error {
	if o.deps.Transfers == nil {
		return errors.New("no transfer accepter configured")
	}
	return o.deps.Transfers.AcceptSharedTicket(ctx, o.purchase.Context.SharedTicketToken, token)
}

func (o *Orchestrator) buildRequest(snap FormSnapshot) (payment.Request, error) {
	req := payment.Request{
		BillingType:         snap.Method,
		Value:               payment.AmountValue(o.purchase.Amount),
		Description:         o.purchase.Description,
		CustomerCPF:         snap.Payer.CPF,
		CustomerPhone:       snap.Payer.Phone,
		CustomerMobilePhone: snap.Payer.MobilePhone,
	}

	pc := o.purchase.Context
	switch {
	case pc.Shared():
		req.ExternalReference = sharedReferencePrefix + pc.SharedTicketToken
	case len(pc.Items) > 0:
		req.Items = requestItems(pc.Items)
	}

	switch snap.Method {
	case payment.MethodCreditCard:
		if !snap.Card.Complete() {
			return req, newFailure(payment.KindValidation, payment.MsgCardIncomplete, ErrCardIncomplete)
		}
		req.CreditCard = payment.NewCreditCard(snap.Card)
		req.CreditCardHolderInfo = &payment.HolderInfo{
			Name:              snap.Payer.Name,
			Email:             snap.Payer.Email,
			CPFCNPJ:           snap.Payer.CPF,
			PostalCode:        placeholderPostalCode,
			AddressNumber:     placeholderAddressNumber,
			AddressComplement: placeholderAddressComplement,
			Phone:             snap.Payer.Phone,
			MobilePhone:       snap.Payer.MobilePhone,
		}
		req.InstallmentCount = snap.Installments
	case payment.MethodBoleto:
		req.DueDate = o.now().In(o.loc).AddDate(0, 0, boletoDueDays).Format(dueDateLayout)
	}

	return req, nil
}

func requestItems(items []CartItem) []payment.RequestItem {
	out := make([]payment.RequestItem, 0, len(items))
	for _, it := range items {
		ri := payment.RequestItem{
			OccurrenceID: it.OccurrenceID,
			TicketTypeID: it.TicketTypeID,
			Quantity:     it.Quantity,
		}
		if it.IndividualTicketID != "" {
			ri.TicketIDs = []string{it.IndividualTicketID}
		}
		out = append(out, ri)
	}
	return out
}

// cancelOrderBestEffort releases an order left behind by a failed payment.
// It never blocks the failure from being reported and never returns an
// error; failures are logged and recorded as follow-ups.
func (o *Orchestrator) cancelOrderBestEffort(ctx context.Context, orderID, token string) {
	log := logger.FromCtx(ctx).With(zap.String("order_id", orderID))

	if o.deps.Orders == nil {
		log.Warn("order left behind by failed payment, no canceller configured")
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cancelTimeout)
	defer cancel()

	o.deps.Metrics.Cancellations.Inc()
	if err := o.deps.Orders.CancelOrder(cctx, orderID, token); err != nil {
		o.deps.Metrics.CancelFailures.Inc()
		log.Warn("compensating order cancellation failed", zap.Error(err))
		o.recordFollowUp(ctx, &followup.Record{
			Kind:    followup.KindCancelFailed,
			OrderID: orderID,
			Detail:  err.Error(),
		})
		return
	}
	log.Info("order cancelled after failed payment")
}

func (o *Orchestrator) recordFollowUp(ctx context.Context, rec *followup.Record) {
	rec.SessionID = logger.SessionIDFrom(ctx)
	if err := o.deps.FollowUps.Save(context.WithoutCancel(ctx), rec); err != nil {
		logger.FromCtx(ctx).Error("failed to record follow-up",
			zap.String("kind", string(rec.Kind)),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) finish(ctx context.Context, snap FormSnapshot, result Result, approved bool, err error) {
	ev := events.Event{
		SessionID:   logger.SessionIDFrom(ctx),
		BillingType: string(snap.Method),
		Amount:      o.purchase.Amount.StringFixed(2),
	}
	if o.purchase.Context.Shared() {
		ev.ShareTokenFP = logger.Fingerprint(o.purchase.Context.SharedTicketToken)
	}

	if err == nil {
		o.mu.Lock()
		o.state, o.last, o.lastErr = StateSucceeded, result, nil
		o.mu.Unlock()

		ev.Type, ev.PaymentID, ev.Status = events.PaymentCreated, result.ID(), resultStatus(result)
		if approved {
			o.deps.Metrics.Approved.Inc()
			ev.Type = events.PaymentApproved
		} else {
			o.deps.Metrics.Pending.Inc()
		}
		o.publish(ctx, ev)

		if o.onSuccess != nil {
			o.onSuccess(result.ID(), result)
		}
		return
	}

	f := AsFailure(err)
	o.mu.Lock()
	o.state, o.last, o.lastErr = StateFailed, f.Paid(), f
	o.mu.Unlock()

	o.deps.Metrics.FailuresByKind.With(string(f.Kind())).Inc()
	ev.ErrorKind = string(f.Kind())

	switch f.Kind() {
	case payment.KindValidation, payment.KindAuthRequired:
		// Nothing reached the backend.
	case payment.KindTransferFailed:
		o.deps.Metrics.Approved.Inc()
		o.deps.Metrics.TransferFailed.Inc()
		ev.Type, ev.PaymentID, ev.Status = events.TransferFailed, f.Paid().ID(), resultStatus(f.Paid())
		o.publish(ctx, ev)
	default:
		if f.Kind() == payment.KindRejected {
			o.deps.Metrics.Rejected.Inc()
		}
		ev.Type = events.PaymentFailed
		o.publish(ctx, ev)
	}

	if o.onError != nil {
		o.onError(f.UserMessage())
	}
}

func (o *Orchestrator) publish(ctx context.Context, ev events.Event) {
	if err := o.deps.Events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		logger.FromCtx(ctx).Warn("checkout event dropped", zap.String("type", ev.Type), zap.Error(err))
	}
}

func resultStatus(r Result) string {
	switch v := r.(type) {
	case *PixResult:
		return v.Status
	case *BoletoResult:
		return v.Status
	case *CardResult:
		return v.Status
	default:
		return ""
	}
}
