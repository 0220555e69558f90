package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"ingressos-web/internal/logger"
	"ingressos-web/internal/payment"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	defaultCreatePath     = "/api/payment/create/"
	defaultAttemptTimeout = 30 * time.Second
	defaultMaxRetries     = 3
)

// PaymentClient creates payments. It owns the retry and timeout policy of
// the create call; callers see one attempt that yields a response or an
// error, never both.
type PaymentClient struct {
	api            *Client
	httpClient     *http.Client
	createPath     string
	attemptTimeout time.Duration
	maxRetries     uint64
	newBackOff     func() backoff.BackOff
}

type PaymentClientOption func(*PaymentClient)

func WithCreatePath(path string) PaymentClientOption {
	return func(p *PaymentClient) {
		if path != "" {
			p.createPath = path
		}
	}
}

func WithAttemptTimeout(d time.Duration) PaymentClientOption {
	return func(p *PaymentClient) {
		if d > 0 {
			p.attemptTimeout = d
		}
	}
}

func WithMaxRetries(n int) PaymentClientOption {
	return func(p *PaymentClient) {
		if n >= 0 {
			p.maxRetries = uint64(n)
		}
	}
}

// WithBackOff replaces the delay policy between attempts.
func WithBackOff(newBackOff func() backoff.BackOff) PaymentClientOption {
	return func(p *PaymentClient) {
		p.newBackOff = newBackOff
	}
}

func NewPaymentClient(api *Client, opts ...PaymentClientOption) *PaymentClient {
	// Attempts are bounded by attemptTimeout alone; the API client's
	// overall timeout would cut slow card authorizations short.
	p := &PaymentClient{
		api:            api,
		httpClient:     &http.Client{Transport: api.httpClient.Transport},
		createPath:     defaultCreatePath,
		attemptTimeout: defaultAttemptTimeout,
		maxRetries:     defaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 300 * time.Millisecond
			b.MaxElapsedTime = 10 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ----------------- CreatePayment -----------------

func (p *PaymentClient) CreatePayment(ctx context.Context, req payment.Request, token string) (*payment.Response, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("billing_type", string(req.BillingType)),
		zap.String("value", req.Value.String()),
		zap.Int("items", len(req.Items)),
		zap.Bool("shared_ticket", req.ExternalReference != ""),
	)

	if token == "" {
		return nil, ErrMissingToken
	}

	// Marshalled once so every attempt sends the same bytes.
	body, err := json.Marshal(req)
	if err != nil {
		log.Error("Failed to marshal payment request", zap.Error(err))
		return nil, err
	}

	var (
		res      payment.Response
		attempt  int
		orderIDs []string
	)

	operation := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, p.attemptTimeout)
		defer cancel()

		res = payment.Response{}
		err := p.api.send(attemptCtx, p.httpClient, "create_payment", http.MethodPost, p.createPath, token, body, &res)
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.OrderID != "" {
			// The backend reserved stock for this attempt; another attempt
			// would reserve more.
			orderIDs = append(orderIDs, apiErr.OrderID)
			return backoff.Permanent(err)
		}
		if retryable(err) {
			log.Warn("Payment create attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return backoff.Permanent(err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)
	if err := backoff.Retry(operation, b); err != nil {
		log.Error("Payment create failed",
			zap.Int("attempts", attempt),
			zap.Strings("order_ids", orderIDs),
			zap.Error(err),
		)
		if len(orderIDs) > 0 {
			return nil, &CreateError{Err: err, OrderIDs: orderIDs}
		}
		return nil, err
	}

	log.Info("Payment created",
		zap.String("payment_id", res.PaymentID),
		zap.String("status", res.Status),
		zap.Bool("success", res.Success),
		zap.Int("attempts", attempt),
	)

	return &res, nil
}

// retryable only admits failures where the backend cannot have created a
// payment: the connection was never established, or the backend shed load
// before handling the request.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusServiceUnavailable ||
			apiErr.StatusCode == http.StatusTooManyRequests
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}

	return false
}
