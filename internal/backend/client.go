package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ingressos-web/internal/logger"
	"ingressos-web/internal/payment"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	methodsPath        = "/api/payment/methods/"
	installmentsPath   = "/api/payment/installments/"
	cancelOrderPath    = "/api/orders/%s/cancel/"
	acceptSharingPath  = "/api/v1/sharing/accept/%s/"
	defaultHTTPTimeout = 15 * time.Second
)

// Client is the storefront's transport to the ticketing backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ----------------- Constructor -----------------

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		logger.L().Warn("backend base URL is empty")
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// ----------------- Payment methods -----------------

func (c *Client) ListPaymentMethods(ctx context.Context) ([]payment.EnabledMethod, error) {
	var res methodsResponse
	if err := c.do(ctx, "list_methods", http.MethodGet, methodsPath, "", nil, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("list payment methods: %w", ErrUnsuccessful)
	}
	return res.Methods, nil
}

// ----------------- Installments -----------------

func (c *Client) GetInstallments(ctx context.Context, amount decimal.Decimal) ([]payment.InstallmentOption, error) {
	q := url.Values{}
	q.Set("amount", amount.StringFixed(2))

	var res installmentsResponse
	if err := c.do(ctx, "installments", http.MethodGet, installmentsPath+"?"+q.Encode(), "", nil, &res); err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("get installments: %w", ErrUnsuccessful)
	}
	return res.Options, nil
}

// ----------------- Cancel order -----------------

func (c *Client) CancelOrder(ctx context.Context, orderID, token string) error {
	if orderID == "" {
		return ErrMissingTarget
	}
	if token == "" {
		return ErrMissingToken
	}
	path := fmt.Sprintf(cancelOrderPath, url.PathEscape(orderID))
	return c.do(ctx, "cancel_order", http.MethodPost, path, token, nil, nil)
}

// ----------------- Accept shared ticket -----------------

func (c *Client) AcceptSharedTicket(ctx context.Context, shareToken, token string) error {
	if shareToken == "" {
		return ErrMissingTarget
	}
	if token == "" {
		return ErrMissingToken
	}
	path := fmt.Sprintf(acceptSharingPath, url.PathEscape(shareToken))
	return c.do(ctx, "accept_shared_ticket", http.MethodPost, path, token, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body []byte, out any) error {
	return c.send(ctx, c.httpClient, op, method, path, token, body, out)
}

// send issues one request through hc. A nil body sends no payload; a nil
// out discards the response body after the status check.
func (c *Client) send(ctx context.Context, hc *http.Client, op, method, path, token string, body []byte, out any) error {
	log := logger.FromCtx(ctx).With(
		zap.String("op", op),
		zap.String("method", method),
		zap.String("path", redactPath(path)),
	)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		log.Error("Failed creating request", zap.Error(err))
		return err
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	if reqID := logger.RequestIDFrom(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := hc.Do(req)
	if err != nil {
		log.Error("Backend request failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("Failed to read response body", zap.Error(err))
		return fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newAPIError(op, resp.StatusCode, bodyBytes)
		log.Error("Backend returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message),
			zap.String("order_id", apiErr.OrderID),
		)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		log.Error("Failed decoding backend response", zap.Error(err))
		return fmt.Errorf("decode %s response: %w", op, err)
	}

	return nil
}

// redactPath hides the share token in accept URLs.
func redactPath(path string) string {
	prefix := "/api/v1/sharing/accept/"
	if !strings.HasPrefix(path, prefix) {
		return path
	}
	token := strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
	return prefix + logger.Fingerprint(token) + "/"
}
