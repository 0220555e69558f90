package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	OccurrenceID       string `json:"occurrence_id"`
	TicketTypeID       string `json:"ticket_type_id"`
	Quantity           int    `json:"quantity"`
	IndividualTicketID string `json:"individual_ticket_id,omitempty"`
}

// PaymentContext says what is being paid for: cart items or a pending
// shared-ticket transfer. When both are set the shared ticket wins.
type PaymentContext struct {
	Items             []CartItem `json:"items,omitempty"`
	SharedTicketToken string     `json:"shared_ticket_token,omitempty"`
}

func (c PaymentContext) Shared() bool {
	return c.SharedTicketToken != ""
}

// Purchase is fixed for the lifetime of a checkout session.
type Purchase struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Context     PaymentContext  `json:"context"`
}

// TokenSource yields the payer's auth token, or "" when not logged in.
type TokenSource interface {
	Token(ctx context.Context) string
}

type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// StaticToken always yields the same token.
type StaticToken string

func (s StaticToken) Token(context.Context) string { return string(s) }
