package payment

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Method is the billing rail selected at checkout.
type Method string

const (
	MethodPix        Method = "PIX"
	MethodCreditCard Method = "CREDIT_CARD"
	MethodBoleto     Method = "BOLETO"
	MethodDebitCard  Method = "DEBIT_CARD"
	MethodTransfer   Method = "TRANSFER"
)

var knownMethods = map[Method]bool{
	MethodPix:        true,
	MethodCreditCard: true,
	MethodBoleto:     true,
	MethodDebitCard:  true,
	MethodTransfer:   true,
}

// ParseMethod accepts case-insensitive method names.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	return m, knownMethods[m]
}

func (m Method) Valid() bool {
	return knownMethods[m]
}

type PayerInfo struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	CPF         string `json:"cpf"`
	Phone       string `json:"phone"`
	MobilePhone string `json:"mobile_phone"`
}

type CreditCardInput struct {
	HolderName  string `json:"holder_name"`
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CCV         string `json:"ccv"`
}

// Complete reports whether every card field was filled in.
func (c CreditCardInput) Complete() bool {
	return c.HolderName != "" &&
		c.Number != "" &&
		c.ExpiryMonth != "" &&
		c.ExpiryYear != "" &&
		c.CCV != ""
}

// EnabledMethod is one entry of GET /api/payment/methods/.
type EnabledMethod struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// AmountValue renders amount the way the payment-create endpoint expects.
func AmountValue(amount decimal.Decimal) json.Number {
	return json.Number(amount.StringFixed(2))
}

type InstallmentOption struct {
	Installments      int             `json:"installments"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
}

// Request is the payload sent to the payment-create endpoint. Value is
// sent as a JSON number with exactly two decimals.
type Request struct {
	BillingType         Method      `json:"billing_type"`
	Value               json.Number `json:"value"`
	Description         string      `json:"description"`
	CustomerCPF         string      `json:"customer_cpf"`
	CustomerPhone       string      `json:"customer_phone"`
	CustomerMobilePhone string      `json:"customer_mobile_phone"`

	ExternalReference string        `json:"external_reference,omitempty"`
	Items             []RequestItem `json:"items,omitempty"`

	CreditCard           *CreditCard `json:"credit_card,omitempty"`
	CreditCardHolderInfo *HolderInfo `json:"credit_card_holder_info,omitempty"`
	InstallmentCount     int         `json:"installment_count,omitempty"`

	DueDate string `json:"due_date,omitempty"`
}

type RequestItem struct {
	OccurrenceID string   `json:"occurrence_id"`
	TicketTypeID string   `json:"ticket_type_id"`
	Quantity     int      `json:"quantity"`
	TicketIDs    []string `json:"ticket_ids,omitempty"`
}

// CreditCard is serialized with both naming conventions; the backend
// accepts either depending on the gateway adapter in use.
type CreditCard struct {
	HolderName       string `json:"holder_name"`
	HolderNameCamel  string `json:"holderName"`
	Number           string `json:"number"`
	ExpiryMonth      string `json:"expiry_month"`
	ExpiryMonthCamel string `json:"expiryMonth"`
	ExpiryYear       string `json:"expiry_year"`
	ExpiryYearCamel  string `json:"expiryYear"`
	CCV              string `json:"ccv"`
}

func NewCreditCard(in CreditCardInput) *CreditCard {
	number := DigitsOnly(in.Number)
	return &CreditCard{
		HolderName:       in.HolderName,
		HolderNameCamel:  in.HolderName,
		Number:           number,
		ExpiryMonth:      in.ExpiryMonth,
		ExpiryMonthCamel: in.ExpiryMonth,
		ExpiryYear:       in.ExpiryYear,
		ExpiryYearCamel:  in.ExpiryYear,
		CCV:              in.CCV,
	}
}

type HolderInfo struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	CPFCNPJ           string `json:"cpfCnpj"`
	PostalCode        string `json:"postalCode"`
	AddressNumber     string `json:"addressNumber"`
	AddressComplement string `json:"addressComplement"`
	Phone             string `json:"phone"`
	MobilePhone       string `json:"mobilePhone"`
}

// Response is the body returned by the payment-create endpoint.
type Response struct {
	Success     bool   `json:"success"`
	PaymentID   string `json:"payment_id,omitempty"`
	Status      string `json:"status,omitempty"`
	Error       string `json:"error,omitempty"`
	QRCode      string `json:"qr_code,omitempty"`
	PixCode     string `json:"pix_code,omitempty"`
	BankSlipURL string `json:"bank_slip_url,omitempty"`
	OrderID     string `json:"order_id,omitempty"`
}

// DigitsOnly strips everything but ASCII digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
