package checkout

import (
	"strings"
	"sync"

	"ingressos-web/internal/payment"

	"github.com/badoux/checkmail"
)

const (
	maxCardDigits  = 16
	minCardDigits  = 13
	maxCCVDigits   = 4
	minCCVDigits   = 3
	cardGroupWidth = 4
)

type PayerField string

const (
	PayerName        PayerField = "name"
	PayerEmail       PayerField = "email"
	PayerCPF         PayerField = "cpf"
	PayerPhone       PayerField = "phone"
	PayerMobilePhone PayerField = "mobile_phone"
)

type CardField string

const (
	CardHolderName  CardField = "holder_name"
	CardNumber      CardField = "number"
	CardExpiryMonth CardField = "expiry_month"
	CardExpiryYear  CardField = "expiry_year"
	CardCCV         CardField = "ccv"
)

// Form holds what the payer typed. It is safe for concurrent use.
type Form struct {
	mu           sync.RWMutex
	payer        payment.PayerInfo
	method       payment.Method
	card         payment.CreditCardInput
	installments int
}

// FormSnapshot is an immutable copy of a Form.
type FormSnapshot struct {
	Payer        payment.PayerInfo       `json:"payer"`
	Method       payment.Method          `json:"billing_type"`
	Card         payment.CreditCardInput `json:"-"`
	Installments int                     `json:"installments"`
}

func NewForm(method payment.Method) *Form {
	if !method.Valid() {
		method = payment.MethodPix
	}
	return &Form{method: method, installments: 1}
}

func (f *Form) SetPayerField(field PayerField, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	value = strings.TrimSpace(value)
	switch field {
	case PayerName:
		f.payer.Name = value
	case PayerEmail:
		f.payer.Email = value
	case PayerCPF:
		f.payer.CPF = value
	case PayerPhone:
		f.payer.Phone = value
	case PayerMobilePhone, "mobilePhone":
		f.payer.MobilePhone = value
	default:
		return ErrUnknownField
	}
	return nil
}

// SetBillingMethod keeps payer data and drops selections that only make
// sense for the previous method.
func (f *Form) SetBillingMethod(method payment.Method) error {
	if !method.Valid() {
		return ErrUnknownMethod
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.method = method
	if method != payment.MethodCreditCard {
		f.installments = 1
	}
	return nil
}

func (f *Form) SetCardField(field CardField, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch field {
	case CardHolderName, "holderName":
		f.card.HolderName = strings.TrimSpace(value)
	case CardNumber:
		f.card.Number = FormatCardNumber(value)
	case CardExpiryMonth, "expiryMonth":
		f.card.ExpiryMonth = strings.TrimSpace(value)
	case CardExpiryYear, "expiryYear":
		f.card.ExpiryYear = strings.TrimSpace(value)
	case CardCCV, "cvv":
		f.card.CCV = truncate(payment.DigitsOnly(value), maxCCVDigits)
	default:
		return ErrUnknownField
	}
	return nil
}

// SetInstallments only sticks while CREDIT_CARD is selected.
func (f *Form) SetInstallments(n int) error {
	if n < 1 {
		return ErrInvalidInstallments
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.method != payment.MethodCreditCard {
		f.installments = 1
		return nil
	}
	f.installments = n
	return nil
}

func (f *Form) Snapshot() FormSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return FormSnapshot{
		Payer:        f.payer,
		Method:       f.method,
		Card:         f.card,
		Installments: f.installments,
	}
}

func (f *Form) IsValid() bool {
	return f.Snapshot().Valid()
}

// Warnings are advisory and never block submission.
func (f *Form) Warnings() []string {
	return f.Snapshot().Warnings()
}

func (s FormSnapshot) Valid() bool {
	if blank(s.Payer.Name) || blank(s.Payer.Email) || blank(s.Payer.CPF) {
		return false
	}
	if s.Method != payment.MethodCreditCard {
		return true
	}

	return !blank(s.Card.HolderName) &&
		len(payment.DigitsOnly(s.Card.Number)) >= minCardDigits &&
		s.Card.ExpiryMonth != "" &&
		s.Card.ExpiryYear != "" &&
		len(s.Card.CCV) >= minCCVDigits
}

func (s FormSnapshot) Warnings() []string {
	var warnings []string
	if email := strings.TrimSpace(s.Payer.Email); email != "" {
		if err := checkmail.ValidateFormat(email); err != nil {
			warnings = append(warnings, "O e-mail informado parece inválido")
		}
	}
	if cpf := payment.DigitsOnly(s.Payer.CPF); cpf != "" && len(cpf) != 11 && len(cpf) != 14 {
		warnings = append(warnings, "CPF/CNPJ deve ter 11 ou 14 dígitos")
	}
	return warnings
}

// MaskedCard hides all but the last four digits of the card number.
func (s FormSnapshot) MaskedCard() string {
	digits := payment.DigitsOnly(s.Card.Number)
	if len(digits) <= 4 {
		return digits
	}
	return strings.Repeat("•", len(digits)-4) + digits[len(digits)-4:]
}

// FormatCardNumber keeps at most 16 digits and groups them in fours.
func FormatCardNumber(raw string) string {
	digits := truncate(payment.DigitsOnly(raw), maxCardDigits)

	var b strings.Builder
	for i := 0; i < len(digits); i += cardGroupWidth {
		if i > 0 {
			b.WriteByte(' ')
		}
		end := i + cardGroupWidth
		if end > len(digits) {
			end = len(digits)
		}
		b.WriteString(digits[i:end])
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
