package checkout

import (
	"strings"

	"ingressos-web/internal/payment"
	"ingressos-web/internal/utils"

	"github.com/shopspring/decimal"
)

type Mode string

const (
	ModePix    Mode = "pix"
	ModeBoleto Mode = "boleto"
	ModeCard   Mode = "card"
	ModeError  Mode = "error"
)

const (
	ActionCopy = "copy"
	ActionOpen = "open"
)

const (
	pngDataPrefix = "data:image/png;base64,"

	noteBoletoDue    = "O boleto vence em 7 dias"
	noteBoletoSettle = "A compensação ocorre em até 2 dias úteis após o pagamento"
)

type Action struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// View is what the storefront shows once a submission finished.
type View struct {
	Mode         Mode              `json:"mode"`
	Method       payment.Method    `json:"billing_type"`
	Amount       string            `json:"amount"`
	PaymentID    string            `json:"payment_id,omitempty"`
	Status       string            `json:"status,omitempty"`
	QRImage      string            `json:"qr_image,omitempty"`
	PixCode      string            `json:"pix_code,omitempty"`
	BankSlipURL  string            `json:"bank_slip_url,omitempty"`
	DueDate      string            `json:"due_date,omitempty"`
	Notes        []string          `json:"notes,omitempty"`
	Actions      []Action          `json:"actions,omitempty"`
	Instructions []string          `json:"instructions,omitempty"`
	Message      string            `json:"message,omitempty"`
	ErrorKind    payment.ErrorKind `json:"error_kind,omitempty"`
	CanRetry     bool              `json:"can_retry"`
}

// Render maps the outcome of a submission to a view. It has no side effects.
func Render(method payment.Method, amount decimal.Decimal, result Result, err error) View {
	v := View{Method: method, Amount: utils.FormatBRL(amount)}

	if err != nil {
		return renderFailure(v, err)
	}
	if result == nil {
		return renderFailure(v, newFailure(payment.KindUnknown, "", ErrEmptyResponse))
	}

	v.Method = result.Method()
	v.PaymentID = result.ID()

	switch r := result.(type) {
	case *PixResult:
		v.Mode = ModePix
		v.Status = r.Status
		v.QRImage = qrImageURL(r.QRCode)
		v.PixCode = r.PixCode
		if r.PixCode != "" {
			v.Actions = []Action{{Kind: ActionCopy, Label: "Copiar código Pix", Value: r.PixCode}}
		}
	case *BoletoResult:
		v.Mode = ModeBoleto
		v.Status = r.Status
		v.BankSlipURL = r.BankSlipURL
		v.DueDate = r.DueDate
		v.Notes = []string{noteBoletoDue, noteBoletoSettle}
		if r.BankSlipURL != "" {
			v.Actions = []Action{{Kind: ActionOpen, Label: "Ver boleto", Value: r.BankSlipURL}}
		}
	case *CardResult:
		v.Mode = ModeCard
		v.Status = r.Status
	}

	v.Instructions = instructionsFor(v)
	return v
}

func renderFailure(v View, err error) View {
	f := AsFailure(err)

	v.Mode = ModeError
	v.ErrorKind = f.Kind()
	v.Message = f.UserMessage()
	v.CanRetry = true

	// The payer was charged; paying again would charge twice.
	if paid := f.Paid(); paid != nil {
		v.CanRetry = false
		v.PaymentID = paid.ID()
		v.Status = resultStatus(paid)
	}
	return v
}

func instructionsFor(v View) []string {
	return payment.InjectVariables(payment.GetInstructions(v.Method), payment.InstructionVars{
		"amount":     v.Amount,
		"due_date":   formatDueDate(v.DueDate),
		"payment_id": v.PaymentID,
		"status":     v.Status,
	})
}

// qrImageURL accepts either a data URL or bare base64 PNG.
func qrImageURL(qr string) string {
	if qr == "" || strings.HasPrefix(qr, "data:") || strings.HasPrefix(qr, "http") {
		return qr
	}
	return pngDataPrefix + qr
}

// formatDueDate turns "2006-01-02" into "02/01/2006".
func formatDueDate(iso string) string {
	parts := strings.Split(iso, "-")
	if len(parts) != 3 {
		return iso
	}
	return parts[2] + "/" + parts[1] + "/" + parts[0]
}
