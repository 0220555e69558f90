package checkout

import "ingressos-web/internal/payment"

// Result is a successful payment creation, one concrete type per rail:
// *PixResult, *BoletoResult or *CardResult.
type Result interface {
	Method() payment.Method
	ID() string
	isResult()
}

type PixResult struct {
	PaymentID string `json:"payment_id"`
	Status    string `json:"status"`
	QRCode    string `json:"qr_code"`
	PixCode   string `json:"pix_code"`
}

func (*PixResult) Method() payment.Method { return payment.MethodPix }
func (r *PixResult) ID() string           { return r.PaymentID }
func (*PixResult) isResult()              {}

type BoletoResult struct {
	PaymentID   string `json:"payment_id"`
	Status      string `json:"status"`
	BankSlipURL string `json:"bank_slip_url"`
	DueDate     string `json:"due_date"`
}

func (*BoletoResult) Method() payment.Method { return payment.MethodBoleto }
func (r *BoletoResult) ID() string           { return r.PaymentID }
func (*BoletoResult) isResult()              {}

// CardResult also covers DEBIT_CARD and TRANSFER, which only report an id
// and a status snapshot.
type CardResult struct {
	BillingType payment.Method `json:"billing_type"`
	PaymentID   string         `json:"payment_id"`
	Status      string         `json:"status"`
}

func (r *CardResult) Method() payment.Method { return r.BillingType }
func (r *CardResult) ID() string             { return r.PaymentID }
func (*CardResult) isResult()                {}

func toResult(method payment.Method, res *payment.Response, dueDate string) Result {
	switch method {
	case payment.MethodPix:
		return &PixResult{
			PaymentID: res.PaymentID,
			Status:    res.Status,
			QRCode:    res.QRCode,
			PixCode:   res.PixCode,
		}
	case payment.MethodBoleto:
		return &BoletoResult{
			PaymentID:   res.PaymentID,
			Status:      res.Status,
			BankSlipURL: res.BankSlipURL,
			DueDate:     dueDate,
		}
	default:
		return &CardResult{
			BillingType: method,
			PaymentID:   res.PaymentID,
			Status:      res.Status,
		}
	}
}

// isApproved infers approval from the response shape. The backend has no
// dedicated approval flag on this endpoint yet.
func isApproved(res *payment.Response) bool {
	return res.Success && res.PaymentID != "" && res.Error == ""
}
