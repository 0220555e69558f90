package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindAuthRequired   ErrorKind = "auth_required"
	KindInFlight       ErrorKind = "in_flight"
	KindNetwork        ErrorKind = "network"
	KindTimeout        ErrorKind = "timeout"
	KindCanceled       ErrorKind = "canceled"
	KindUnauthorized   ErrorKind = "unauthorized"
	KindRejected       ErrorKind = "rejected"
	KindServer         ErrorKind = "server"
	KindTransferFailed ErrorKind = "transfer_failed"
	KindUnknown        ErrorKind = "unknown"
)

// User-facing messages (pt-BR).
const (
	MsgFormIncomplete  = "Preencha todos os campos obrigatórios"
	MsgCardIncomplete  = "Dados do cartão incompletos"
	MsgAuthRequired    = "Você precisa estar logado para finalizar a compra"
	MsgInFlight        = "Seu pagamento já está sendo processado. Aguarde"
	MsgNetwork         = "Não foi possível conectar ao servidor de pagamentos. Verifique sua conexão e tente novamente"
	MsgTimeout         = "O pagamento demorou mais que o esperado. Confira seus pedidos antes de tentar novamente"
	MsgCanceled        = "A operação de pagamento foi interrompida"
	MsgUnauthorized    = "Sua sessão expirou. Faça login novamente"
	MsgRejected        = "Pagamento não aprovado. Verifique os dados e tente novamente"
	MsgServer          = "O serviço de pagamentos está indisponível no momento. Tente novamente em instantes"
	MsgInvalidResponse = "Resposta inválida do servidor de pagamentos"
	MsgTransferFailed  = "Pagamento aprovado, mas a transferência do ingresso falhou. Não pague novamente; entre em contato com o suporte"
	MsgUnknown         = "Erro ao processar pagamento. Tente novamente"
)

// statusCoder is satisfied by transport errors that carry an HTTP status.
type statusCoder interface {
	HTTPStatus() int
}

// messenger is satisfied by errors that carry a backend-provided message
// safe to show to the payer.
type messenger interface {
	UserMessage() string
}

// kinder is satisfied by errors that were already classified.
type kinder interface {
	Kind() ErrorKind
}

type Classification struct {
	Kind    ErrorKind
	Message string
}

// Classify maps a raw error into a kind and a user-facing message.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	var k kinder
	if errors.As(err, &k) {
		var m messenger
		if errors.As(err, &m) && m.UserMessage() != "" {
			return Classification{Kind: k.Kind(), Message: m.UserMessage()}
		}
		return Classification{Kind: k.Kind(), Message: DefaultMessage(k.Kind())}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Classification{Kind: KindTimeout, Message: MsgTimeout}
	case errors.Is(err, context.Canceled):
		return Classification{Kind: KindCanceled, Message: MsgCanceled}
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		kind := kindForStatus(sc.HTTPStatus())
		return Classification{Kind: kind, Message: messageFor(kind, err)}
	}

	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return Classification{Kind: KindTimeout, Message: MsgTimeout}
		}
		return Classification{Kind: KindNetwork, Message: MsgNetwork}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return Classification{Kind: KindServer, Message: MsgInvalidResponse}
	}

	return Classification{Kind: KindUnknown, Message: MsgUnknown}
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindRejected
	default:
		return KindUnknown
	}
}

func messageFor(kind ErrorKind, err error) string {
	// Backend-provided wording wins for business rejections only; 5xx and
	// auth bodies are not meant for payers.
	if kind == KindRejected {
		var m messenger
		if errors.As(err, &m) && m.UserMessage() != "" {
			return m.UserMessage()
		}
	}
	return DefaultMessage(kind)
}

// DefaultMessage is the fallback wording for kind.
func DefaultMessage(kind ErrorKind) string {
	switch kind {
	case KindValidation:
		return MsgFormIncomplete
	case KindAuthRequired:
		return MsgAuthRequired
	case KindInFlight:
		return MsgInFlight
	case KindNetwork:
		return MsgNetwork
	case KindTimeout:
		return MsgTimeout
	case KindCanceled:
		return MsgCanceled
	case KindUnauthorized:
		return MsgUnauthorized
	case KindRejected:
		return MsgRejected
	case KindServer:
		return MsgServer
	case KindTransferFailed:
		return MsgTransferFailed
	default:
		return MsgUnknown
	}
}

// HTTPStatus is the status the storefront answers with for a failure kind.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case "":
		return http.StatusOK
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindAuthRequired, KindUnauthorized:
		return http.StatusUnauthorized
	case KindInFlight:
		return http.StatusConflict
	case KindRejected:
		return http.StatusPaymentRequired
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindNetwork, KindServer:
		return http.StatusBadGateway
	case KindCanceled:
		return http.StatusRequestTimeout
	case KindTransferFailed:
		return http.StatusMultiStatus
	default:
		return http.StatusInternalServerError
	}
}
