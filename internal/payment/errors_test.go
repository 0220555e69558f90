package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type statusErr struct {
	status int
	msg    string
}

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", e.status) }
func (e statusErr) HTTPStatus() int     { return e.status }
func (e statusErr) UserMessage() string { return e.msg }

type classifiedErr struct {
	kind ErrorKind
	msg  string
}

func (e classifiedErr) Error() string       { return string(e.kind) }
func (e classifiedErr) Kind() ErrorKind     { return e.kind }
func (e classifiedErr) UserMessage() string { return e.msg }

type timeoutErr struct{ timeout bool }

func (e timeoutErr) Error() string   { return "net" }
func (e timeoutErr) Timeout() bool   { return e.timeout }
func (e timeoutErr) Temporary() bool { return false }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	t.Parallel()

	var syntaxErr error
	{
		var v map[string]any
		syntaxErr = json.Unmarshal([]byte(`{bad`), &v)
	}

	tests := []struct {
		name     string
		err      error
		wantKind ErrorKind
		wantMsg  string
	}{
		{name: "nil", err: nil, wantKind: "", wantMsg: ""},
		{name: "deadline", err: fmt.Errorf("create: %w", context.DeadlineExceeded), wantKind: KindTimeout, wantMsg: MsgTimeout},
		{name: "canceled", err: context.Canceled, wantKind: KindCanceled, wantMsg: MsgCanceled},
		{name: "net_timeout", err: timeoutErr{timeout: true}, wantKind: KindTimeout, wantMsg: MsgTimeout},
		{name: "net_refused", err: fmt.Errorf("dial: %w", timeoutErr{}), wantKind: KindNetwork, wantMsg: MsgNetwork},
		{name: "unauthorized", err: statusErr{status: http.StatusUnauthorized, msg: "token inválido"}, wantKind: KindUnauthorized, wantMsg: MsgUnauthorized},
		{name: "rejected_with_message", err: statusErr{status: http.StatusBadRequest, msg: "Ingresso esgotado"}, wantKind: KindRejected, wantMsg: "Ingresso esgotado"},
		{name: "rejected_without_message", err: statusErr{status: http.StatusConflict}, wantKind: KindRejected, wantMsg: MsgRejected},
		{name: "server_hides_body", err: statusErr{status: http.StatusBadGateway, msg: "nginx"}, wantKind: KindServer, wantMsg: MsgServer},
		{name: "gateway_timeout", err: statusErr{status: http.StatusGatewayTimeout}, wantKind: KindTimeout, wantMsg: MsgTimeout},
		{name: "malformed_json", err: fmt.Errorf("decode: %w", syntaxErr), wantKind: KindServer, wantMsg: MsgInvalidResponse},
		{name: "classified_with_message", err: classifiedErr{kind: KindValidation, msg: MsgCardIncomplete}, wantKind: KindValidation, wantMsg: MsgCardIncomplete},
		{name: "classified_default_message", err: classifiedErr{kind: KindAuthRequired}, wantKind: KindAuthRequired, wantMsg: MsgAuthRequired},
		{name: "unknown", err: errors.New("boom"), wantKind: KindUnknown, wantMsg: MsgUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Classify(tt.err)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantMsg, got.Message)
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusOK, HTTPStatus(""))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(KindAuthRequired))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindInFlight))
	assert.Equal(t, http.StatusPaymentRequired, HTTPStatus(KindRejected))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(KindServer))
	assert.Equal(t, http.StatusMultiStatus, HTTPStatus(KindTransferFailed))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindUnknown))
}
