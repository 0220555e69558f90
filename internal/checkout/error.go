package checkout

import (
	"errors"

	"ingressos-web/internal/payment"
)

var (
	// -- Form input --
	ErrUnknownField        = errors.New("unknown form field")
	ErrUnknownMethod       = errors.New("unknown billing method")
	ErrInvalidInstallments = errors.New("installments must be at least 1")

	// -- Submission preconditions --
	ErrFormInvalid    = errors.New("checkout form is incomplete")
	ErrAuthRequired   = errors.New("auth token is required")
	ErrCardIncomplete = errors.New("credit card data is incomplete")
	ErrInFlight       = errors.New("a submission is already in flight")

	// -- Backend outcome --
	ErrRejected      = errors.New("payment rejected by backend")
	ErrEmptyResponse = errors.New("payment client returned no result")
)

// Failure is the single user-facing error a submission ends with.
type Failure struct {
	kind    payment.ErrorKind
	message string
	err     error
	paid    Result
	method  payment.Method
}

func newFailure(kind payment.ErrorKind, message string, err error) *Failure {
	if message == "" {
		message = payment.DefaultMessage(kind)
	}
	return &Failure{kind: kind, message: message, err: err}
}

func (f *Failure) Error() string {
	if f.err != nil {
		return string(f.kind) + ": " + f.err.Error()
	}
	return string(f.kind) + ": " + f.message
}

func (f *Failure) Unwrap() error { return f.err }

func (f *Failure) Kind() payment.ErrorKind { return f.kind }

func (f *Failure) UserMessage() string { return f.message }

// Paid is the approved payment behind a transfer failure, nil otherwise.
func (f *Failure) Paid() Result { return f.paid }

// Method is the billing method of the submission that failed. It is empty
// when the submission was refused before reading the form.
func (f *Failure) Method() payment.Method { return f.method }

// AsFailure converts any error into a Failure, classifying foreign errors.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	c := payment.Classify(err)
	return newFailure(c.Kind, c.Message, err)
}
