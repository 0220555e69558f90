package checkout

import (
	"context"
	"sync"

	"ingressos-web/internal/logger"
	"ingressos-web/internal/payment"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MethodsSource is the read side of the backend the loader depends on.
type MethodsSource interface {
	ListPaymentMethods(ctx context.Context) ([]payment.EnabledMethod, error)
	GetInstallments(ctx context.Context, amount decimal.Decimal) ([]payment.InstallmentOption, error)
}

// Loader keeps enabled methods and installment quotes in sync with the
// amount and method being paid. Fetch failures keep whatever was loaded
// before and never block checkout.
type Loader struct {
	src MethodsSource

	mu           sync.RWMutex
	methods      []payment.EnabledMethod
	installments []payment.InstallmentOption
	quotedAmount decimal.Decimal
	quoted       bool
}

func NewLoader(src MethodsSource) *Loader {
	return &Loader{src: src}
}

// Mount loads methods and, for card payments, installment quotes in
// parallel. The returned error is informational only.
func (l *Loader) Mount(ctx context.Context, amount decimal.Decimal, method payment.Method) error {
	var g errgroup.Group

	g.Go(func() error {
		return l.loadMethods(ctx)
	})
	g.Go(func() error {
		return l.Refresh(ctx, amount, method)
	})

	return g.Wait()
}

// Refresh fetches installment quotes when method is CREDIT_CARD and the
// amount is positive. A successful fetch replaces the list; switching away
// from CREDIT_CARD leaves it untouched.
func (l *Loader) Refresh(ctx context.Context, amount decimal.Decimal, method payment.Method) error {
	if method != payment.MethodCreditCard || !amount.IsPositive() {
		return nil
	}

	l.mu.RLock()
	fresh := l.quoted && l.quotedAmount.Equal(amount)
	l.mu.RUnlock()
	if fresh {
		return nil
	}

	log := logger.FromCtx(ctx).With(zap.String("amount", amount.StringFixed(2)))

	options, err := l.src.GetInstallments(ctx, amount)
	if err != nil {
		log.Warn("failed to load installment options", zap.Error(err))
		return err
	}

	l.mu.Lock()
	l.installments = options
	l.quotedAmount = amount
	l.quoted = true
	l.mu.Unlock()

	log.Debug("installment options loaded", zap.Int("count", len(options)))
	return nil
}

func (l *Loader) loadMethods(ctx context.Context) error {
	methods, err := l.src.ListPaymentMethods(ctx)
	if err != nil {
		logger.FromCtx(ctx).Warn("failed to load payment methods", zap.Error(err))
		return err
	}

	l.mu.Lock()
	l.methods = methods
	l.mu.Unlock()
	return nil
}

func (l *Loader) Methods() []payment.EnabledMethod {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]payment.EnabledMethod(nil), l.methods...)
}

func (l *Loader) Installments() []payment.InstallmentOption {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]payment.InstallmentOption(nil), l.installments...)
}
