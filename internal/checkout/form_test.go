package checkout

import (
	"testing"

	"ingressos-web/internal/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fillPayer(t *testing.T, f *Form) {
	t.Helper()
	require.NoError(t, f.SetPayerField(PayerName, "Maria Silva"))
	require.NoError(t, f.SetPayerField(PayerEmail, "maria@example.com"))
	require.NoError(t, f.SetPayerField(PayerCPF, "123.456.789-09"))
	require.NoError(t, f.SetPayerField(PayerPhone, "1133334444"))
	require.NoError(t, f.SetPayerField(PayerMobilePhone, "11999998888"))
}

func fillCard(t *testing.T, f *Form) {
	t.Helper()
	require.NoError(t, f.SetCardField(CardHolderName, "MARIA SILVA"))
	require.NoError(t, f.SetCardField(CardNumber, "4111111111111111"))
	require.NoError(t, f.SetCardField(CardExpiryMonth, "12"))
	require.NoError(t, f.SetCardField(CardExpiryYear, "2030"))
	require.NoError(t, f.SetCardField(CardCCV, "123"))
}

func TestNewForm_Defaults(t *testing.T) {
	f := NewForm("")
	snap := f.Snapshot()
	assert.Equal(t, payment.MethodPix, snap.Method)
	assert.Equal(t, 1, snap.Installments)

	assert.Equal(t, payment.MethodBoleto, NewForm(payment.MethodBoleto).Snapshot().Method)
}

func TestForm_IsValid_MissingPayerFields(t *testing.T) {
	required := []PayerField{PayerName, PayerEmail, PayerCPF}
	methods := []payment.Method{payment.MethodPix, payment.MethodBoleto, payment.MethodCreditCard}

	for _, method := range methods {
		for _, missing := range required {
			t.Run(string(method)+"/"+string(missing), func(t *testing.T) {
				f := NewForm(method)
				fillPayer(t, f)
				fillCard(t, f)
				require.NoError(t, f.SetPayerField(missing, "   "))

				assert.False(t, f.IsValid())
			})
		}
	}
}

func TestForm_SetPayerFieldTrims(t *testing.T) {
	f := NewForm(payment.MethodPix)
	require.NoError(t, f.SetPayerField(PayerName, "  Maria Silva \t"))
	require.NoError(t, f.SetPayerField(PayerEmail, " maria@example.com "))
	require.NoError(t, f.SetPayerField(PayerMobilePhone, "11999998888\n"))

	payer := f.Snapshot().Payer
	assert.Equal(t, "Maria Silva", payer.Name)
	assert.Equal(t, "maria@example.com", payer.Email)
	assert.Equal(t, "11999998888", payer.MobilePhone)
}

func TestForm_IsValid_PixNeedsOnlyPayer(t *testing.T) {
	f := NewForm(payment.MethodPix)
	assert.False(t, f.IsValid())

	fillPayer(t, f)
	assert.True(t, f.IsValid())
}

func TestForm_IsValid_CreditCard(t *testing.T) {
	tests := []struct {
		name  string
		field CardField
		value string
	}{
		{"ShortNumber", CardNumber, "411111111111"},
		{"ShortCCV", CardCCV, "12"},
		{"NoExpiryMonth", CardExpiryMonth, ""},
		{"NoExpiryYear", CardExpiryYear, ""},
		{"NoHolder", CardHolderName, " "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewForm(payment.MethodCreditCard)
			fillPayer(t, f)
			fillCard(t, f)
			require.True(t, f.IsValid())

			require.NoError(t, f.SetCardField(tt.field, tt.value))
			assert.False(t, f.IsValid())
		})
	}

	t.Run("ThirteenDigitsIsEnough", func(t *testing.T) {
		f := NewForm(payment.MethodCreditCard)
		fillPayer(t, f)
		fillCard(t, f)
		require.NoError(t, f.SetCardField(CardNumber, "4222222222222"))
		assert.True(t, f.IsValid())
	})
}

func TestFormatCardNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4111111111111111111", "4111 1111 1111 1111"},
		{"4111-1111-1111-1111", "4111 1111 1111 1111"},
		{"411111", "4111 11"},
		{"abc", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCardNumber(tt.in))
		})
	}
}

func TestForm_SetCardField(t *testing.T) {
	f := NewForm(payment.MethodCreditCard)

	require.NoError(t, f.SetCardField(CardNumber, "4111111111111111111"))
	require.NoError(t, f.SetCardField("cvv", "12a345"))
	require.NoError(t, f.SetCardField("holderName", "  Ana  "))

	snap := f.Snapshot()
	assert.Equal(t, "4111 1111 1111 1111", snap.Card.Number)
	assert.Equal(t, "1234", snap.Card.CCV)
	assert.Equal(t, "Ana", snap.Card.HolderName)
	assert.Equal(t, "••••••••••••1111", snap.MaskedCard())

	assert.ErrorIs(t, f.SetCardField("pin", "0000"), ErrUnknownField)
}

func TestForm_SetBillingMethod(t *testing.T) {
	f := NewForm(payment.MethodCreditCard)
	fillPayer(t, f)
	require.NoError(t, f.SetInstallments(3))
	assert.Equal(t, 3, f.Snapshot().Installments)

	require.NoError(t, f.SetBillingMethod(payment.MethodPix))
	snap := f.Snapshot()
	assert.Equal(t, 1, snap.Installments)
	assert.Equal(t, "Maria Silva", snap.Payer.Name)

	assert.ErrorIs(t, f.SetBillingMethod("CHEQUE"), ErrUnknownMethod)
	assert.Equal(t, payment.MethodPix, f.Snapshot().Method)
}

func TestForm_SetInstallments(t *testing.T) {
	f := NewForm(payment.MethodPix)
	require.NoError(t, f.SetInstallments(6))
	assert.Equal(t, 1, f.Snapshot().Installments)

	require.NoError(t, f.SetBillingMethod(payment.MethodCreditCard))
	require.NoError(t, f.SetInstallments(6))
	assert.Equal(t, 6, f.Snapshot().Installments)

	assert.ErrorIs(t, f.SetInstallments(0), ErrInvalidInstallments)
	assert.Equal(t, 6, f.Snapshot().Installments)
}

func TestForm_SetPayerField(t *testing.T) {
	f := NewForm(payment.MethodPix)
	require.NoError(t, f.SetPayerField("mobilePhone", "11988887777"))
	assert.Equal(t, "11988887777", f.Snapshot().Payer.MobilePhone)

	assert.ErrorIs(t, f.SetPayerField("address", "x"), ErrUnknownField)
}

func TestForm_Warnings(t *testing.T) {
	f := NewForm(payment.MethodPix)
	assert.Empty(t, f.Warnings())

	require.NoError(t, f.SetPayerField(PayerEmail, "not-an-email"))
	require.NoError(t, f.SetPayerField(PayerCPF, "123"))

	warnings := f.Warnings()
	assert.Len(t, warnings, 2)

	fillPayer(t, f)
	assert.Empty(t, f.Warnings())
	assert.True(t, f.IsValid())
}
