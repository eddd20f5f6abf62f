package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccount_Debit(t *testing.T) {
	tests := []struct {
		name        string
		balance     string
		amount      string
		wantBalance string
		wantErr     error
	}{
		{name: "valid debit", balance: "1000", amount: "250.50", wantBalance: "749.5"},
		{name: "debit entire balance", balance: "1000", amount: "1000", wantBalance: "0"},
		{name: "zero amount rejected", balance: "1000", amount: "0", wantBalance: "1000", wantErr: ErrInvalidAmount},
		{name: "negative amount rejected", balance: "1000", amount: "-5", wantBalance: "1000", wantErr: ErrInvalidAmount},
		{name: "over-debit rejected", balance: "100", amount: "100.01", wantBalance: "100", wantErr: ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := &Account{Balance: decimal.RequireFromString(tt.balance)}
			err := acct.Debit(decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.True(t, acct.Balance.Equal(decimal.RequireFromString(tt.wantBalance)),
				"balance = %s, want %s", acct.Balance, tt.wantBalance)
		})
	}
}

func TestAccount_Debit_InsufficientFundsDetail(t *testing.T) {
	acct := &Account{Balance: decimal.RequireFromString("100")}
	err := acct.Debit(decimal.RequireFromString("1000.5"))
	require.Error(t, err)

	var ife *InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.True(t, ife.Required.Equal(decimal.RequireFromString("1000.5")))
	assert.True(t, ife.Available.Equal(decimal.RequireFromString("100")))
}

func TestAccount_Credit(t *testing.T) {
	acct := &Account{Balance: decimal.RequireFromString("100")}

	require.NoError(t, acct.Credit(decimal.RequireFromString("49.5")))
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("149.5")))

	err := acct.Credit(decimal.Zero)
	assert.True(t, errors.Is(err, ErrInvalidAmount))
	assert.True(t, acct.Balance.Equal(decimal.RequireFromString("149.5")))
}

func TestAccount_LifetimePnL(t *testing.T) {
	acct := &Account{
		Balance:        decimal.RequireFromString("900000"),
		InitialBalance: decimal.RequireFromString("1000000"),
	}

	// Holdings worth 150,000 -> total 1,050,000 -> +50,000 (+5%)
	pnl, pct := acct.LifetimePnL(decimal.RequireFromString("150000"))
	assert.True(t, pnl.Equal(decimal.RequireFromString("50000")), "pnl = %s", pnl)
	assert.True(t, pct.Equal(decimal.RequireFromString("5")), "pct = %s", pct)
}
