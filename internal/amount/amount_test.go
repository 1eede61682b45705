package amount_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"fluxpay/internal/amount"
)

func TestParse(t *testing.T) {
	v, err := amount.Parse(" 1000000 ")
	require.NoError(t, err)
	require.Equal(t, int64(1000000), v.Int64())

	_, err = amount.Parse("-1")
	require.ErrorIs(t, err, amount.ErrNegative)

	_, err = amount.Parse("1.5")
	require.Error(t, err)
}

func TestFromHuman(t *testing.T) {
	tests := []struct {
		in       string
		decimals int32
		want     string
	}{
		{"1", 6, "1000000"},
		{"0.25", 6, "250000"},
		{"0.000001", 6, "1"},
		{"12.5", 18, "12500000000000000000"},
		{"0", 6, "0"},
	}
	for _, tc := range tests {
		got, err := amount.FromHuman(tc.in, tc.decimals)
		require.NoError(t, err, tc.in)
		require.Equal(t, tc.want, got.String(), tc.in)
	}

	_, err := amount.FromHuman("0.0000001", 6)
	require.ErrorIs(t, err, amount.ErrPrecision)

	_, err = amount.FromHuman("-2", 6)
	require.ErrorIs(t, err, amount.ErrNegative)

	_, err = amount.FromHuman("abc", 6)
	require.Error(t, err)
}

func TestToHuman(t *testing.T) {
	require.Equal(t, "1.5", amount.ToHuman(big.NewInt(1500000), 6))
	require.Equal(t, "0.000001", amount.ToHuman(big.NewInt(1), 6))
	require.Equal(t, "0", amount.ToHuman(nil, 6))
}
