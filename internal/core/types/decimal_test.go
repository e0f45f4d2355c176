package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2_HalfUp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"2.675", "2.68"},
		{"100.004", "100"},
		{"0.125", "0.13"},
		{"19", "19"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, MustMoney(tt.want).Equal(Round2(MustMoney(tt.in))), "got %s", Round2(MustMoney(tt.in)))
		})
	}
}

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount(" 1.234,50 ")
	require.NoError(t, err)
	assert.Equal(t, "1234.5", d.String())

	d, err = ParseAmount("119.00")
	require.NoError(t, err)
	assert.True(t, MustMoney("119").Equal(d))

	_, err = ParseAmount("-1")
	assert.Error(t, err)

	_, err = ParseAmount("abc")
	assert.Error(t, err)
}

func TestParseLenient(t *testing.T) {
	assert.True(t, ParseLenient("abc").IsZero())
	assert.True(t, ParseLenient("").IsZero())
	assert.True(t, ParseLenient("-3").IsZero())
	assert.Equal(t, "2.5", ParseLenient("2,5").String())
	assert.Equal(t, "7", ParseLenient("7").String())
}

func TestWithinCent(t *testing.T) {
	assert.True(t, WithinCent(MustMoney("10.00"), MustMoney("10.01")))
	assert.False(t, WithinCent(MustMoney("10.00"), MustMoney("10.02")))
}

func TestFormatEUR(t *testing.T) {
	assert.Equal(t, "1.234,50 €", FormatEUR(MustMoney("1234.5")))
	assert.Equal(t, "0,00 €", FormatEUR(Zero()))
	assert.Equal(t, "-19,00 €", FormatEUR(MustMoney("-19")))
	assert.Equal(t, "238,00 €", FormatEUR(MustMoney("238")))
}
