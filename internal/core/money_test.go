package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"12", 1200, true},
		{"12.5", 1250, true},
		{" 0.01 ", 1, true},
		{"-3.20", -320, true},
		{"", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
	}
	for _, tc := range cases {
		a, err := ParseAmount(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", tc.in)
			continue
		}
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.cents, a.Cents(), "input %q", tc.in)
	}
}

func TestValidateAmountPrecision(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"0", true},
		{"1", true},
		{"1.5", true},
		{"1.25", true},
		{"12.500", true},
		{"1.234", false},
		{"0.001", false},
		{"100.999", false},
	}
	for _, tc := range cases {
		issues := ValidateAmount(MustParseAmount(tc.in))
		if tc.ok {
			assert.Empty(t, issues, "input %q", tc.in)
			continue
		}
		require.Len(t, issues, 1, "input %q", tc.in)
		assert.Equal(t, IssueNotMultipleOf, issues[0].Code)
	}
}

func TestValidateAmountRange(t *testing.T) {
	issues := ValidateAmount(MustParseAmount("999999999999999999999.00"))
	require.Len(t, issues, 1)
	assert.Equal(t, IssueTooBig, issues[0].Code)
}

func TestAmountJSON(t *testing.T) {
	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`12.5`), &a))
	assert.Equal(t, int64(1250), a.Cents())

	out, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `12.50`, string(out))

	err = json.Unmarshal([]byte(`"12.50"`), &a)
	assert.True(t, errors.Is(err, ErrAmountNotNumber))
	err = json.Unmarshal([]byte(`null`), &a)
	assert.True(t, errors.Is(err, ErrAmountNotNumber))
}

func TestAmountExponentIsBounded(t *testing.T) {
	for _, in := range []string{"1e-10000000", "1e10000000", "0e-19", "1e19"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrAmountOutOfRange, "input %q", in)

		var a Amount
		err = json.Unmarshal([]byte(in), &a)
		assert.ErrorIs(t, err, ErrAmountOutOfRange, "input %q", in)
	}

	a, err := ParseAmount("1.000000000000000000")
	require.NoError(t, err)
	assert.Empty(t, ValidateAmount(a))
}

func TestRecordJSONShape(t *testing.T) {
	rec := ExpenseRecord{ID: 7, Description: "Milk", Amount: AmountFromCents(199), Category: Groceries}
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"description":"Milk","amount":1.99,"category":"Groceries"}`, string(out))
}
