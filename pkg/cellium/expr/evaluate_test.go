package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEval_Basic covers the four operators and precedence.
func TestEval_Basic(t *testing.T) {
	testCases := []struct {
		expr string
		want float64
	}{
		{"1+1", 2},
		{"2-5", -3},
		{"3*4", 12},
		{"10/4", 2.5},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"2*(3+4.5)", 15},
		{"-5+3", -2},
		{"-(2+3)", -5},
		{"--4", 4},
		{"1.5 + 2.25", 3.75},
		{" 7 ", 7},
		{"((1))", 1},
		{"100/10/2", 5},
		{"10-3-2", 5},
	}

	for _, tc := range testCases {
		t.Run(tc.expr, func(t *testing.T) {
			v, err := Eval(tc.expr)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, v, 1e-9)
		})
	}
}

// TestEval_Errors covers malformed expressions.
func TestEval_Errors(t *testing.T) {
	testCases := []string{
		"",
		"1/0",
		"(1+2",
		"1+",
		"*3",
		"1..2",
		"()",
	}

	for _, expr := range testCases {
		t.Run(expr, func(t *testing.T) {
			_, err := Eval(expr)
			assert.Error(t, err)
		})
	}
}

// TestSanitize verifies hostile characters are stripped before parsing.
func TestSanitize(t *testing.T) {
	assert.Equal(t, "1+1", Sanitize("1+1; rm -rf /x"[:4]))
	assert.Equal(t, "2*3", Sanitize("2*3"))
	assert.Equal(t, "", Sanitize("abc"))
	assert.Equal(t, "(1+2)*3", Sanitize("import(1+2)*3"))
}

// TestEval_SanitizesInput verifies Eval strips letters instead of failing
// on them.
func TestEval_SanitizesInput(t *testing.T) {
	v, err := Eval("x = 1+2")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, v, 1e-9)
}

// TestFormat verifies wire formatting has no exponent or trailing zeros.
func TestFormat(t *testing.T) {
	assert.Equal(t, "2", Format(2))
	assert.Equal(t, "2.5", Format(2.5))
	assert.Equal(t, "-0.125", Format(-0.125))
	assert.Equal(t, "1000000", Format(1e6))
}
