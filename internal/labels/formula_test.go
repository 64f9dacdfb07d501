package labels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubstitutePlaceholders(t *testing.T) {
	ctx := DataContext{
		Plant: testPlant(),
		Form: map[string]interface{}{
			"weight":  12.5,
			"product": map[string]interface{}{"grade": "A"},
		},
		Station: map[string]interface{}{"operator": "kim"},
	}

	tests := []struct {
		formula string
		want    string
	}{
		{"Weight: ${weight} kg", "Weight: 12.5 kg"},
		{"${product.grade}/${operator}", "A/kim"},
		{"${plant.location.city}", "Eureka"},
		{"[${missing}]", "[]"},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SubstitutePlaceholders(tt.formula, ctx), tt.formula)
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"1 + 2", "3"},
		{"0.1 + 0.2", "0.3"},
		{"(1 + 2) * 3", "9"},
		{"2 + 3 * 4", "14"},
		{"10 / 4", "2.5"},
		{"-4 + 10", "6"},
		{"-(2 - 5)", "3"},
		{"5. * 2", "10"},
	}
	for _, tt := range tests {
		got, err := Evaluate(tt.expr)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, got.String(), tt.expr)
	}
}

func TestEvaluateErrors(t *testing.T) {
	for _, expr := range []string{"", "1 +", "(1 + 2", "1..2", "2 3", ")"} {
		_, err := Evaluate(expr)
		assert.Error(t, err, expr)
	}

	_, err := Evaluate("1 / (2 - 2)")
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestEvaluateFormula(t *testing.T) {
	ctx := DataContext{Form: map[string]interface{}{"a": 3, "lot": "A1", "zero": 0}}

	got, err := EvaluateFormula("${a} * 2", ctx)
	require.NoError(t, err)
	assert.Equal(t, "6", got)

	// text formulas are returned as substituted
	got, err = EvaluateFormula("LOT-${lot}", ctx)
	require.NoError(t, err)
	assert.Equal(t, "LOT-A1", got)

	// failed evaluation degrades to the substituted string
	got, err = EvaluateFormula("${a} / ${zero}", ctx)
	assert.ErrorIs(t, err, ErrDivisionByZero)
	assert.Equal(t, "3 / 0", got)
}
