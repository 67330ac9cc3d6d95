package model

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wyfcoding/ore/internal/randomvar"
)

// RegressionModel extends FlatModel with a least-squares conditional
// expectation: Npv regresses the pathwise amount against a caller-
// supplied state variable (the Longstaff-Schwartz regressor, e.g. the
// underlying index level per path) instead of falling back to the flat
// cross-sample mean, built against gonum/stat (see DESIGN.md).
type RegressionModel struct {
	*FlatModel
	State map[string]randomvar.RandomVariable // e.g. "indexName" -> pathwise level
}

// NewRegressionModel wraps a FlatModel with an empty path-state table.
// Npv does not read State; its regressor is always opts.AddRegressor1.
func NewRegressionModel(base *FlatModel) *RegressionModel {
	return &RegressionModel{FlatModel: base, State: map[string]randomvar.RandomVariable{}}
}

// Npv overrides FlatModel.Npv with a one-factor linear regression of
// amount against the AddRegressor1 state variable, when supplied;
// otherwise it defers to the flat cross-sample mean.
func (m *RegressionModel) Npv(amount randomvar.RandomVariable, obs time.Time, opts NpvOptions) (randomvar.RandomVariable, error) {
	if amount.Deterministic() || opts.AddRegressor1 == nil {
		return m.FlatModel.Npv(amount, obs, opts)
	}
	x := *opts.AddRegressor1
	n := amount.Size()
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = x.At(i)
		ys[i] = amount.At(i)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	fitted := make([]float64, n)
	for i := range fitted {
		fitted[i] = alpha + beta*xs[i]
	}
	return randomvar.NewFromSlice(fitted), nil
}
