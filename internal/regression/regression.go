package regression

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"weather-prediction/internal/models"
)

// Model is a fitted ordinary least-squares linear regression from the three
// observation features to temperature. No regularization, no feature scaling.
type Model struct {
	Intercept    float64 `json:"intercept"`
	DayOfYear    float64 `json:"day_of_year_coef"`
	DayOfWeek    float64 `json:"day_of_week_coef"`
	HumidityCoef float64 `json:"humidity_coef"`
}

// Fit computes the least-squares solution for the given feature rows and
// temperature targets. The solve goes through an SVD so a rank-deficient
// design matrix (possible at the minimum window of three rows against four
// unknowns) yields the minimum-norm solution instead of failing.
func Fit(features []models.FeatureVector, targets []float64) (*Model, error) {
	n := len(features)
	if n == 0 {
		return nil, fmt.Errorf("cannot fit model on empty feature set")
	}
	if n != len(targets) {
		return nil, fmt.Errorf("feature/target length mismatch: %d vs %d", n, len(targets))
	}

	x := mat.NewDense(n, 4, nil)
	for i, f := range features {
		x.Set(i, 0, 1) // intercept
		x.Set(i, 1, f.DayOfYear)
		x.Set(i, 2, f.DayOfWeek)
		x.Set(i, 3, f.Humidity)
	}

	y := mat.NewDense(n, 1, nil)
	for i, t := range targets {
		y.Set(i, 0, t)
	}

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization failed")
	}

	rank := svd.Rank(1e-10)
	if rank == 0 {
		return nil, fmt.Errorf("design matrix has rank zero")
	}

	var beta mat.Dense
	svd.SolveTo(&beta, y, rank)

	return &Model{
		Intercept:    beta.At(0, 0),
		DayOfYear:    beta.At(1, 0),
		DayOfWeek:    beta.At(2, 0),
		HumidityCoef: beta.At(3, 0),
	}, nil
}

// Predict evaluates the model for one feature vector.
func (m *Model) Predict(f models.FeatureVector) float64 {
	return m.Intercept +
		m.DayOfYear*f.DayOfYear +
		m.DayOfWeek*f.DayOfWeek +
		m.HumidityCoef*f.Humidity
}
