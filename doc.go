// Package scigam fits generalized additive models (GAMs) to tabular data in Go.
//
// scigam picks a term type for every feature from its name, fits a
// penalized spline model with optional smoothing-parameter search, and
// reports in-sample regression metrics.
//
// # Installation
//
//	go get github.com/YuminosukeSato/scigam
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/scigam/frame"
//	    "github.com/YuminosukeSato/scigam/regression"
//	)
//
//	func main() {
//	    X, err := frame.New(
//	        frame.NewFloat("score", []float64{0.1, 0.4, 0.35, 0.8, 0.9}),
//	        frame.NewInt("sector_tech", []int64{0, 1, 0, 1, 1}),
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    y := []float64{1.0, 2.1, 1.3, 3.2, 3.0}
//
//	    res, err := regression.SimpleGAM(X, y, regression.WithGridSearch(false))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(res.Model.Terms(), res.R2, res.RMSE)
//	}
//
// Columns prefixed "sector_" or "region_" become factor terms, other
// numeric columns smooth terms, and interaction pairs tensor-product terms.
// Non-numeric columns are dropped.
//
// # Packages
//
//   - regression: SplineTerms and SimpleGAM
//   - gam: term primitives (S, F, TE) and LinearGAM with Fit, GridSearch, Predict
//   - frame: typed columnar table
//   - metrics: MSE, RMSE, MAE, R², adjusted R²
//   - diagnostics: residual and partial-dependence plots
//   - core/model: shared estimator interfaces and fitted state
//   - core/parallel: parallel processing utilities
//   - pkg/errors, pkg/log: error types, warnings and structured logging
//
// # Performance
//
// Design matrices are built in parallel for datasets with more than 1000
// rows, and GridSearch fits its candidates concurrently, bounded by
// GOMAXPROCS.
//
// # License
//
// scigam is released under the MIT License.
package scigam
