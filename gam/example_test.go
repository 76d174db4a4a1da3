package gam_test

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/scigam/gam"
)

func ExampleTermList_Plus() {
	terms := gam.Terms(gam.S(0), gam.F(1)).Plus(gam.TE(0, 2))
	fmt.Println(terms)
	// Output: s(0) + f(1) + te(0, 2)
}

func ExampleLinearGAM_GridSearch() {
	n := 100
	X := mat.NewDense(n, 1, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		x := float64(i) / 10
		X.Set(i, 0, x)
		y.Set(i, 0, math.Sin(x))
	}

	g := gam.NewLinearGAM(gam.Terms(gam.S(0)))
	if err := g.GridSearch(X, y); err != nil {
		fmt.Println(err)
		return
	}

	r2, _ := g.Score(X, y)
	fmt.Printf("candidates: %d, R² > 0.99: %v\n", len(g.SearchScores()), r2 > 0.99)
	// Output: candidates: 11, R² > 0.99: true
}
