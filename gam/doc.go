// Package gam implements generalized additive models with an identity link
// and Gaussian errors.
//
// A model is a sum of terms, each addressing feature columns by index:
//
//	S(i)     penalized cubic B-spline smooth of feature i
//	F(i)     one coefficient per distinct value of feature i
//	TE(i, j) tensor-product smooth over features i and j
//
// Terms are combined with TermList.Plus and passed to NewLinearGAM, which
// appends an unpenalized intercept:
//
//	terms := gam.Terms(gam.S(0), gam.F(1)).Plus(gam.TE(0, 2))
//	g := gam.NewLinearGAM(terms)
//	if err := g.GridSearch(X, y); err != nil {
//	    return err
//	}
//	pred, err := g.Predict(X)
//
// Coefficients minimize ||y - Bβ||² + βᵀPβ where B is the design matrix
// and P the block-diagonal penalty. GridSearch picks the penalty strength
// by generalized cross-validation.
package gam
