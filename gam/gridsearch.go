package gam

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/YuminosukeSato/scigam/pkg/errors"
	"github.com/YuminosukeSato/scigam/pkg/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// SearchScore is the outcome of one grid point.
type SearchScore struct {
	Lam float64
	// GCV is NaN when the candidate failed.
	GCV float64
	Err error
}

// GridSearch fits one candidate per lam in the grid, applying the same lam
// to every term, and keeps the candidate with the lowest GCV score. Ties go
// to the earlier grid point.
func (g *LinearGAM) GridSearch(X, y mat.Matrix) error {
	const op = "LinearGAM.GridSearch"
	start := time.Now()

	if len(g.lamGrid) == 0 {
		return errors.NewValidationError("lam_grid", "must not be empty", g.lamGrid)
	}
	for _, lam := range g.lamGrid {
		if err := validateLam(lam); err != nil {
			return err
		}
	}
	yVec, err := g.validate(op, X, y)
	if err != nil {
		return err
	}

	results := make([]*fitResult, len(g.lamGrid))
	scores := make([]SearchScore, len(g.lamGrid))

	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, lam := range g.lamGrid {
		eg.Go(func() error {
			terms := make(TermList, len(g.terms))
			for k, t := range g.terms {
				terms[k] = t.withLam(lam)
			}

			var res *fitResult
			err := errors.SafeExecute(op, func() error {
				var err error
				res, err = g.solve(op, terms, X, yVec)
				return err
			})

			scores[i] = SearchScore{Lam: lam, GCV: math.NaN(), Err: err}
			if err == nil {
				results[i] = res
				scores[i].GCV = res.stats.GCV
			}
			return nil
		})
	}
	_ = eg.Wait()

	best := -1
	var firstErr error
	failed := 0
	for i, s := range scores {
		if s.Err != nil {
			failed++
			if firstErr == nil {
				firstErr = s.Err
			}
			continue
		}
		if math.IsNaN(s.GCV) {
			continue
		}
		if best < 0 || s.GCV < scores[best].GCV {
			best = i
		}
	}

	if best < 0 {
		if firstErr == nil {
			firstErr = errors.New("every candidate produced a NaN score")
		}
		g.logger.Debug("grid search failed",
			log.OperationKey, log.OperationGridSearch,
			log.CandidatesKey, len(scores),
			log.ErrorCodeKey, log.ErrorSearchFailure,
		)
		return errors.NewModelError(op, "no candidate could be fitted", firstErr)
	}
	if failed > 0 {
		errors.Warn(errors.NewConvergenceWarning(op, len(scores),
			fmt.Sprintf("%d of %d candidates failed, first error: %v", failed, len(scores), firstErr)))
	}

	g.commit(results[best], scores)

	g.logger.Debug("grid search finished",
		log.OperationKey, log.OperationGridSearch,
		log.CandidatesKey, len(scores),
		log.CandidateKey, best,
		log.LamKey, scores[best].Lam,
		log.GCVKey, scores[best].GCV,
		log.EDoFKey, results[best].stats.EDoF,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// SearchScores returns the per-candidate results of the last GridSearch,
// or nil if the model was fitted with Fit.
func (g *LinearGAM) SearchScores() []SearchScore {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]SearchScore(nil), g.scores...)
}
