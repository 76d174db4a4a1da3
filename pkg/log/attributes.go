package log

// Model and operation context.
const (
	// ModelNameKey identifies the type of model, e.g. "LinearGAM".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the model lifecycle.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	// SamplesKey is the number of rows in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey is the number of feature columns.
	FeaturesKey = "data.features"

	// DroppedColumnsKey is the number of columns discarded before fitting.
	DroppedColumnsKey = "data.dropped_columns"

	// TermsKey is the number of additive terms in a model.
	TermsKey = "model.terms"

	// CoefficientsKey is the number of fitted coefficients.
	CoefficientsKey = "model.coefficients"
)

// Performance and fit metrics.
const (
	DurationMsKey = "perf.duration_ms"

	R2ScoreKey    = "metrics.r2_score"
	AdjR2ScoreKey = "metrics.adjusted_r2"
	RMSEKey       = "metrics.rmse"
	MAEKey        = "metrics.mae"

	// EDoFKey is the effective degrees of freedom of a penalized fit.
	EDoFKey = "metrics.edof"

	// GCVKey is the generalized cross-validation score.
	GCVKey = "metrics.gcv"
)

// Hyperparameters.
const (
	// LamKey is the smoothing penalty strength.
	LamKey = "hyperparams.lam"

	// CandidatesKey is the size of a hyperparameter search grid.
	CandidatesKey = "search.candidates"

	// CandidateKey is the index of a grid point.
	CandidateKey = "search.candidate"
)

// Error context.
const (
	ErrorCodeKey = "error.code"
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit        = "fit"
	OperationPredict    = "predict"
	OperationGridSearch = "gridsearch"
	OperationScore      = "score"
	OperationEvaluate   = "evaluate"

	PhaseTraining   = "training"
	PhaseEvaluation = "evaluation"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorSearchFailure     = "SEARCH_FAILURE"
)
