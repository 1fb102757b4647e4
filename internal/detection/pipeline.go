package detection

import (
	"errors"
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"
)

const (
	runIDPrefix   = "run-"
	runIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	runIDLength   = 10
)

// Diagnostics counts what happened to the input contours during one run.
type Diagnostics struct {
	Contours   int `json:"contours"`
	Malformed  int `json:"malformed"`
	Rejected   int `json:"rejected"`   // open or too short
	Degenerate int `json:"degenerate"` // zero area, perimeter or radius
	Filtered   int `json:"filtered"`   // failed the morphology cuts
	FitFailed  int `json:"fit_failed"`
	Streaks    int `json:"streaks"`
	Groups     int `json:"groups"`
}

// Catalogue is the result of one detection run.
type Catalogue struct {
	RunID       string      `json:"run_id"`
	Params      Params      `json:"params"`
	Edges       []Edge      `json:"edges"`
	Groups      []Group     `json:"groups"`
	Diagnostics Diagnostics `json:"diagnostics"`

	// Errors holds the per-contour failures; they never abort a run.
	Errors []error `json:"-"`
}

// Detector runs the full pipeline with fixed parameters.
//
// A Detector holds no per-run state; one value may serve many runs, but a
// single run is strictly sequential.
type Detector struct {
	params Params
	logger *zap.Logger
}

// NewDetector validates p and returns a Detector. A nil logger disables
// logging.
func NewDetector(p Params, logger *zap.Logger) (*Detector, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{params: p, logger: logger}, nil
}

// Run ingests, quantifies, filters, fits and links contours, then groups the
// linked edges. Only a failure to create the run ID is returned as an error;
// per-contour problems end up in Catalogue.Errors and Diagnostics.
func (d *Detector) Run(contours []Contour) (*Catalogue, error) {
	runID, err := nanoid.Generate(runIDAlphabet, runIDLength)
	if err != nil {
		return nil, fmt.Errorf("generate run id: %w", err)
	}
	runID = runIDPrefix + runID
	log := d.logger.With(zap.String("run_id", runID))

	diag := Diagnostics{Contours: len(contours)}
	var allErrs []error

	candidates, rejected, errs := Ingest(contours, d.params.MinPoints)
	diag.Rejected = rejected
	diag.Malformed = len(errs)
	allErrs = append(allErrs, errs...)
	d.logFailures(log, "skipping malformed contour", errs)

	quantified, errs := Quantify(candidates)
	diag.Degenerate = len(errs)
	allErrs = append(allErrs, errs...)
	d.logFailures(log, "excluding degenerate edge", errs)

	filtered := Filter(quantified, d.params)
	diag.Filtered = quantified.Len() - filtered.Len()

	fitted, errs := Fit(filtered)
	diag.FitFailed = len(errs)
	allErrs = append(allErrs, errs...)
	d.logFailures(log, "excluding edge after failed line fit", errs)

	linked := Link(fitted, d.params.ConnectivityAngle)
	groups := Assemble(linked)
	diag.Streaks = linked.Len()
	diag.Groups = len(groups)

	log.Info("streak detection finished",
		zap.Int("contours", diag.Contours),
		zap.Int("candidates", candidates.Len()),
		zap.Int("malformed", diag.Malformed),
		zap.Int("degenerate", diag.Degenerate),
		zap.Int("fit_failed", diag.FitFailed),
		zap.Int("streaks", diag.Streaks),
		zap.Int("groups", diag.Groups))

	return &Catalogue{
		RunID:       runID,
		Params:      d.params,
		Edges:       linked.Edges(),
		Groups:      groups,
		Diagnostics: diag,
		Errors:      allErrs,
	}, nil
}

func (d *Detector) logFailures(log *zap.Logger, msg string, errs []error) {
	for _, err := range errs {
		log.Warn(msg, zap.Int("source_index", sourceIndex(err)), zap.Error(err))
	}
}

// sourceIndex extracts the contour position from a pipeline error.
func sourceIndex(err error) int {
	var (
		mErr *MalformedContourError
		dErr *DegenerateShapeError
		fErr *FittingError
	)
	switch {
	case errors.As(err, &mErr):
		return mErr.Index
	case errors.As(err, &dErr):
		return dErr.Index
	case errors.As(err, &fErr):
		return fErr.Index
	}
	return 0
}
