package scoring

import (
	"fmt"
	"os"
	"strconv"
)

// Params carries every tunable constant of the scoring pipeline.  The historical
// scripts hard-coded these (with drift between versions - concentration weight
// was seen as 1x, 3x and 4x) so they are all explicit and overridable here.
type Params struct {
	// Window is the trailing number of epochs averaged into the base score.
	Window int

	// MinScoreRecords is the minimum epochs of history inside the window a
	// validator needs before it can earn a nonzero final score.
	MinScoreRecords int

	// TopN is how many ranked validators share the allocation percentage.
	TopN int

	// PositionCenter is subtracted from the windowed average position to form
	// the score multiplier.
	PositionCenter float64

	// MinReferenceCredits is the adjusted-credits floor defining the reference
	// population used to recompute avg_position each epoch.
	MinReferenceCredits int64

	// CommissionWeight and ConcentrationWeight discount epoch credits when
	// computing adjusted credits.
	CommissionWeight    float64
	ConcentrationWeight float64
}

func DefaultParams() Params {
	return Params{
		Window:              5,
		MinScoreRecords:     5,
		TopN:                200,
		PositionCenter:      49,
		MinReferenceCredits: 30000,
		CommissionWeight:    1,
		ConcentrationWeight: 3,
	}
}

// ParamsFromEnv returns the defaults with any STAKESCORE_* environment
// overrides applied.
func ParamsFromEnv() Params {
	p := DefaultParams()
	setIntFromEnv(&p.Window, "STAKESCORE_WINDOW")
	setIntFromEnv(&p.MinScoreRecords, "STAKESCORE_MIN_SCORE_RECORDS")
	setIntFromEnv(&p.TopN, "STAKESCORE_TOP_N")
	setFloatFromEnv(&p.PositionCenter, "STAKESCORE_POSITION_CENTER")
	setInt64FromEnv(&p.MinReferenceCredits, "STAKESCORE_CREDITS_FLOOR")
	setFloatFromEnv(&p.CommissionWeight, "STAKESCORE_COMMISSION_WEIGHT")
	setFloatFromEnv(&p.ConcentrationWeight, "STAKESCORE_CONCENTRATION_WEIGHT")
	return p
}

func (p Params) Validate() error {
	if p.Window < 1 {
		return fmt.Errorf("window must be at least 1, got %d", p.Window)
	}
	if p.MinScoreRecords < 1 {
		return fmt.Errorf("min score records must be at least 1, got %d", p.MinScoreRecords)
	}
	if p.TopN < 1 {
		return fmt.Errorf("top-n must be at least 1, got %d", p.TopN)
	}
	if p.CommissionWeight < 0 || p.ConcentrationWeight < 0 {
		return fmt.Errorf("discount weights cannot be negative (commission:%v concentration:%v)", p.CommissionWeight, p.ConcentrationWeight)
	}
	return nil
}

func setIntFromEnv(dest *int, envName string) {
	if val := os.Getenv(envName); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dest = parsed
		}
	}
}

func setInt64FromEnv(dest *int64, envName string) {
	if val := os.Getenv(envName); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			*dest = parsed
		}
	}
}

func setFloatFromEnv(dest *float64, envName string) {
	if val := os.Getenv(envName); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			*dest = parsed
		}
	}
}
