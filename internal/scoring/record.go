package scoring

// Record is one validator's performance data for a single epoch - the row format
// of both the CSV export and the historical store.  The first block of fields
// comes straight from the export; AdjCredits, Pct and StakeConc are filled in by
// the normalizer before the epoch is written to history.
type Record struct {
	Epoch       uint64
	KeybaseID   string
	Name        string
	Identity    string
	VoteAddress string

	Score        int64
	AvgPosition  float64
	Commission   int64
	ActiveStake  int64
	EpochCredits int64

	// DataCenterConcentration is the stake percentage of the validator's data
	// center across the whole cluster (0-100).
	DataCenterConcentration float64

	CanHaltTheNetworkGroup bool
	StakeState             string
	StakeStateReason       string
	WwwURL                 string

	// Derived by the normalizer
	AdjCredits int64
	Pct        float64
	StakeConc  float64
}

// Aggregate is the per-validator result of scoring one epoch against its
// trailing window of history.  It is recomputed from scratch every run and
// never persisted.
type Aggregate struct {
	Epoch       uint64
	VoteAddress string
	Name        string
	KeybaseID   string

	// ScoreRecords is how many epochs of history the validator had inside the
	// trailing window (may be less than the window size for new validators).
	ScoreRecords int

	BaseScore        int64
	AvgPosition      float64
	Mult             float64
	AvgCommission    float64
	AvgConcentration float64
	AvgEpochCredits  int64
	AvgActiveStake   float64

	// Score is the raw score of the current epoch, carried through so the
	// finalizer can disqualify validators that scored zero this epoch.
	Score int64

	AvgScore int64
	Rank     int
	Pct      float64
}
