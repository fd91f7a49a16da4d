package scoring

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// The fixed column layout of one epoch's validator export.
const (
	colEpoch = iota
	colKeybaseID
	colName
	colIdentity
	colVoteAddress
	colScore
	colAvgPosition
	colCommission
	colActiveStake
	colEpochCredits
	colDataCenterConcentration
	colCanHaltTheNetworkGroup
	colStakeState
	colStakeStateReason
	colWwwURL

	numColumns
)

// headerToken is the value of the identity column in the header row.  Hand-fed
// exports have been seen with the header accidentally re-included mid-file, so
// any row carrying it is skipped rather than failing the parse.
const headerToken = "identity"

// ParseEpochCSV reads one epoch's validator export.  The file must contain the
// header row followed by rows for a single epoch; a file mixing epochs fails
// with ErrMultipleEpochs before anything else is done with the data.
func ParseEpochCSV(r io.Reader) ([]Record, uint64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = numColumns

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("%w: file is empty", ErrMalformedInput)
	}

	var (
		records []Record
		epoch   uint64
		haveAny bool
	)
	for i, row := range rows {
		if i == 0 || row[colIdentity] == headerToken {
			continue
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: line %d: %v", ErrMalformedInput, i+1, err)
		}
		if !haveAny {
			epoch = rec.Epoch
			haveAny = true
		} else if rec.Epoch != epoch {
			return nil, 0, fmt.Errorf("%w (%d and %d)", ErrMultipleEpochs, epoch, rec.Epoch)
		}
		records = append(records, rec)
	}
	if !haveAny {
		return nil, 0, fmt.Errorf("%w: file has a header but no data rows", ErrMalformedInput)
	}
	return records, epoch, nil
}

func parseRow(row []string) (Record, error) {
	var (
		rec Record
		err error
	)
	if rec.Epoch, err = strconv.ParseUint(strings.TrimSpace(row[colEpoch]), 10, 64); err != nil {
		return rec, fmt.Errorf("epoch: %v", err)
	}
	rec.KeybaseID = row[colKeybaseID]
	rec.Name = row[colName]
	rec.Identity = strings.TrimSpace(row[colIdentity])
	rec.VoteAddress = strings.TrimSpace(row[colVoteAddress])
	if rec.VoteAddress == "" {
		return rec, fmt.Errorf("vote_address is empty")
	}
	if rec.Score, err = parseInt(row[colScore], "score"); err != nil {
		return rec, err
	}
	if rec.AvgPosition, err = parseFloat(row[colAvgPosition], "avg_position"); err != nil {
		return rec, err
	}
	if rec.Commission, err = parseInt(row[colCommission], "commission"); err != nil {
		return rec, err
	}
	if rec.Commission < 0 || rec.Commission > 100 {
		return rec, fmt.Errorf("commission %d out of range 0-100", rec.Commission)
	}
	if rec.ActiveStake, err = parseInt(row[colActiveStake], "active_stake"); err != nil {
		return rec, err
	}
	if rec.EpochCredits, err = parseInt(row[colEpochCredits], "epoch_credits"); err != nil {
		return rec, err
	}
	if rec.DataCenterConcentration, err = parseFloat(row[colDataCenterConcentration], "data_center_concentration"); err != nil {
		return rec, err
	}
	rec.CanHaltTheNetworkGroup = parseBool(row[colCanHaltTheNetworkGroup])
	rec.StakeState = row[colStakeState]
	rec.StakeStateReason = row[colStakeStateReason]
	rec.WwwURL = row[colWwwURL]
	return rec, nil
}

func parseInt(field, name string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", name, err)
	}
	return v, nil
}

func parseFloat(field, name string) (float64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", name, err)
	}
	return v, nil
}

func parseBool(field string) bool {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "true", "1", "yes":
		return true
	}
	return false
}
