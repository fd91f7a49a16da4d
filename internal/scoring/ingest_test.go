package scoring

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvHeader = "epoch,keybase_id,name,identity,vote_address,score,avg_position,commission,active_stake,epoch_credits,data_center_concentration,can_halt_the_network_group,stake_state,stake_state_reason,www_url"

func TestParseEpochCSV(t *testing.T) {
	input := csvHeader + "\n" +
		"207,kb-alice,Alice,idA,voteA,250,55.5,10,1000000,400000,2.5,false,Bonus,ok,https://alice.example\n" +
		"207,,,idB,voteB,0,0,100,2000000,350000,12.25,true,None,low credits,\n"

	records, epoch, err := ParseEpochCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.EqualValues(t, 207, epoch)
	require.Len(t, records, 2)

	a := records[0]
	assert.Equal(t, "voteA", a.VoteAddress)
	assert.Equal(t, "idA", a.Identity)
	assert.Equal(t, "Alice", a.Name)
	assert.EqualValues(t, 250, a.Score)
	assert.InDelta(t, 55.5, a.AvgPosition, 1e-9)
	assert.EqualValues(t, 10, a.Commission)
	assert.EqualValues(t, 1000000, a.ActiveStake)
	assert.EqualValues(t, 400000, a.EpochCredits)
	assert.InDelta(t, 2.5, a.DataCenterConcentration, 1e-9)
	assert.False(t, a.CanHaltTheNetworkGroup)

	b := records[1]
	assert.True(t, b.CanHaltTheNetworkGroup)
	assert.Equal(t, "None", b.StakeState)
}

func TestParseEpochCSVSkipsRepeatedHeader(t *testing.T) {
	// hand-edited exports have been seen with the header pasted back in mid-file
	input := csvHeader + "\n" +
		"207,,,idA,voteA,250,55.5,10,1000,400000,2.5,false,,,\n" +
		csvHeader + "\n" +
		"207,,,idB,voteB,100,40,0,2000,350000,1,false,,,\n"

	records, epoch, err := ParseEpochCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.EqualValues(t, 207, epoch)
	assert.Len(t, records, 2)
}

func TestParseEpochCSVErrors(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			"two distinct epochs",
			csvHeader + "\n" +
				"207,,,idA,voteA,250,55.5,10,1000,400000,2.5,false,,,\n" +
				"208,,,idB,voteB,100,40,0,2000,350000,1,false,,,\n",
			ErrMultipleEpochs,
		},
		{
			"wrong column count",
			csvHeader + "\n207,idA,voteA,250\n",
			ErrMalformedInput,
		},
		{
			"non-numeric epoch",
			csvHeader + "\nabc,,,idA,voteA,250,55.5,10,1000,400000,2.5,false,,,\n",
			ErrMalformedInput,
		},
		{
			"commission out of range",
			csvHeader + "\n207,,,idA,voteA,250,55.5,101,1000,400000,2.5,false,,,\n",
			ErrMalformedInput,
		},
		{
			"empty vote address",
			csvHeader + "\n207,,,idA,,250,55.5,10,1000,400000,2.5,false,,,\n",
			ErrMalformedInput,
		},
		{
			"empty file",
			"",
			ErrMalformedInput,
		},
		{
			"header only",
			csvHeader + "\n",
			ErrMalformedInput,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseEpochCSV(strings.NewReader(tc.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestParseEpochCSVMultipleEpochsIsMalformedInput(t *testing.T) {
	input := csvHeader + "\n" +
		"207,,,idA,voteA,250,55.5,10,1000,400000,2.5,false,,,\n" +
		"208,,,idB,voteB,100,40,0,2000,350000,1,false,,,\n"
	_, _, err := ParseEpochCSV(strings.NewReader(input))
	assert.ErrorIs(t, err, ErrMalformedInput)
}
