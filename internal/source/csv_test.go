package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seasonCSV = `Div,Date,Time,HomeTeam,AwayTeam,FTHG,FTAG,FTR,B365H,B365D,B365A,AvgH,AvgD,AvgA,Avg>2.5,Avg<2.5,AHh,AvgAHH,AvgAHA
E0,17/08/2024,20:00,Man United,Fulham,1,0,H,1.60,4.20,5.25,1.62,4.26,5.10,1.80,2.05,-1.00,2.02,1.86
E0,16/08/2024,12:30,Ipswich,Liverpool,0,2,A,6.50,4.75,1.45,6.40,4.80,1.47,1.60,2.35,1.25,1.93,1.95
E0,18/08/24,14:00,Arsenal,Wolves,2,0,H,1.30,5.50,9.50,,,,,,,,
E0,,14:00,Chelsea,Man City,0,2,A,,,,,,,,,,,
E0,19/08/2024,14:00,Brentford,Palace,x,1,A,,,,,,,,,,,
`

func TestParseCSV(t *testing.T) {
	events, err := ParseCSV(strings.NewReader(seasonCSV))
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Date order
	first := events[0]
	assert.Equal(t, "Ipswich vs Liverpool", first.Name)
	assert.Equal(t, "2024-08-16", first.Date)
	assert.Equal(t, []int{0, 2}, first.Score)
	require.NotNil(t, first.MatchOdds)
	assert.Equal(t, []float64{6.40, 4.80, 1.47}, first.MatchOdds.Prices, "average prices preferred over Bet365")
	require.NotNil(t, first.AsianHandicaps)
	assert.Equal(t, 1.25, first.AsianHandicaps.Line)
	assert.Equal(t, []float64{1.93, 1.95}, first.AsianHandicaps.Prices)
	require.NotNil(t, first.OverUnderGoals)
	assert.Equal(t, 2.5, first.OverUnderGoals.Line)
	assert.Equal(t, []float64{1.60, 2.35}, first.OverUnderGoals.Prices)

	assert.Equal(t, "Man United vs Fulham", events[1].Name)
	assert.Equal(t, -1.0, events[1].AsianHandicaps.Line)

	fallback := events[2]
	assert.Equal(t, "Arsenal vs Wolves", fallback.Name)
	assert.Equal(t, "2024-08-18", fallback.Date)
	require.NotNil(t, fallback.MatchOdds)
	assert.Equal(t, []float64{1.30, 5.50, 9.50}, fallback.MatchOdds.Prices)
	assert.Nil(t, fallback.AsianHandicaps)
	assert.Nil(t, fallback.OverUnderGoals)
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "Date,HomeTeam,AwayTeam,FTHG\n01/01/24,A,B,1\n"},
		{"no valid rows", "Date,HomeTeam,AwayTeam,FTHG,FTAG\n,A,B,1,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestParseCSVByteOrderMark(t *testing.T) {
	input := "\ufeffDate,HomeTeam,AwayTeam,FTHG,FTAG\n01/02/2025,A,B,3,3\n"
	events, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "2025-02-01", events[0].Date)
	assert.Nil(t, events[0].MatchOdds)
}

func TestParseDate(t *testing.T) {
	for _, input := range []string{"05/09/24", "5/9/24", "05/09/2024", "5/9/2024"} {
		date, err := parseDate(input)
		require.NoError(t, err, input)
		assert.Equal(t, "2024-09-05", date.Format("2006-01-02"), input)
	}
	_, err := parseDate("2024-09-05")
	assert.Error(t, err)
}
