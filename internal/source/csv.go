package source

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jhw/go-outrights/pkg/outrights"
)

// Closing-price column families in order of preference. Older seasons only
// carry the Bet365 and BetBrain columns.
var (
	matchOddsColumns = [][3]string{
		{"AvgCH", "AvgCD", "AvgCA"},
		{"AvgH", "AvgD", "AvgA"},
		{"BbAvH", "BbAvD", "BbAvA"},
		{"B365H", "B365D", "B365A"},
	}
	handicapLineColumns = []string{"AHCh", "AHh", "BbAHh"}
	handicapColumns     = [][2]string{
		{"AvgCAHH", "AvgCAHA"},
		{"AvgAHH", "AvgAHA"},
		{"BbAvAHH", "BbAvAHA"},
		{"B365AHH", "B365AHA"},
	}
	overUnderColumns = [][2]string{
		{"AvgC>2.5", "AvgC<2.5"},
		{"Avg>2.5", "Avg<2.5"},
		{"BbAv>2.5", "BbAv<2.5"},
		{"B365>2.5", "B365<2.5"},
	}
)

const overUnderLine = 2.5

// header maps trimmed column names to their index
type header map[string]int

func newHeader(row []string) header {
	h := make(header, len(row))
	for i, col := range row {
		name := strings.TrimPrefix(strings.TrimSpace(col), "\ufeff")
		if _, ok := h[name]; !ok {
			h[name] = i
		}
	}
	return h
}

func (h header) field(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (h header) price(record []string, name string) (float64, bool) {
	v, err := strconv.ParseFloat(h.field(record, name), 64)
	if err != nil || v <= 1 {
		return 0, false
	}
	return v, true
}

// ParseCSV parses a football-data.co.uk season file into dated events with
// scores and whichever closing quotes the file carries. Rows without teams,
// a date or a full-time score are skipped. Events are returned in date order.
func ParseCSV(reader io.Reader) ([]outrights.Event, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file")
	}

	h := newHeader(records[0])
	for _, required := range []string{"Date", "HomeTeam", "AwayTeam", "FTHG", "FTAG"} {
		if _, ok := h[required]; !ok {
			return nil, fmt.Errorf("required column %s not found in CSV header", required)
		}
	}

	var events []outrights.Event
	for _, record := range records[1:] {
		date, err := parseDate(h.field(record, "Date"))
		if err != nil {
			continue
		}
		homeTeam, awayTeam := h.field(record, "HomeTeam"), h.field(record, "AwayTeam")
		if homeTeam == "" || awayTeam == "" {
			continue
		}
		homeGoals, err := strconv.Atoi(h.field(record, "FTHG"))
		if err != nil {
			continue
		}
		awayGoals, err := strconv.Atoi(h.field(record, "FTAG"))
		if err != nil {
			continue
		}

		event := outrights.Event{
			Name:  outrights.EventName(homeTeam, awayTeam),
			Date:  date.Format("2006-01-02"),
			Score: []int{homeGoals, awayGoals},
		}
		event.MatchOdds = h.matchOdds(record)
		event.AsianHandicaps = h.asianHandicaps(record)
		event.OverUnderGoals = h.overUnderGoals(record)
		events = append(events, event)
	}

	if len(events) == 0 {
		return nil, fmt.Errorf("no valid events parsed from CSV")
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Date < events[j].Date })
	return events, nil
}

func (h header) matchOdds(record []string) *outrights.MatchOddsQuote {
	for _, cols := range matchOddsColumns {
		home, ok1 := h.price(record, cols[0])
		draw, ok2 := h.price(record, cols[1])
		away, ok3 := h.price(record, cols[2])
		if ok1 && ok2 && ok3 {
			return &outrights.MatchOddsQuote{Prices: []float64{home, draw, away}}
		}
	}
	return nil
}

func (h header) asianHandicaps(record []string) *outrights.HandicapQuote {
	var line float64
	found := false
	for _, col := range handicapLineColumns {
		if v, err := strconv.ParseFloat(h.field(record, col), 64); err == nil {
			line, found = v, true
			break
		}
	}
	if !found {
		return nil
	}
	if pair := h.pricePair(record, handicapColumns); pair != nil {
		return &outrights.HandicapQuote{Prices: pair, Line: line}
	}
	return nil
}

func (h header) overUnderGoals(record []string) *outrights.HandicapQuote {
	if pair := h.pricePair(record, overUnderColumns); pair != nil {
		return &outrights.HandicapQuote{Prices: pair, Line: overUnderLine}
	}
	return nil
}

func (h header) pricePair(record []string, families [][2]string) []float64 {
	for _, cols := range families {
		a, ok1 := h.price(record, cols[0])
		b, ok2 := h.price(record, cols[1])
		if ok1 && ok2 {
			return []float64{a, b}
		}
	}
	return nil
}

// parseDate handles the date formats used by football-data.co.uk
func parseDate(dateStr string) (time.Time, error) {
	formats := []string{
		"02/01/06",   // DD/MM/YY
		"2/1/06",     // D/M/YY
		"02/01/2006", // DD/MM/YYYY
		"2/1/2006",   // D/M/YYYY
	}
	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return date, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse date: %q", dateStr)
}
