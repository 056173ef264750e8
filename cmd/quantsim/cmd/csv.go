package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/quantsim/market"
)

// loadQuotesCSV reads a quote file into a History. Expected columns:
// time,symbol,bid,ask[,bid_size,ask_size]. A header row is skipped when the
// first field does not parse as a time.
func loadQuotesCSV(path string) (market.History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open quotes: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	hist := make(market.History)
	line := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read quotes: %w", err)
		}
		line++

		if len(rec) < 4 {
			return nil, fmt.Errorf("quotes line %d: expected at least 4 fields, got %d", line, len(rec))
		}

		ts, err := parseTime(strings.TrimSpace(rec[0]))
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("quotes line %d: %w", line, err)
		}

		symbol := strings.TrimSpace(rec[1])
		bid, err := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("quotes line %d: bad bid: %w", line, err)
		}
		ask, err := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("quotes line %d: bad ask: %w", line, err)
		}

		q := market.Quote{Symbol: symbol, Time: ts, Bid: bid, Ask: ask}
		if len(rec) >= 6 {
			if v, err := strconv.ParseInt(strings.TrimSpace(rec[4]), 10, 64); err == nil {
				q.BidSize = v
			}
			if v, err := strconv.ParseInt(strings.TrimSpace(rec[5]), 10, 64); err == nil {
				q.AskSize = v
			}
		}

		hist[symbol] = append(hist[symbol], q)
	}

	if len(hist) == 0 {
		return nil, fmt.Errorf("quotes file %s contains no rows", path)
	}

	hist.Sort()
	return hist, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", s)
}

func parseDate(name, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("--%s is required", name)
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad --%s: %w", name, err)
	}
	return t, nil
}
