// Package export renders settled transactions as CSV for local trade
// statistics and for upload to blob storage.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

// Header is the column layout of a settlement CSV.
var Header = []string{
	"transaction_id",
	"direction",
	"opened_at",
	"settled_at",
	"taker_order_id",
	"taker_broker_order_id",
	"taker_venue",
	"taker_side",
	"taker_price",
	"taker_filled",
	"taker_total",
	"hedge_count",
	"hedge_vwap",
	"hedge_filled",
	"hedge_total",
	"profit",
	"forced",
}

// MarshalCSV renders the settlements as a CSV document with a header row.
func MarshalCSV(sts []domain.SettledTransaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, fmt.Errorf("export: write header: %w", err)
	}
	for _, st := range sts {
		if err := w.Write(row(st)); err != nil {
			return nil, fmt.Errorf("export: write row %s: %w", st.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// AppendFile appends the settlement to a per-day CSV file under dir, creating
// the file with a header row when it does not exist yet. Returns the file
// path written.
func AppendFile(dir string, st domain.SettledTransaction) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: create dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, st.SettledAt.UTC().Format("2006-01-02")+".csv")

	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("export: open %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(Header); err != nil {
			return "", fmt.Errorf("export: write header: %w", err)
		}
	}
	if err := w.Write(row(st)); err != nil {
		return "", fmt.Errorf("export: write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export: flush: %w", err)
	}
	return path, nil
}

func row(st domain.SettledTransaction) []string {
	var hedgeFilled, hedgeTotal float64
	for _, h := range st.Hedges {
		hedgeFilled += h.FilledSize
		hedgeTotal += h.FilledSize * h.Price
	}
	return []string{
		st.ID,
		string(st.Direction),
		st.OpenedAt.UTC().Format(time.RFC3339),
		st.SettledAt.UTC().Format(time.RFC3339),
		st.Taker.OrderID,
		st.Taker.BrokerOrderID,
		string(st.Taker.Venue),
		string(st.Taker.Side),
		formatFloat(st.Taker.Price),
		formatFloat(st.Taker.FilledSize),
		formatFloat(st.Taker.Price * st.Taker.FilledSize),
		strconv.Itoa(len(st.Hedges)),
		formatFloat(st.HedgeVWAP),
		formatFloat(hedgeFilled),
		formatFloat(hedgeTotal),
		formatFloat(st.Profit),
		strconv.FormatBool(st.Forced),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
