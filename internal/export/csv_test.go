package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/spreadbot/internal/domain"
)

func sampleSettlement(id string, settledAt time.Time) domain.SettledTransaction {
	return domain.SettledTransaction{
		ID:        id,
		Direction: domain.DirectionTakerBuy,
		Taker: domain.SettledLeg{
			OrderID:       "o-1",
			BrokerOrderID: "b-1",
			Venue:         domain.VenueHPX,
			Side:          domain.OrderSideBuy,
			Price:         100,
			FilledSize:    1,
		},
		Hedges: []domain.SettledLeg{
			{OrderID: "o-2", BrokerOrderID: "b-2", Venue: domain.VenueZB, Side: domain.OrderSideSell, Price: 103, FilledSize: 0.6},
			{OrderID: "o-3", BrokerOrderID: "b-3", Venue: domain.VenueZB, Side: domain.OrderSideSell, Price: 102, FilledSize: 0.4},
		},
		HedgeVWAP: 102.6,
		Profit:    2.6,
		Forced:    false,
		OpenedAt:  settledAt.Add(-time.Minute),
		SettledAt: settledAt,
	}
}

func TestMarshalCSV(t *testing.T) {
	settledAt := time.Date(2018, 3, 14, 12, 0, 0, 0, time.UTC)
	data, err := MarshalCSV([]domain.SettledTransaction{sampleSettlement("tx-1", settledAt)})
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])

	row := rows[1]
	require.Len(t, row, len(Header))
	assert.Equal(t, "tx-1", row[0])
	assert.Equal(t, string(domain.DirectionTakerBuy), row[1])
	assert.Equal(t, "o-1", row[4])
	assert.Equal(t, "hpx", row[6])
	assert.Equal(t, "100", row[8])
	assert.Equal(t, "1", row[9])
	assert.Equal(t, "100", row[10]) // taker notional
	assert.Equal(t, "2", row[11])   // hedge count
	assert.Equal(t, "102.6", row[12])
	assert.Equal(t, "1", row[13]) // cumulative hedge fill
	assert.Equal(t, "2.6", row[15])
	assert.Equal(t, "false", row[16])
}

func TestMarshalCSVEmpty(t *testing.T) {
	data, err := MarshalCSV(nil)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, Header, rows[0])
}

func TestAppendFilePerDay(t *testing.T) {
	dir := t.TempDir()
	day1 := time.Date(2018, 3, 14, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2018, 3, 15, 9, 0, 0, 0, time.UTC)

	p1, err := AppendFile(dir, sampleSettlement("tx-1", day1))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2018-03-14.csv"), p1)

	// Same day appends to the same file without a second header.
	p2, err := AppendFile(dir, sampleSettlement("tx-2", day1.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, p1, p2)

	// A new day rolls to a new file.
	p3, err := AppendFile(dir, sampleSettlement("tx-3", day2))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2018-03-15.csv"), p3)

	data, err := os.ReadFile(p1)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "tx-1", rows[1][0])
	assert.Equal(t, "tx-2", rows[2][0])

	data, err = os.ReadFile(p3)
	require.NoError(t, err)
	rows, err = csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "tx-3", rows[1][0])
}

func TestAppendFileCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "trades")
	_, err := AppendFile(dir, sampleSettlement("tx-1", time.Now().UTC()))
	require.NoError(t, err)

	_, statErr := os.Stat(dir)
	assert.NoError(t, statErr)
}
