package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/navid-fn/skywatch/internal/faulttolerance"
	"github.com/navid-fn/skywatch/internal/models"
)

type fakeSheet struct {
	rows     [][]interface{}
	appended [][]interface{}
	query    string
	ranges   []string
	status   int
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": f.status, "message": "denied"}})
		return
	}

	path := r.URL.Path
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":append"):
		f.query = r.URL.RawQuery
		var body struct {
			Values [][]interface{} `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		f.appended = append(f.appended, body.Values...)
		first := len(f.rows) + 1
		f.rows = append(f.rows, body.Values...)
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-id",
			"updates": map[string]any{
				"updatedRange": fmt.Sprintf("'Movements'!A%d:N%d", first, len(f.rows)),
				"updatedRows":  len(body.Values),
			},
		})
	case strings.Contains(path, "/values/"):
		rng := path[strings.Index(path, "/values/")+len("/values/"):]
		f.ranges = append(f.ranges, rng)
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.slice(rng)})
	default:
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
	}
}

// slice serves column A or a row range like A5:N7 or the open-ended A5:N,
// 1-based like Sheets.
func (f *fakeSheet) slice(rng string) [][]interface{} {
	cells := rng[strings.Index(rng, "!")+1:]
	if cells == "A:A" {
		out := make([][]interface{}, len(f.rows))
		for i, r := range f.rows {
			out[i] = r[:1]
		}
		return out
	}
	var first, last int
	fmt.Sscanf(cells, "A%d:N%d", &first, &last)
	if last == 0 || last > len(f.rows) {
		last = len(f.rows)
	}
	if first > last {
		return nil
	}
	return f.rows[first-1 : last]
}

func (f *fakeSheet) columnScans() int {
	n := 0
	for _, r := range f.ranges {
		if strings.HasSuffix(r, "!A:A") {
			n++
		}
	}
	return n
}

func sheetRow(flightID string, ts int64) []interface{} {
	row := make([]interface{}, models.RowWidth)
	for i := range row {
		row[i] = "x"
	}
	row[models.ColFlightID] = flightID
	row[models.ColSignature] = flightID + "_" + strconv.FormatInt(ts, 10)
	return row
}

func connectFake(t *testing.T, f *fakeSheet) (EventStore, error) {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	conn := NewSheetsConnector(SheetsConfig{
		SpreadsheetID: "sheet-id",
		SheetName:     "Movements",
		Location:      time.FixedZone("CET", 3600),
		ClientOptions: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithHTTPClient(srv.Client()),
		},
	})
	return conn.Connect(context.Background())
}

func TestSheetsReadRecentReadsOnlyTail(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{headerCells()}}
	for i := 0; i < 10; i++ {
		f.rows = append(f.rows, sheetRow("IB"+string(rune('0'+i)), int64(1700000000+i)))
	}
	store, err := connectFake(t, f)
	require.NoError(t, err)

	rows, err := store.ReadRecent(context.Background(), Window{Rows: 3})
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, "IB7", rows[0][models.ColFlightID])
	assert.Equal(t, "IB9", rows[2][models.ColFlightID])
	assert.Equal(t, "'Movements'!A9:N", f.ranges[len(f.ranges)-1])
}

func TestSheetsReadRecentSkipsHeader(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{headerCells(), sheetRow("IB1", 1700000000)}}
	store, err := connectFake(t, f)
	require.NoError(t, err)

	rows, err := store.ReadRecent(context.Background(), Window{Rows: 1500})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "IB1", rows[0][models.ColFlightID])

	f.rows = [][]interface{}{headerCells()}
	rows, err = store.ReadRecent(context.Background(), Window{Rows: 1500})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestSheetsReadRecentWithoutHeader(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{sheetRow("IB1", 1700000000)}}
	store, err := connectFake(t, f)
	require.NoError(t, err)

	rows, err := store.ReadRecent(context.Background(), Window{Rows: 1500})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "IB1", rows[0][models.ColFlightID])

	f.rows = append(f.rows, sheetRow("IB2", 1700000060))
	rows, err = store.ReadRecent(context.Background(), Window{Rows: 1500})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "IB1", rows[0][models.ColFlightID])
	assert.Equal(t, "IB2", rows[1][models.ColFlightID])
}

func TestSheetsReadRecentScansColumnOnce(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{headerCells()}}
	for i := 0; i < 10; i++ {
		f.rows = append(f.rows, sheetRow("IB"+string(rune('0'+i)), int64(1700000000+i)))
	}
	store, err := connectFake(t, f)
	require.NoError(t, err)

	_, err = store.ReadRecent(context.Background(), Window{Rows: 3})
	require.NoError(t, err)

	require.NoError(t, store.Append(context.Background(), []models.MovementEvent{{FlightID: "UX1093", Signature: "UX1093_1700000100"}}))
	f.rows = append(f.rows, sheetRow("FR7", 1700000200))

	rows, err := store.ReadRecent(context.Background(), Window{Rows: 3})
	require.NoError(t, err)

	assert.Equal(t, 1, f.columnScans())
	assert.Equal(t, "'Movements'!A10:N", f.ranges[len(f.ranges)-1])
	require.Len(t, rows, 3)
	assert.Equal(t, "IB9", rows[0][models.ColFlightID])
	assert.Equal(t, "UX1093", rows[1][models.ColFlightID])
	assert.Equal(t, "FR7", rows[2][models.ColFlightID])
}

func TestSheetsReadRecentRescansAfterRowsDeleted(t *testing.T) {
	f := &fakeSheet{rows: [][]interface{}{sheetRow("IB1", 1700000000), sheetRow("IB2", 1700000060), sheetRow("IB3", 1700000120)}}
	store, err := connectFake(t, f)
	require.NoError(t, err)

	_, err = store.ReadRecent(context.Background(), Window{Rows: 1})
	require.NoError(t, err)

	f.rows = f.rows[:1]
	rows, err := store.ReadRecent(context.Background(), Window{Rows: 1})
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "IB1", rows[0][models.ColFlightID])
	assert.Equal(t, 2, f.columnScans())
}

func TestSheetsAppend(t *testing.T) {
	f := &fakeSheet{}
	store, err := connectFake(t, f)
	require.NoError(t, err)

	event := models.MovementEvent{
		CaptureTime:  time.Unix(1700000300, 0),
		FlightID:     "IB3170",
		Type:         models.Arrival,
		ActualTime:   time.Unix(1700000000, 0),
		DelayMinutes: 7,
		Category:     models.Commercial,
		Signature:    "IB3170_1700000000",
	}
	require.NoError(t, store.Append(context.Background(), []models.MovementEvent{event, event}))

	assert.Contains(t, f.query, "valueInputOption=RAW")
	assert.Contains(t, f.query, "insertDataOption=INSERT_ROWS")
	require.Len(t, f.appended, 2)
	row := f.appended[0]
	require.Len(t, row, models.RowWidth)
	assert.Equal(t, float64(7), row[models.ColDelayMinutes])
	assert.Equal(t, "2023-11-14 23:13:20", row[models.ColActualTime])
	assert.Equal(t, "IB3170_1700000000", row[models.ColSignature])
}

func TestSheetsClientErrorsArePermanent(t *testing.T) {
	f := &fakeSheet{}
	store, err := connectFake(t, f)
	require.NoError(t, err)

	f.status = http.StatusForbidden
	err = store.Append(context.Background(), []models.MovementEvent{{FlightID: "IB1"}})
	assert.True(t, faulttolerance.IsPermanent(err))

	f.status = http.StatusTooManyRequests
	err = store.Append(context.Background(), []models.MovementEvent{{FlightID: "IB1"}})
	require.Error(t, err)
	assert.False(t, faulttolerance.IsPermanent(err))
}

func TestSheetsConnectFails(t *testing.T) {
	_, err := connectFake(t, &fakeSheet{status: http.StatusNotFound})
	assert.Error(t, err)
}

func headerCells() []interface{} {
	out := make([]interface{}, len(models.Header))
	for i, h := range models.Header {
		out[i] = h
	}
	return out
}
