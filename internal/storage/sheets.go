package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/navid-fn/skywatch/internal/faulttolerance"
	"github.com/navid-fn/skywatch/internal/models"
)

// SheetsConfig locates the worksheet movements are appended to.
type SheetsConfig struct {
	CredentialsFile string
	SpreadsheetID   string
	SheetName       string
	Location        *time.Location

	// ClientOptions replace the credentials file when set.
	ClientOptions []option.ClientOption
}

// SheetsConnector opens a Sheets handle per run, as each run must first
// prove the spreadsheet is reachable.
type SheetsConnector struct {
	cfg  SheetsConfig
	tail *sheetTail
}

// sheetTail remembers the last used row between runs so a read only scans
// the whole of column A once per process.
type sheetTail struct {
	mu   sync.Mutex
	last int
}

func (t *sheetTail) get() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *sheetTail) set(last int) {
	t.mu.Lock()
	t.last = last
	t.mu.Unlock()
}

func NewSheetsConnector(cfg SheetsConfig) *SheetsConnector {
	if cfg.SheetName == "" {
		cfg.SheetName = "Sheet1"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &SheetsConnector{cfg: cfg, tail: &sheetTail{}}
}

func (c *SheetsConnector) Connect(ctx context.Context) (EventStore, error) {
	opts := c.cfg.ClientOptions
	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsFile(c.cfg.CredentialsFile),
			option.WithScopes(sheets.SpreadsheetsScope),
		}
	}

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	if _, err := svc.Spreadsheets.Get(c.cfg.SpreadsheetID).Fields("spreadsheetId").Context(ctx).Do(); err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", c.cfg.SpreadsheetID, err)
	}
	return &Sheets{svc: svc, cfg: c.cfg, tail: c.tail}, nil
}

func (c *SheetsConnector) Ping(ctx context.Context) error {
	_, err := c.Connect(ctx)
	return err
}

// Sheets stores one movement per worksheet row, under a header row.
type Sheets struct {
	svc  *sheets.Service
	cfg  SheetsConfig
	tail *sheetTail
}

// a1 builds an A1 range on the configured sheet, quoting the sheet name.
func (s *Sheets) a1(cells string) string {
	return "'" + strings.ReplaceAll(s.cfg.SheetName, "'", "''") + "'!" + cells
}

// ReadRecent reads the last w.Rows data rows. A header row, if present, is
// never returned. Sheets cannot filter on capture time so Since is ignored.
func (s *Sheets) ReadRecent(ctx context.Context, w Window) ([]models.Row, error) {
	last, cached, err := s.lastRow(ctx)
	if err != nil {
		return nil, err
	}
	if last == 0 {
		return nil, nil
	}

	first := 1
	if w.Rows > 0 && last-w.Rows+1 > first {
		first = last - w.Rows + 1
	}

	// open-ended, so rows other writers appended since last is known are read too
	cells := fmt.Sprintf("A%d:%c", first, 'A'+models.RowWidth-1)
	vr, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.a1(cells)).Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	values := vr.Values
	if len(values) == 0 {
		if cached {
			// rows were deleted under us
			s.tail.set(0)
			return s.ReadRecent(ctx, w)
		}
		return nil, nil
	}
	s.tail.set(first + len(values) - 1)

	if w.Rows > 0 && len(values) > w.Rows {
		values = values[len(values)-w.Rows:]
	}

	rows := make([]models.Row, 0, len(values))
	for _, cells := range values {
		row := make(models.Row, len(cells))
		for i, v := range cells {
			row[i] = fmt.Sprint(v)
		}
		if isHeader(row) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// lastRow returns the last used row, scanning column A only when no earlier
// read or append of this process recorded it.
func (s *Sheets) lastRow(ctx context.Context) (int, bool, error) {
	if last := s.tail.get(); last > 0 {
		return last, true, nil
	}
	col, err := s.svc.Spreadsheets.Values.Get(s.cfg.SpreadsheetID, s.a1("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, false, classify(err)
	}
	return len(col.Values), false, nil
}

func isHeader(row models.Row) bool {
	return len(row) > models.ColSignature && row[models.ColCaptureTime] == models.Header[models.ColCaptureTime] &&
		row[models.ColSignature] == models.Header[models.ColSignature]
}

// Append writes all events in one values.append call.
func (s *Sheets) Append(ctx context.Context, events []models.MovementEvent) error {
	if len(events) == 0 {
		return nil
	}

	values := make([][]interface{}, 0, len(events))
	for _, e := range events {
		row := e.Row(s.cfg.Location)
		cells := make([]interface{}, len(row))
		for i, v := range row {
			cells[i] = v
		}
		cells[models.ColDelayMinutes] = e.DelayMinutes
		values = append(values, cells)
	}

	resp, err := s.svc.Spreadsheets.Values.Append(s.cfg.SpreadsheetID, s.a1("A1"), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err)
	}
	if resp.Updates != nil {
		if last := endRow(resp.Updates.UpdatedRange); last > 0 {
			s.tail.set(last)
		}
	}
	return nil
}

// endRow returns the last row number of an A1 range such as
// "'Sheet1'!A12:N13", or 0 when it has none.
func endRow(a1 string) int {
	if i := strings.LastIndexAny(a1, "!:"); i >= 0 {
		a1 = a1[i+1:]
	}
	digits := strings.TrimLeftFunc(a1, unicode.IsLetter)
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// classify marks client errors other than rate limiting as permanent.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code >= 400 && gerr.Code < 500 && gerr.Code != http.StatusTooManyRequests {
		return faulttolerance.Permanent(fmt.Errorf("sheets %d: %w", gerr.Code, err))
	}
	return fmt.Errorf("sheets: %w", err)
}
