// Package ledger keeps the applicant spreadsheet in Google Sheets up to date.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"arc-onboarding/internal/metrics"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// Columns are 1-based column indexes of the first worksheet.
type Columns struct {
	Email  int
	Status int
}

// Sheets is the applicant ledger. New rows use the layout
// [timestamp, email, telegram username, telegram user id, status].
type Sheets struct {
	sheets  *sheets.Service
	drive   *drive.Service
	name    string
	columns Columns
	now     func() time.Time

	mu            sync.Mutex
	spreadsheetID string
	sheetTitle    string
}

// New authenticates with a service-account credentials blob.
func New(ctx context.Context, credentialsJSON []byte, name string, columns Columns) (*Sheets, error) {
	creds := option.WithCredentialsJSON(credentialsJSON)
	sheetsSvc, err := sheets.NewService(ctx, creds, option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, creds, option.WithScopes(drive.DriveReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("drive service: %w", err)
	}
	return NewWithServices(sheetsSvc, driveSvc, name, columns), nil
}

func NewWithServices(sheetsSvc *sheets.Service, driveSvc *drive.Service, name string, columns Columns) *Sheets {
	if columns.Email < 1 {
		columns.Email = 2
	}
	if columns.Status < 1 {
		columns.Status = 5
	}
	return &Sheets{
		sheets:  sheetsSvc,
		drive:   driveSvc,
		name:    name,
		columns: columns,
		now:     time.Now,
	}
}

// FindByEmail returns the 1-based row holding email in the email column.
func (s *Sheets) FindByEmail(ctx context.Context, email string) (row int, found bool, err error) {
	defer func() { metrics.ObserveLedger("find", err) }()

	id, title, err := s.resolve(ctx)
	if err != nil {
		return 0, false, err
	}
	col := columnLetter(s.columns.Email)
	resp, err := s.sheets.Spreadsheets.Values.Get(id, fmt.Sprintf("%s!%s:%s", quoteSheet(title), col, col)).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read email column: %w", err)
	}
	row, found = findRow(resp.Values, email)
	return row, found, nil
}

// CreateRow appends a new applicant row and returns its 1-based index.
func (s *Sheets) CreateRow(ctx context.Context, email, username string, userID int64) (row int, err error) {
	defer func() { metrics.ObserveLedger("create", err) }()

	id, title, err := s.resolve(ctx)
	if err != nil {
		return 0, err
	}
	values := &sheets.ValueRange{Values: [][]interface{}{{
		s.now().UTC().Format("2006-01-02 15:04:05"),
		email,
		username,
		strconv.FormatInt(userID, 10),
		"New",
	}}}
	resp, err := s.sheets.Spreadsheets.Values.Append(id, quoteSheet(title)+"!A1", values).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("append row: %w", err)
	}
	if resp.Updates == nil {
		return 0, errors.New("append row: no update range in response")
	}
	return rowFromRange(resp.Updates.UpdatedRange)
}

// UpdateStatus writes status into the status column of row.
func (s *Sheets) UpdateStatus(ctx context.Context, row int, status string) (err error) {
	defer func() { metrics.ObserveLedger("update_status", err) }()

	if row < 1 {
		return fmt.Errorf("invalid ledger row %d", row)
	}
	id, title, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	cell := fmt.Sprintf("%s!%s%d", quoteSheet(title), columnLetter(s.columns.Status), row)
	_, err = s.sheets.Spreadsheets.Values.Update(id, cell, &sheets.ValueRange{Values: [][]interface{}{{status}}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	return nil
}

// resolve finds the spreadsheet by name and its first worksheet. The result is cached once
// a lookup succeeds; lookups themselves run without holding the lock.
func (s *Sheets) resolve(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	id, title := s.spreadsheetID, s.sheetTitle
	s.mu.Unlock()
	if id != "" {
		return id, title, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(s.name), spreadsheetMimeType)
	files, err := s.drive.Files.List().Q(q).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("look up spreadsheet %q: %w", s.name, err)
	}
	if len(files.Files) == 0 {
		return "", "", fmt.Errorf("%w: %q", ErrSpreadsheetNotFound, s.name)
	}
	id = files.Files[0].Id

	ss, err := s.sheets.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("open spreadsheet %q: %w", s.name, err)
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "", "", fmt.Errorf("spreadsheet %q has no worksheets", s.name)
	}
	title = ss.Sheets[0].Properties.Title

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spreadsheetID == "" {
		s.spreadsheetID, s.sheetTitle = id, title
	}
	return s.spreadsheetID, s.sheetTitle, nil
}

func findRow(values [][]interface{}, email string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(email))
	if want == "" {
		return 0, false
	}
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.ToLower(strings.TrimSpace(fmt.Sprint(row[0]))) == want {
			return i + 1, true
		}
	}
	return 0, false
}

var rangeRowRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowFromRange extracts the first row number from an A1 range such as 'Sheet1'!A7:E7.
func rowFromRange(a1 string) (int, error) {
	m := rangeRowRe.FindStringSubmatch(a1)
	if m == nil {
		return 0, fmt.Errorf("no row in range %q", a1)
	}
	return strconv.Atoi(m[1])
}

// columnLetter converts a 1-based index to A1 notation (1 -> A, 27 -> AA).
func columnLetter(n int) string {
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}
