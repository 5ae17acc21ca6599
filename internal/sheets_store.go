package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsStore keeps rows in a worksheet of a Google spreadsheet. The first
// row of the worksheet holds the column names.
type SheetsStore struct {
	id              string
	sheetIndex      int
	credentialsFile string

	service *sheets.Service
	title   string
	header  []string
}

func (s *SheetsStore) Name() string {
	return "sheet"
}

func (s *SheetsStore) Init(url string, opts StoreOptions) error {
	s.id = strings.Trim(strings.TrimPrefix(url, "sheets://"), "/")
	if s.id == "" {
		return errors.New("no spreadsheet specified")
	}
	if opts.Sheet < 0 {
		return fmt.Errorf("invalid sheet index: %d", opts.Sheet)
	}

	s.sheetIndex = opts.Sheet
	s.credentialsFile = opts.CredentialsFile

	return nil
}

// Authenticate logs in with the service account, loads the spreadsheet and
// selects the worksheet by index.
func (s *SheetsStore) Authenticate(ctx context.Context) error {
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	if s.credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(s.credentialsFile))
	}

	service, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return err
	}

	doc, err := service.Spreadsheets.Get(s.id).Context(ctx).Do()
	if err != nil {
		return err
	}
	if s.sheetIndex >= len(doc.Sheets) {
		return fmt.Errorf("spreadsheet %q has %d sheets, no sheet at index %d", doc.Properties.Title, len(doc.Sheets), s.sheetIndex)
	}

	s.service = service
	s.title = doc.Sheets[s.sheetIndex].Properties.Title

	resp, err := service.Spreadsheets.Values.Get(s.id, sheetRange(s.title, 1, 1)).Context(ctx).Do()
	if err != nil {
		return err
	}

	s.header = nil
	if len(resp.Values) > 0 {
		s.header = make([]string, len(resp.Values[0]))
		for i, v := range resp.Values[0] {
			s.header[i] = fmt.Sprint(v)
		}
	}

	return nil
}

// FetchRows reads rows below the header. Offset 0 is the second row of the sheet.
func (s *SheetsStore) FetchRows(ctx context.Context, offset int, limit int) ([]Row, error) {
	first := offset + 2
	resp, err := s.service.Spreadsheets.Values.Get(s.id, sheetRange(s.title, first, first+limit-1)).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(resp.Values))
	for _, values := range resp.Values {
		rows = append(rows, rowFromValues(s.header, values))
	}
	return rows, nil
}

func (s *SheetsStore) AppendRows(ctx context.Context, rows []Row) error {
	if len(s.header) == 0 {
		if err := s.writeHeader(ctx, dailyColumns); err != nil {
			return err
		}
	}

	values := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		v, err := valuesFromRow(s.header, row)
		if err != nil {
			return err
		}
		values = append(values, v)
	}

	_, err := s.service.Spreadsheets.Values.
		Append(s.id, sheetRange(s.title, 1, 1), &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (s *SheetsStore) Close() error {
	return nil
}

func (s *SheetsStore) writeHeader(ctx context.Context, header []string) error {
	values := make([]interface{}, len(header))
	for i, name := range header {
		values[i] = name
	}

	_, err := s.service.Spreadsheets.Values.
		Update(s.id, sheetRange(s.title, 1, 1), &sheets.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	s.header = header
	return nil
}

// helpers

// sheetRange returns the A1 notation for whole rows first to last.
func sheetRange(title string, first int, last int) string {
	return fmt.Sprintf("'%s'!%d:%d", strings.ReplaceAll(title, "'", "''"), first, last)
}

// rowFromValues maps cell values to the header. The API leaves out trailing
// empty cells, which read as empty strings.
func rowFromValues(header []string, values []interface{}) Row {
	row := make(Row, len(header))
	for i, name := range header {
		if i < len(values) && values[i] != nil {
			row[name] = fmt.Sprint(values[i])
		} else {
			row[name] = ""
		}
	}
	return row
}

func valuesFromRow(header []string, row Row) ([]interface{}, error) {
	record, err := orderByHeader(header, row)
	if err != nil {
		return nil, err
	}

	values := make([]interface{}, len(record))
	for i, v := range record {
		values[i] = v
	}
	return values, nil
}
