package internal

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/deckarep/golang-set"
	"github.com/h2non/filetype"
)

// csvTable is a header plus the rows below it.
type csvTable struct {
	header []string
	rows   []Row
}

func newCSVTable() *csvTable {
	header := make([]string, len(dailyColumns))
	copy(header, dailyColumns)
	return &csvTable{header: header}
}

// decompress unwraps gzip input. The second value reports whether it did.
func decompress(reader io.Reader) (io.Reader, bool, error) {
	buffered := bufio.NewReader(reader)

	// we only have to pass the file header = first 261 bytes
	head, err := buffered.Peek(261)
	if err != nil && err != io.EOF {
		return nil, false, err
	}
	if len(head) == 0 {
		return buffered, false, nil
	}

	kind, err := filetype.Match(head)
	if err != nil {
		return nil, false, err
	}

	if kind.MIME.Value == "application/gzip" {
		gz, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, false, err
		}
		return gz, true, nil
	}

	return buffered, false, nil
}

func decodeCSV(reader io.Reader) (*csvTable, error) {
	r := csv.NewReader(reader)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return newCSVTable(), nil
	}
	if err != nil {
		return nil, err
	}

	seen := mapset.NewSet()
	for _, name := range header {
		if !seen.Add(name) {
			return nil, fmt.Errorf("duplicate column: %s", name)
		}
	}

	table := &csvTable{header: header}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		table.rows = append(table.rows, table.row(record))
	}

	return table, nil
}

func (t *csvTable) row(record []string) Row {
	row := make(Row, len(t.header))
	for i, name := range t.header {
		if i < len(record) {
			row[name] = record[i]
		} else {
			row[name] = ""
		}
	}
	return row
}

// record orders the values of row by the header.
func (t *csvTable) record(row Row) ([]string, error) {
	return orderByHeader(t.header, row)
}

// orderByHeader lists the values of row in header order. Columns missing
// from the header are an error, missing values are empty.
func orderByHeader(header []string, row Row) ([]string, error) {
	columns := mapset.NewSet()
	for _, name := range header {
		columns.Add(name)
	}
	for name := range row {
		if !columns.Contains(name) {
			return nil, fmt.Errorf("unknown column: %s", name)
		}
	}

	record := make([]string, len(header))
	for i, name := range header {
		record[i] = row[name]
	}
	return record, nil
}

func (t *csvTable) encode(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.header); err != nil {
		return err
	}
	for _, row := range t.rows {
		record, err := t.record(row)
		if err != nil {
			return err
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// window returns at most limit rows starting at offset.
func window(rows []Row, offset int, limit int) []Row {
	if offset >= len(rows) {
		return []Row{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}
