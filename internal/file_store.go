package internal

import (
	"context"
	"encoding/csv"
	"errors"
	"io/fs"
	"os"
	"strings"
)

// FileStore keeps rows in a local CSV file with a header line.
type FileStore struct {
	path   string
	header []string
}

func (s *FileStore) Name() string {
	return "file"
}

func (s *FileStore) Init(url string, opts StoreOptions) error {
	s.path = strings.TrimPrefix(url, "file://")
	if s.path == "" {
		return errors.New("no file specified")
	}
	return nil
}

// Authenticate writes the daily columns to a missing or empty file and
// loads its header.
func (s *FileStore) Authenticate(ctx context.Context) error {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && info.Size() == 0) {
		table := newCSVTable()
		if err := s.write(table); err != nil {
			return err
		}
		s.header = table.header
		return nil
	}
	if err != nil {
		return err
	}

	table, _, err := s.read()
	if err != nil {
		return err
	}
	s.header = table.header
	return nil
}

func (s *FileStore) FetchRows(ctx context.Context, offset int, limit int) ([]Row, error) {
	table, _, err := s.read()
	if err != nil {
		return nil, err
	}
	return window(table.rows, offset, limit), nil
}

func (s *FileStore) AppendRows(ctx context.Context, rows []Row) error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	_, gzipped, err := decompress(f)
	f.Close()
	if err != nil {
		return err
	}
	if gzipped {
		return errors.New("cannot append to a compressed file")
	}

	table := &csvTable{header: s.header}
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record, err := table.record(row)
		if err != nil {
			return err
		}
		records = append(records, record)
	}

	out, err := os.OpenFile(s.path, os.O_APPEND|os.O_RDWR, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	// exports often end without a newline
	terminated, err := endsWithNewline(out)
	if err != nil {
		return err
	}
	if !terminated {
		if _, err := out.Write([]byte("\n")); err != nil {
			return err
		}
	}

	writer := csv.NewWriter(out)
	if err := writer.WriteAll(records); err != nil {
		return err
	}
	return out.Sync()
}

func endsWithNewline(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return true, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] == '\n', nil
}

func (s *FileStore) Close() error {
	return nil
}

func (s *FileStore) read() (*csvTable, bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	reader, gzipped, err := decompress(f)
	if err != nil {
		return nil, false, err
	}

	table, err := decodeCSV(reader)
	if err != nil {
		return nil, false, err
	}
	return table, gzipped, nil
}

func (s *FileStore) write(table *csvTable) error {
	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	return table.encode(f)
}
