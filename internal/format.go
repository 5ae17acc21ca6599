package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/fatih/color"
)

// Formatter defines the interface used to deliver results to the end user.
type Formatter interface {
	// PrintResult is called after each daily check.
	PrintResult(result Result) error

	// PrintRows is called with the rows read from the store and the columns to show.
	PrintRows(rows []Row, columns []string, rowKind string) error

	// PrintMatch is called with the outcome of a key lookup.
	PrintMatch(key string, column string, row Row, found bool) error

	// Flush is called when the formatter should finish outputing any data it
	// may have buffered.
	Flush() error
}

// FormatterFactory
type FormatterFactory func(io.Writer) Formatter

// Formatters holds available formatters
var Formatters = map[string]FormatterFactory{
	"text": NewTextFormatter,
	"json": NewJSONFormatter,
}

// FormatterNames lists the valid --format values.
func FormatterNames() []string {
	names := make([]string, 0, len(Formatters))
	for name := range Formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TextFormatter prints the result as human readable text.
type TextFormatter struct {
	io.Writer
}

func NewTextFormatter(out io.Writer) Formatter {
	return TextFormatter{
		Writer: out,
	}
}

func (f TextFormatter) PrintResult(result Result) error {
	yellow := color.New(color.FgYellow).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()

	var err error
	switch result.Status {
	case StatusSkipped:
		_, err = fmt.Fprintf(f.Writer, "%s already synced today\n", yellow(result.Key.String()+":"))
	case StatusExists:
		_, err = fmt.Fprintf(f.Writer, "%s already in the store\n", yellow(result.Key.String()+":"))
	case StatusAppended:
		_, err = fmt.Fprintf(f.Writer, "%s recorded total of %s for day %s\n", green(result.Key.String()+":"), pluralize(int(result.Total), "key"), result.Row.Day())
	}
	return err
}

func (f TextFormatter) PrintRows(rows []Row, columns []string, rowKind string) error {
	fmt.Fprintf(f.Writer, "Found %s\n\n", pluralize(len(rows), rowKind))
	if len(rows) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(f.Writer, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range rows {
		values := make([]string, len(columns))
		for i, name := range columns {
			values[i] = space.ReplaceAllString(row[name], " ")
		}
		fmt.Fprintln(w, strings.Join(values, "\t"))
	}
	return w.Flush()
}

func (f TextFormatter) PrintMatch(key string, column string, row Row, found bool) error {
	if !found {
		_, err := fmt.Fprintf(f.Writer, "No row with %s = %s\n", column, key)
		return err
	}

	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(f.Writer, "%s found\n", green(column+" = "+key+":"))
	for _, name := range rowColumns([]Row{row}) {
		fmt.Fprintf(f.Writer, "    %s: %s\n", name, row[name])
	}
	return nil
}

func (f TextFormatter) Flush() error {
	return nil
}

// JSONFormatter buffers entries and writes them as one JSON array on Flush.
type JSONFormatter struct {
	sync.Mutex

	entries []interface{}
	encoder *json.Encoder
}

func NewJSONFormatter(out io.Writer) Formatter {
	return &JSONFormatter{
		entries: make([]interface{}, 0),
		encoder: json.NewEncoder(out),
	}
}

type jsonMatch struct {
	Key    string `json:"key"`
	Column string `json:"column"`
	Found  bool   `json:"found"`
	Row    Row    `json:"row,omitempty"`
}

func (f *JSONFormatter) PrintResult(result Result) error {
	f.Lock()
	defer f.Unlock()

	f.entries = append(f.entries, result)
	return nil
}

func (f *JSONFormatter) PrintRows(rows []Row, columns []string, rowKind string) error {
	f.Lock()
	defer f.Unlock()

	for _, row := range rows {
		entry := make(Row, len(columns))
		for _, name := range columns {
			entry[name] = row[name]
		}
		f.entries = append(f.entries, entry)
	}
	return nil
}

func (f *JSONFormatter) PrintMatch(key string, column string, row Row, found bool) error {
	f.Lock()
	defer f.Unlock()

	f.entries = append(f.entries, jsonMatch{Key: key, Column: column, Found: found, Row: row})
	return nil
}

func (f *JSONFormatter) Flush() error {
	f.Lock()
	defer f.Unlock()

	err := f.encoder.Encode(&f.entries)
	f.entries = make([]interface{}, 0)
	return err
}
