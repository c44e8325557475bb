package repeat_gpt

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

const (
	DefaultColumn      = "post"
	DefaultMissingText = "nan"
)

type SplitUnit string

const (
	UnitLine     SplitUnit = "line"
	UnitPost     SplitUnit = "post"
	UnitSentence SplitUnit = "sentence"
)

func (unit SplitUnit) Valid() bool {
	switch unit {
	case UnitLine, UnitPost, UnitSentence:
		return true
	}
	return false
}

// naValues are the cell values pandas reads as missing by default. They are
// replaced by the missing text, the way `astype(str)` renders them.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-1.#IND": true,
	"-1.#QNAN": true, "-NaN": true, "-nan": true, "1.#IND": true,
	"1.#QNAN": true, "<NA>": true, "N/A": true, "NA": true, "NULL": true,
	"NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

// ReadPosts
// Reads `column` out of every CSV file in paths, in order. Each file must
// have a header row naming the column.
func ReadPosts(paths []string, column string, missing string) ([]string,
	error) {
	posts := make([]string, 0)
	for _, path := range paths {
		handle, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		log.Print("Reading ", path)
		posts, err = readColumn(handle, column, missing, posts)
		handle.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return posts, nil
}

func readColumn(reader io.Reader, column string, missing string,
	posts []string) ([]string, error) {
	csvReader := csv.NewReader(bufio.NewReaderSize(reader, RUNEBUF_SZ))
	csvReader.LazyQuotes = true
	csvReader.FieldsPerRecord = -1
	csvReader.ReuseRecord = true

	header, err := csvReader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty CSV, no header row")
	} else if err != nil {
		return nil, err
	}
	columns := make([]string, len(header))
	copy(columns, header)
	if len(columns) > 0 {
		columns[0] = strings.TrimPrefix(columns[0], "\ufeff")
	}
	log.Printf("Available columns: %q", columns)

	columnIdx := -1
	for idx, name := range columns {
		if name == column {
			columnIdx = idx
			break
		}
	}
	if columnIdx == -1 {
		return nil, fmt.Errorf("column %q not found, available columns: %q",
			column, columns)
	}

	for {
		record, err := csvReader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}
		if len(record) > len(columns) {
			line, _ := csvReader.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d",
				line, len(columns), len(record))
		}
		if columnIdx >= len(record) || naValues[record[columnIdx]] {
			posts = append(posts, missing)
		} else {
			posts = append(posts, record[columnIdx])
		}
	}
	return posts, nil
}

// SplitUnits
// Breaks posts into the units that are shuffled between train and
// validation. Splitting on lines is equivalent to joining every post with
// a newline and splitting the result on newlines.
func SplitUnits(posts []string, unit SplitUnit) ([]string, error) {
	switch unit {
	case UnitLine:
		units := make([]string, 0, len(posts)*4)
		for _, post := range posts {
			units = append(units, strings.Split(post, "\n")...)
		}
		return units, nil
	case UnitPost:
		units := make([]string, len(posts))
		copy(units, posts)
		return units, nil
	case UnitSentence:
		units := make([]string, 0, len(posts)*4)
		for _, post := range posts {
			sentences, err := SplitSentences(post)
			if err != nil {
				return nil, err
			}
			units = append(units, sentences...)
		}
		return units, nil
	}
	return nil, fmt.Errorf("invalid split unit: %s", unit)
}

// unitsReader streams units in the given order, separated by newlines.
type unitsReader struct {
	units  []string
	order  []int
	pos    int
	curr   string
	offset int
	sep    bool
}

func NewUnitsReader(units []string, order []int) io.Reader {
	return &unitsReader{units: units, order: order}
}

func (r *unitsReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	n := 0
	for n < len(p) {
		if r.sep {
			p[n] = '\n'
			n++
			r.sep = false
		} else if r.offset < len(r.curr) {
			copied := copy(p[n:], r.curr[r.offset:])
			n += copied
			r.offset += copied
		} else if r.pos < len(r.order) {
			r.curr = r.units[r.order[r.pos]]
			r.offset = 0
			r.sep = r.pos > 0
			r.pos++
		} else {
			break
		}
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
