package durations

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// MaxLineSize bounds a single table line
const MaxLineSize = 1 << 20

var (
	// ErrMalformedLine means a line did not split into basename and duration
	ErrMalformedLine = errors.New("malformed line")
	// ErrInvalidDuration means the duration field is not a usable number of seconds
	ErrInvalidDuration = errors.New("invalid duration")
)

// Entry is one row of the duration table
type Entry struct {
	Basename string
	Duration float64 // seconds
}

// Load reads the TSV file at path
func Load(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open duration file: %w", err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

// Parse reads basename<TAB>seconds records in file order.
// The first bad line aborts the whole table.
func Parse(r io.Reader) ([]Entry, error) {
	var entries []Entry

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++

		entry, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read duration file: %w", err)
	}

	return entries, nil
}

func parseLine(line string) (Entry, error) {
	fields := strings.Split(strings.TrimSpace(line), "\t")
	if len(fields) != 2 {
		return Entry{}, fmt.Errorf("%w: expected 2 tab separated fields, got %d", ErrMalformedLine, len(fields))
	}

	dur, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidDuration, fields[1])
	}
	if math.IsNaN(dur) || math.IsInf(dur, 0) || dur < 0 {
		return Entry{}, fmt.Errorf("%w: %q must be a finite, non-negative number of seconds", ErrInvalidDuration, fields[1])
	}

	return Entry{Basename: fields[0], Duration: dur}, nil
}
