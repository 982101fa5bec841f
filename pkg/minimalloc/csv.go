// Package minimalloc problem and solution serialization.
//
// Problems travel as record-oriented CSV with the header
//
//	id,lower,upper,size[,alignment][,gaps][,offset]
//
// and one record per buffer. The optional columns may be omitted but keep
// their relative order when present. The gaps column holds a
// semicolon-separated list of lo-hi pairs (half-open, non-negative); blank
// gap and offset cells mean "none". The capacity is not part of the file;
// it is supplied by the caller. The core solver does not depend on this
// format and consumes structured Problem values only.
package minimalloc

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Column names of the record format.
const (
	colID        = "id"
	colLower     = "lower"
	colUpper     = "upper"
	colSize      = "size"
	colAlignment = "alignment"
	colGaps      = "gaps"
	colOffset    = "offset"
)

// ReadProblem parses a problem from CSV. The returned problem carries the
// given capacity. The header row is mandatory; its first four columns must
// be id, lower, upper, size, optionally followed by alignment, gaps and
// offset in that order.
func ReadProblem(r io.Reader, capacity Capacity) (*Problem, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading problem csv")
	}
	if len(records) == 0 {
		return nil, errors.New("problem csv is empty")
	}
	columns, err := parseHeader(records[0])
	if err != nil {
		return nil, err
	}

	p := &Problem{Capacity: capacity, Buffers: make([]Buffer, 0, len(records)-1)}
	for i, record := range records[1:] {
		if len(record) != len(columns) {
			return nil, errors.Errorf("record %d: got %d fields, want %d", i+1, len(record), len(columns))
		}
		b := Buffer{Alignment: 1}
		for c, cell := range record {
			if err := parseCell(&b, columns[c], cell); err != nil {
				return nil, errors.Wrapf(err, "record %d (%s)", i+1, columns[c])
			}
		}
		p.Buffers = append(p.Buffers, b)
	}
	return p, nil
}

// parseHeader validates the header row and returns its column names.
func parseHeader(header []string) ([]string, error) {
	required := []string{colID, colLower, colUpper, colSize}
	optional := []string{colAlignment, colGaps, colOffset}
	if len(header) < len(required) {
		return nil, errors.Errorf("header has %d columns, want at least %d", len(header), len(required))
	}
	columns := make([]string, 0, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.ToLower(name))
		if i < len(required) {
			if name != required[i] {
				return nil, errors.Errorf("header column %d is %q, want %q", i, name, required[i])
			}
			columns = append(columns, name)
			continue
		}
		// Optional columns keep their relative order; skip over any that
		// were omitted.
		for len(optional) > 0 && optional[0] != name {
			optional = optional[1:]
		}
		if len(optional) == 0 {
			return nil, errors.Errorf("unexpected header column %q", name)
		}
		columns = append(columns, name)
		optional = optional[1:]
	}
	return columns, nil
}

// parseCell decodes one field of a buffer record.
func parseCell(b *Buffer, column, cell string) error {
	cell = strings.TrimSpace(cell)
	switch column {
	case colID:
		if cell == "" {
			return errors.New("empty id")
		}
		b.ID = cell
	case colLower:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing lower")
		}
		b.Lifespan.Lower = v
	case colUpper:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing upper")
		}
		b.Lifespan.Upper = v
	case colSize:
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing size")
		}
		b.Size = v
	case colAlignment:
		if cell == "" {
			return nil
		}
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing alignment")
		}
		b.Alignment = v
	case colGaps:
		gaps, err := parseGaps(cell)
		if err != nil {
			return err
		}
		b.Gaps = gaps
	case colOffset:
		if cell == "" {
			return nil
		}
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return errors.Wrap(err, "parsing offset")
		}
		b.Offset = &v
	}
	return nil
}

// parseGaps decodes a semicolon-separated list of lo-hi pairs.
func parseGaps(cell string) ([]Gap, error) {
	if cell == "" {
		return nil, nil
	}
	parts := strings.Split(cell, ";")
	gaps := make([]Gap, 0, len(parts))
	for _, part := range parts {
		lo, hi, found := strings.Cut(strings.TrimSpace(part), "-")
		if !found {
			return nil, errors.Errorf("gap %q is not a lo-hi pair", part)
		}
		lower, err := strconv.ParseInt(lo, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing gap %q", part)
		}
		upper, err := strconv.ParseInt(hi, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing gap %q", part)
		}
		gaps = append(gaps, Gap{Lifespan: Lifespan{Lower: lower, Upper: upper}})
	}
	return gaps, nil
}

// WriteProblem encodes the problem as CSV. The alignment, gaps and offset
// columns are emitted only when some buffer needs them.
func WriteProblem(w io.Writer, p *Problem) error {
	return write(w, p, nil)
}

// WriteSolution encodes the problem with the solution's offsets in the
// offset column. The solution must have one offset per buffer.
func WriteSolution(w io.Writer, p *Problem, s *Solution) error {
	if len(s.Offsets) != len(p.Buffers) {
		return errors.Errorf("solution has %d offsets for %d buffers", len(s.Offsets), len(p.Buffers))
	}
	return write(w, p, s)
}

func write(w io.Writer, p *Problem, s *Solution) error {
	var withAlignment, withGaps, withOffset bool
	for i := range p.Buffers {
		withAlignment = withAlignment || p.Buffers[i].Alignment > 1
		withGaps = withGaps || len(p.Buffers[i].Gaps) > 0
		withOffset = withOffset || p.Buffers[i].Offset != nil
	}
	withOffset = withOffset || s != nil

	header := []string{colID, colLower, colUpper, colSize}
	if withAlignment {
		header = append(header, colAlignment)
	}
	if withGaps {
		header = append(header, colGaps)
	}
	if withOffset {
		header = append(header, colOffset)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return errors.Wrap(err, "writing problem csv")
	}
	for i := range p.Buffers {
		b := &p.Buffers[i]
		record := []string{
			b.ID,
			strconv.FormatInt(b.Lifespan.Lower, 10),
			strconv.FormatInt(b.Lifespan.Upper, 10),
			strconv.FormatInt(b.Size, 10),
		}
		if withAlignment {
			record = append(record, strconv.FormatInt(b.Alignment, 10))
		}
		if withGaps {
			record = append(record, formatGaps(b.Gaps))
		}
		if withOffset {
			switch {
			case s != nil:
				record = append(record, strconv.FormatInt(s.Offsets[i], 10))
			case b.Offset != nil:
				record = append(record, strconv.FormatInt(*b.Offset, 10))
			default:
				record = append(record, "")
			}
		}
		if err := writer.Write(record); err != nil {
			return errors.Wrap(err, "writing problem csv")
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "writing problem csv")
}

// formatGaps renders gaps as a semicolon-separated list of lo-hi pairs.
func formatGaps(gaps []Gap) string {
	parts := make([]string, len(gaps))
	for i, g := range gaps {
		parts[i] = strconv.FormatInt(g.Lifespan.Lower, 10) + "-" + strconv.FormatInt(g.Lifespan.Upper, 10)
	}
	return strings.Join(parts, ";")
}
