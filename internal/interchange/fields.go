package interchange

import "strings"

const (
	delimiter = ','
	quote     = '"'
)

// fieldState is the quoting state of the record scanner.
type fieldState int

const (
	// stateOutside: not inside a quoted run. Delimiters split fields and line
	// breaks end the record.
	stateOutside fieldState = iota
	// stateInside: inside a quoted run. Everything is literal except a quote.
	stateInside
	// stateQuoteInInside: a quote was seen inside a quoted run. A second quote
	// makes it a literal quote; anything else closes the run.
	stateQuoteInInside
)

// Record is one logical row of a line-oriented file. A row spans several
// physical lines when a quoted field contains line breaks.
type Record struct {
	// Raw is the row text without its terminating line break.
	Raw string
	// Fields are the unquoted field values.
	Fields []string
	// Line is the 1-based physical line the row starts on.
	Line int
}

// Blank reports whether the row holds nothing but whitespace.
func (r Record) Blank() bool {
	return strings.TrimSpace(r.Raw) == ""
}

// Field returns field i, or "" when the row is shorter.
func (r Record) Field(i int) string {
	if i < len(r.Fields) {
		return r.Fields[i]
	}
	return ""
}

type recordScanner struct {
	state fieldState
	// fresh is set while nothing has been read for the current field.
	fresh   bool
	field   strings.Builder
	raw     strings.Builder
	fields  []string
	line    int
	start   int
	records []Record
}

// ScanRecords splits text into rows, honouring quoted fields.
//
// A quote opens a quoted run only as the first byte of a field. Inside the
// run delimiters and line breaks are literal and a doubled quote is a literal
// quote. A quote anywhere else in a field is kept as text, so a stray quote
// cannot swallow the rows after it. CRLF line endings outside quotes are
// treated as LF. An unterminated quoted run goes to the end of the input.
func ScanRecords(text string) []Record {
	s := &recordScanner{line: 1, start: 1, fresh: true}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c == '\r' && s.state != stateInside && i+1 < len(text) && text[i+1] == '\n' {
			continue
		}
		s.step(c)
	}
	if s.raw.Len() > 0 || len(s.fields) > 0 || s.state == stateInside {
		s.endRecord()
	}
	return s.records
}

// SplitRecord splits a single row into fields. If line holds more than one
// row only the first is returned.
func SplitRecord(line string) []string {
	records := ScanRecords(line)
	if len(records) == 0 {
		return []string{""}
	}
	return records[0].Fields
}

func (s *recordScanner) step(c byte) {
	switch s.state {
	case stateInside:
		s.raw.WriteByte(c)
		if c == quote {
			s.state = stateQuoteInInside
			return
		}
		if c == '\n' {
			s.line++
		}
		s.field.WriteByte(c)

	case stateQuoteInInside:
		if c == quote {
			s.raw.WriteByte(c)
			s.field.WriteByte(quote)
			s.state = stateInside
			return
		}
		s.state = stateOutside
		s.outside(c)

	default:
		s.outside(c)
	}
}

func (s *recordScanner) outside(c byte) {
	switch c {
	case '\n':
		s.endRecord()
		s.line++
		s.start = s.line
	case delimiter:
		s.raw.WriteByte(c)
		s.endField()
	case quote:
		s.raw.WriteByte(c)
		if s.fresh {
			s.fresh = false
			s.state = stateInside
			return
		}
		s.field.WriteByte(c)
	default:
		s.raw.WriteByte(c)
		s.field.WriteByte(c)
		s.fresh = false
	}
}

func (s *recordScanner) endField() {
	s.fields = append(s.fields, s.field.String())
	s.field.Reset()
	s.fresh = true
}

func (s *recordScanner) endRecord() {
	s.endField()
	s.records = append(s.records, Record{
		Raw:    s.raw.String(),
		Fields: s.fields,
		Line:   s.start,
	})
	s.raw.Reset()
	s.fields = nil
	s.state = stateOutside
}

// needsQuoting reports whether a value must be quoted to survive a round trip.
func needsQuoting(v string) bool {
	return strings.ContainsAny(v, ",\"\n\r")
}

// QuoteField returns v ready to be written as one field.
func QuoteField(v string) string {
	if !needsQuoting(v) {
		return v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// JoinRecord quotes and joins fields into one row (without a line break).
func JoinRecord(fields ...string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = QuoteField(f)
	}
	return strings.Join(quoted, string(delimiter))
}
