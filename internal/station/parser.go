package station

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"
)

// maxLineSize bounds a single directory line.
const maxLineSize = 64 * 1024

// ParseResult holds the rows parsed from a station directory document.
type ParseResult struct {
	// Records are the parsed rows in document order.
	Records []Record

	// Skipped lists candidate rows with fewer than FieldCount columns.
	Skipped []SkippedRow

	// Terminated reports whether the end marker was seen.
	Terminated bool
}

// ParseDirectory parses a decoded station directory document.
//
// Only lines between StartMarker and EndMarker are candidate rows. Blank lines
// and lines starting with '#' inside that region are ignored. When the end
// marker is missing every line after the start marker is a candidate.
//
// Short rows are skipped and reported in ParseResult.Skipped. A row whose ID
// column is not an integer fails the whole parse.
func ParseDirectory(r io.Reader) (*ParseResult, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	result := &ParseResult{}
	started := false
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if !started {
			if strings.HasPrefix(line, StartMarker) {
				started = true
			}
			continue
		}

		if strings.HasPrefix(line, EndMarker) {
			result.Terminated = true
			break
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := splitFields(line, FieldCount)
		if len(fields) < FieldCount {
			result.Skipped = append(result.Skipped, SkippedRow{
				Line:   lineNo,
				Reason: fmt.Sprintf("expected %d fields, got %d", FieldCount, len(fields)),
			})
			continue
		}

		record, err := parseRecord(fields)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Reason: "invalid station id", Err: err}
		}
		result.Records = append(result.Records, record)
	}

	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Line: lineNo + 1, Reason: "reading line", Err: err}
	}

	if !started {
		return result, &ParseError{Err: ErrMissingStartMarker}
	}

	return result, nil
}

// parseRecord converts FieldCount columns into a Record.
func parseRecord(fields []string) (Record, error) {
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		ID:                id,
		StationType:       fields[3],
		Height:            fields[4],
		PressureHeight:    fields[5],
		TemperatureHeight: fields[6],
		WindHeight:        fields[7],
		RainHeight:        fields[8],
		AltCode:           fields[9],
		NameLocal:         fields[10],
		NameEN:            fields[11],
		ForecastID:        fields[12],
		LawID:             fields[13],
		Basin:             fields[14],
	}

	lon, lonErr := strconv.ParseFloat(fields[1], 64)
	lat, latErr := strconv.ParseFloat(fields[2], 64)
	if lonErr == nil && latErr == nil && validCoordinates(lat, lon) {
		rec.Lon = lon
		rec.Lat = lat
		rec.HasLocation = true
	}

	return rec, nil
}

// splitFields splits s on whitespace into at most n fields. The last field
// holds the remainder of s with its internal whitespace intact.
func splitFields(s string, n int) []string {
	fields := make([]string, 0, n)
	for len(fields) < n-1 {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
		if s == "" {
			return fields
		}
		end := strings.IndexFunc(s, unicode.IsSpace)
		if end < 0 {
			return append(fields, s)
		}
		fields = append(fields, s[:end])
		s = s[end:]
	}

	if rest := strings.TrimSpace(s); rest != "" {
		fields = append(fields, rest)
	}
	return fields
}
