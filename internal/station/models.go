// Package station parses the KMA surface station directory and resolves
// station names and coordinates to station identifiers.
package station

import (
	"errors"
	"fmt"
)

// Framing markers of the station directory document.
const (
	StartMarker = "#START7777"
	EndMarker   = "#7777END"
)

// FieldCount is the number of whitespace-delimited columns in a directory row.
const FieldCount = 15

// Station errors.
var (
	ErrMissingStartMarker = errors.New("station directory start marker not found")
	ErrInvalidEncoding    = errors.New("station directory is not valid EUC-KR")
)

// Record is one row of the station directory.
type Record struct {
	// ID is the station identifier used by the observation API.
	ID int

	// Location in WGS84 degrees. HasLocation is false when either
	// coordinate column could not be parsed.
	Lon         float64
	Lat         float64
	HasLocation bool

	// StationType is the STN_SP column.
	StationType string

	// Heights are kept as raw column text.
	Height            string
	PressureHeight    string
	TemperatureHeight string
	WindHeight        string
	RainHeight        string

	// AltCode is the STN column.
	AltCode string

	// NameLocal is the Korean station name, the primary lookup key.
	NameLocal string
	NameEN    string

	ForecastID string
	LawID      string
	Basin      string
}

// SkippedRow describes a directory row that was not turned into a Record.
type SkippedRow struct {
	Line   int
	Reason string
}

// FetchError is returned when the station directory request does not complete
// or the endpoint answers with a non-2xx status.
type FetchError struct {
	// StatusCode is the upstream status, 0 when no response was received.
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching station directory: unexpected status code: %d", e.StatusCode)
	}
	return fmt.Sprintf("fetching station directory: %v", e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the station directory body cannot be parsed.
type ParseError struct {
	// Line is the 1-based line number of the offending row, 0 for document-level errors.
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := "parsing station directory"
	if e.Line > 0 {
		msg = fmt.Sprintf("%s: line %d", msg, e.Line)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
