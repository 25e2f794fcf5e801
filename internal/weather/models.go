package weather

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kmaweather/kmaweather/internal/station"
)

// Weather errors.
var (
	ErrEmptyLocation = errors.New("location is required")
)

// Caller-visible error messages.
const (
	MsgDirectoryFailed   = "failed to load station codes"
	MsgObservationFailed = "Failed to fetch weather data"
	MsgInternal          = "internal error"
)

// State is a step of a single weather request.
type State string

const (
	StateStart               State = "START"
	StateDirectoryLoading    State = "DIRECTORY_LOADING"
	StateDirectoryFailed     State = "DIRECTORY_FAILED"
	StateDirectoryLoaded     State = "DIRECTORY_LOADED"
	StateStationFound        State = "STATION_FOUND"
	StateStationNotFound     State = "STATION_NOT_FOUND"
	StateObservationFetching State = "OBSERVATION_FETCHING"
	StateObservationOK       State = "OBSERVATION_OK"
	StateObservationFailed   State = "OBSERVATION_FAILED"
)

// Method describes how a location was matched to a station.
type Method string

const (
	MethodLocalName   Method = "local_name"
	MethodEnglishName Method = "english_name"
	MethodNearest     Method = "nearest"
)

// Resolution is the station chosen for a location.
type Resolution struct {
	Location string
	Station  station.Record
	Method   Method

	// DistanceMeters is set for MethodNearest.
	DistanceMeters float64
}

// Observation is the upstream observation payload for a resolved station.
type Observation struct {
	Resolution

	// Payload is the upstream response body, unmodified.
	Payload json.RawMessage
}

// StationNotFoundError is returned when a location matches no station.
type StationNotFoundError struct {
	Location string
}

func (e *StationNotFoundError) Error() string {
	return fmt.Sprintf("no station code found for '%s'", e.Location)
}

// ObservationFetchError is returned when the observation request fails.
// The status and body are kept for logs; callers only see MsgObservationFailed.
type ObservationFetchError struct {
	StationID  int
	StatusCode int
	Body       string
	Err        error
}

func (e *ObservationFetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching observation for station %d: unexpected status code: %d", e.StationID, e.StatusCode)
	}
	return fmt.Sprintf("fetching observation for station %d: %v", e.StationID, e.Err)
}

func (e *ObservationFetchError) Unwrap() error {
	return e.Err
}

// Result is the value handed back to a tool caller: either the observation
// payload or an error message, never both.
type Result struct {
	Payload json.RawMessage
	Error   string
}

// IsError reports whether the result carries an error.
func (r Result) IsError() bool {
	return r.Error != ""
}

// MarshalJSON emits the payload unchanged, or {"error": message}.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.IsError() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	if len(r.Payload) == 0 {
		return []byte("null"), nil
	}
	return r.Payload, nil
}

// ErrorMessage maps an error to the message shown to tool callers.
func ErrorMessage(err error) string {
	var (
		fetchErr    *station.FetchError
		parseErr    *station.ParseError
		notFoundErr *StationNotFoundError
		obsErr      *ObservationFetchError
	)

	switch {
	case errors.As(err, &fetchErr), errors.As(err, &parseErr):
		return MsgDirectoryFailed
	case errors.As(err, &notFoundErr):
		return notFoundErr.Error()
	case errors.Is(err, ErrEmptyLocation):
		return ErrEmptyLocation.Error()
	case errors.As(err, &obsErr):
		return MsgObservationFailed
	default:
		return MsgInternal
	}
}
