// Package weather resolves a place name to a KMA station and fetches the
// station's current observations.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kmaweather/kmaweather/internal/station"
)

const tracerName = "github.com/kmaweather/kmaweather/internal/weather"

// DirectoryLoader loads a fresh station directory.
type DirectoryLoader interface {
	LoadDirectory(ctx context.Context) (*station.Directory, error)
}

// ObservationProvider fetches the raw observation payload for a station.
type ObservationProvider interface {
	GetObservation(ctx context.Context, stationID int) (json.RawMessage, error)
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Directory loads the station directory on every request.
	Directory DirectoryLoader

	// Observations fetches observation payloads.
	Observations ObservationProvider

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves locations to stations and fetches observations.
// It keeps no state between calls and is safe for concurrent use.
type Service struct {
	directory    DirectoryLoader
	observations ObservationProvider
	logger       zerolog.Logger
	tracer       trace.Tracer
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		directory:    cfg.Directory,
		observations: cfg.Observations,
		logger:       cfg.Logger,
		tracer:       otel.Tracer(tracerName),
	}
}

// Weather returns the observation payload for location, or an error result.
// It never returns a Go error; every failure becomes a Result message.
func (s *Service) Weather(ctx context.Context, location string) Result {
	obs, err := s.Resolve(ctx, location)
	if err != nil {
		return Result{Error: ErrorMessage(err)}
	}
	return Result{Payload: obs.Payload}
}

// Resolve loads the station directory, resolves location to a station and
// fetches its observations.
func (s *Service) Resolve(ctx context.Context, location string) (*Observation, error) {
	ctx, span := s.tracer.Start(ctx, "weather.Resolve",
		trace.WithAttributes(attribute.String("weather.location", location)))
	defer span.End()

	res, err := s.resolveStation(ctx, span, location)
	if err != nil {
		return nil, s.fail(span, err)
	}

	s.transition(span, StateObservationFetching, location)
	payload, err := s.observations.GetObservation(ctx, res.Station.ID)
	if err != nil {
		s.transition(span, StateObservationFailed, location)
		s.logObservationError(res, err)
		return nil, s.fail(span, err)
	}

	s.transition(span, StateObservationOK, location)
	return &Observation{Resolution: *res, Payload: payload}, nil
}

// ResolveStation loads the station directory and resolves location without
// fetching observations.
func (s *Service) ResolveStation(ctx context.Context, location string) (*Resolution, error) {
	ctx, span := s.tracer.Start(ctx, "weather.ResolveStation",
		trace.WithAttributes(attribute.String("weather.location", location)))
	defer span.End()

	res, err := s.resolveStation(ctx, span, location)
	if err != nil {
		return nil, s.fail(span, err)
	}
	return res, nil
}

// Stations loads a fresh station directory.
func (s *Service) Stations(ctx context.Context) (*station.Directory, error) {
	dir, err := s.directory.LoadDirectory(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load station directory")
		return nil, err
	}
	return dir, nil
}

// resolveStation is the only place a location is normalized: surrounding
// whitespace is dropped before any lookup, for every caller.
func (s *Service) resolveStation(ctx context.Context, span trace.Span, location string) (*Resolution, error) {
	location = strings.TrimSpace(location)
	s.transition(span, StateStart, location)

	if location == "" {
		return nil, ErrEmptyLocation
	}

	s.transition(span, StateDirectoryLoading, location)
	dir, err := s.directory.LoadDirectory(ctx)
	if err != nil {
		s.transition(span, StateDirectoryFailed, location)
		s.logger.Error().Err(err).Str("location", location).Msg("failed to load station directory")
		return nil, err
	}
	s.transition(span, StateDirectoryLoaded, location)

	res, err := Match(dir, location)
	if err != nil {
		s.transition(span, StateStationNotFound, location)
		s.logger.Warn().Str("location", location).Int("stations", dir.Len()).Msg("no station matches location")
		return nil, err
	}

	s.transition(span, StateStationFound, location)
	span.SetAttributes(
		attribute.Int("weather.station_id", res.Station.ID),
		attribute.String("weather.match", string(res.Method)),
	)
	s.logger.Debug().
		Str("location", location).
		Int("station_id", res.Station.ID).
		Str("station", res.Station.NameLocal).
		Str("match", string(res.Method)).
		Msg("resolved station")

	return res, nil
}

// Match resolves location against dir. Matching is tried in order: exact
// localized name, case-insensitive English name, then, for "lat,lon" input,
// the nearest station.
func Match(dir *station.Directory, location string) (*Resolution, error) {
	if rec, ok := dir.Lookup(location); ok {
		return &Resolution{Location: location, Station: rec, Method: MethodLocalName}, nil
	}

	if rec, ok := dir.LookupEnglish(location); ok {
		return &Resolution{Location: location, Station: rec, Method: MethodEnglishName}, nil
	}

	if lat, lon, err := station.ParseCoordinates(location); err == nil {
		if rec, dist, ok := dir.Nearest(lat, lon); ok {
			return &Resolution{
				Location:       location,
				Station:        rec,
				Method:         MethodNearest,
				DistanceMeters: dist,
			}, nil
		}
	}

	return nil, &StationNotFoundError{Location: location}
}

func (s *Service) transition(span trace.Span, state State, location string) {
	span.AddEvent(string(state))
	s.logger.Debug().Str("state", string(state)).Str("location", location).Msg("weather request state")
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) logObservationError(res *Resolution, err error) {
	event := s.logger.Error().Err(err).
		Str("location", res.Location).
		Int("station_id", res.Station.ID)

	var obsErr *ObservationFetchError
	if errors.As(err, &obsErr) {
		event = event.Int("status", obsErr.StatusCode).Str("body", obsErr.Body)
	}
	event.Msg("failed to fetch observation")
}
