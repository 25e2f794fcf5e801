package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kmaweather/kmaweather/internal/api/models"
	"github.com/kmaweather/kmaweather/internal/api/response"
	"github.com/kmaweather/kmaweather/internal/station"
	"github.com/kmaweather/kmaweather/internal/weather"
)

// WeatherService is the subset of weather.Service used by the HTTP handlers.
type WeatherService interface {
	Resolve(ctx context.Context, location string) (*weather.Observation, error)
	ResolveStation(ctx context.Context, location string) (*weather.Resolution, error)
	Stations(ctx context.Context) (*station.Directory, error)
}

// WeatherHandler serves observations and the station directory.
type WeatherHandler struct {
	service WeatherService
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(service WeatherService) *WeatherHandler {
	return &WeatherHandler{service: service}
}

// GetWeather handles GET /v1/weather?location= and returns the upstream
// observation body unmodified.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	location, ok := requireLocation(w, r)
	if !ok {
		return
	}

	obs, err := h.service.Resolve(r.Context(), location)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}

	w.Header().Set("X-Station-Id", strconv.Itoa(obs.Station.ID))
	response.RawJSON(w, r, http.StatusOK, obs.Payload)
}

// ListStations handles GET /v1/stations.
func (h *WeatherHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	dir, err := h.service.Stations(r.Context())
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}

	records := dir.Records()
	items := make([]models.Station, 0, len(records))
	for _, rec := range records {
		items = append(items, toStation(rec))
	}
	response.JSON(w, r, http.StatusOK, models.StationList{Items: items, Count: len(items)})
}

// ResolveStation handles GET /v1/stations/resolve?location=.
func (h *WeatherHandler) ResolveStation(w http.ResponseWriter, r *http.Request) {
	location, ok := requireLocation(w, r)
	if !ok {
		return
	}

	res, err := h.service.ResolveStation(r.Context(), location)
	if err != nil {
		writeWeatherError(w, r, err)
		return
	}

	out := models.StationResolution{
		Location: res.Location,
		Match:    string(res.Method),
		Station:  toStation(res.Station),
	}
	if res.Method == weather.MethodNearest {
		d := res.DistanceMeters
		out.DistanceMeters = &d
	}
	response.JSON(w, r, http.StatusOK, out)
}

// requireLocation rejects a blank location with field errors. The value is
// passed on as given; the service normalizes it.
func requireLocation(w http.ResponseWriter, r *http.Request) (string, bool) {
	location := r.URL.Query().Get("location")
	if strings.TrimSpace(location) == "" {
		response.BadRequest(w, r, weather.ErrEmptyLocation.Error(), []models.FieldError{
			{Field: "location", Message: "required", Code: "REQUIRED"},
		})
		return "", false
	}
	return location, true
}

// writeWeatherError maps service errors to problems. Details carry the same
// fixed messages as the MCP tool; upstream bodies stay in the logs.
func writeWeatherError(w http.ResponseWriter, r *http.Request, err error) {
	msg := weather.ErrorMessage(err)

	var (
		fetchErr    *station.FetchError
		parseErr    *station.ParseError
		notFoundErr *weather.StationNotFoundError
		obsErr      *weather.ObservationFetchError
	)
	switch {
	case errors.Is(err, weather.ErrEmptyLocation):
		response.BadRequest(w, r, msg, nil)
	case errors.As(err, &notFoundErr):
		response.NotFound(w, r, msg)
	case errors.As(err, &fetchErr), errors.As(err, &parseErr):
		response.ServiceUnavailable(w, r, msg)
	case errors.As(err, &obsErr):
		response.BadGateway(w, r, msg)
	default:
		response.InternalError(w, r, msg)
	}
}

func toStation(rec station.Record) models.Station {
	s := models.Station{
		ID:          rec.ID,
		NameLocal:   rec.NameLocal,
		NameEN:      rec.NameEN,
		StationType: rec.StationType,
		Height:      rec.Height,
		ForecastID:  rec.ForecastID,
		LawID:       rec.LawID,
		Basin:       rec.Basin,
	}
	if rec.HasLocation {
		s.Point = &models.Point{Lat: rec.Lat, Lon: rec.Lon}
	}
	return s
}
