package models

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Station is one entry of the KMA surface station directory.
type Station struct {
	ID          int    `json:"id"`
	NameLocal   string `json:"nameKo"`
	NameEN      string `json:"nameEn"`
	StationType string `json:"type,omitempty"`
	Point       *Point `json:"point,omitempty"`
	Height      string `json:"height,omitempty"`
	ForecastID  string `json:"forecastId,omitempty"`
	LawID       string `json:"lawId,omitempty"`
	Basin       string `json:"basin,omitempty"`
}

// StationList is the response for GET /v1/stations.
type StationList struct {
	Items []Station `json:"items"`
	Count int       `json:"count"`
}

// StationResolution is the response for GET /v1/stations/resolve.
type StationResolution struct {
	Location       string   `json:"location"`
	Match          string   `json:"match"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	Station        Station  `json:"station"`
}
