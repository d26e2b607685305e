package models

import "time"

// WeatherSnapshot is the normalized view of a current-weather response.
// It is only ever held in the weather cache, never persisted.
type WeatherSnapshot struct {
	City        string    `json:"city"`
	Country     string    `json:"country"`
	Temperature float64   `json:"temperature"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Humidity    int       `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Timestamp   time.Time `json:"timestamp"`
}
