package models

import "time"

// APICall is one audited enrichment lookup. Rows are append-only.
type APICall struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	IPAddress    string    `json:"ip_address" gorm:"not null"`
	Country      string    `json:"country"`
	City         string    `json:"city"`
	WeatherState string    `json:"weather_state"`
	Temperature  float64   `json:"temperature"`
	Route        string    `json:"route"`
	Timestamp    time.Time `json:"timestamp" gorm:"index;not null"`
}

func (APICall) TableName() string {
	return "api_calls"
}
