// Package models содержит структуры данных для показаний сенсоров и снимков состояния
package models

import "time"

// Reading представляет одно показание сенсора (от локального драйвера или удаленного узла)
type Reading struct {
	Domain    string    `json:"domain"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ReadingsBatch представляет пакет показаний для массовой загрузки
type ReadingsBatch struct {
	Readings []Reading `json:"readings"`
}

// DomainSnapshot содержит скопированное под блокировкой состояние одного домена
type DomainSnapshot struct {
	Domain        string  `json:"domain"`
	Unit          string  `json:"unit"`
	Valid         bool    `json:"valid"`
	Current       float64 `json:"current"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Average       float64 `json:"average"`
	HasPeak       bool    `json:"has_peak"`
	WindowPeak    float64 `json:"window_peak"`
	EmaAverage    float64 `json:"ema_average"`
	SampleCount   int     `json:"sample_count"`
	Gain          float64 `json:"gain,omitempty"`
	IntegrationMS int     `json:"integration_ms,omitempty"`
}

// StatusReport содержит полный снимок состояния шлюза для статусной страницы и API
type StatusReport struct {
	Timestamp     time.Time        `json:"timestamp"`
	Uptime        string           `json:"uptime"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	Domains       []DomainSnapshot `json:"domains"`
}

// HealthStatus представляет статус здоровья шлюза
type HealthStatus struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Redis         string    `json:"redis"`
	Mqtt          string    `json:"mqtt"`
	History       string    `json:"history"`
	Uptime        string    `json:"uptime"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}
