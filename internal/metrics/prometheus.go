// Package metrics реализует экспорт метрик шлюза в Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sensor-gateway/internal/models"
)

// Prometheus метрики
var (
	// RequestsTotal общее количество HTTP запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration длительность HTTP запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint", "method"},
	)

	// ReadingsReceived количество принятых показаний сенсоров
	ReadingsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_readings_received_total",
			Help: "Total number of sensor readings received",
		},
		[]string{"domain"},
	)

	// SensorValue статистика по доменам: current/min/max/average/peak/ema
	SensorValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_sensor_value",
			Help: "Aggregated sensor value per domain and statistic",
		},
		[]string{"domain", "stat"},
	)

	// SensorGain текущая чувствительность сенсора
	SensorGain = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_sensor_gain",
			Help: "Current sensor gain setting",
		},
		[]string{"domain"},
	)

	// SensorIntegrationMS время интеграции сенсора в миллисекундах
	SensorIntegrationMS = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_sensor_integration_ms",
			Help: "Current sensor integration time in milliseconds",
		},
		[]string{"domain"},
	)

	// HistoryTicks количество записей в историю
	HistoryTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_history_ticks_total",
			Help: "Total number of history append ticks",
		},
	)

	// PublishesTotal количество циклов публикации в MQTT
	PublishesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_mqtt_publishes_total",
			Help: "Total number of MQTT publish cycles",
		},
	)

	// PublishErrors количество ошибок публикации
	PublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_mqtt_publish_errors_total",
			Help: "Total number of MQTT publish errors",
		},
	)

	// UptimeSeconds аптайм процесса
	UptimeSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_uptime_seconds",
			Help: "Gateway process uptime in seconds",
		},
	)

	// ActiveGoroutines количество активных горутин
	ActiveGoroutines = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_active_goroutines",
			Help: "Number of active goroutines",
		},
	)
)

// UpdateDomain обновляет гейджи Prometheus по снимку домена
func UpdateDomain(snap models.DomainSnapshot) {
	if !snap.Valid {
		return
	}
	SensorValue.WithLabelValues(snap.Domain, "current").Set(snap.Current)
	SensorValue.WithLabelValues(snap.Domain, "min").Set(snap.Min)
	SensorValue.WithLabelValues(snap.Domain, "max").Set(snap.Max)
	SensorValue.WithLabelValues(snap.Domain, "average").Set(snap.Average)
	if snap.HasPeak {
		SensorValue.WithLabelValues(snap.Domain, "peak").Set(snap.WindowPeak)
		SensorValue.WithLabelValues(snap.Domain, "ema").Set(snap.EmaAverage)
	}
	if snap.Gain != 0 {
		SensorGain.WithLabelValues(snap.Domain).Set(snap.Gain)
	}
	if snap.IntegrationMS != 0 {
		SensorIntegrationMS.WithLabelValues(snap.Domain).Set(float64(snap.IntegrationMS))
	}
}
