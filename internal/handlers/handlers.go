// Package handlers содержит HTTP обработчики шлюза: статусная страница,
// исторический блоб для графиков, прием показаний от удаленных узлов,
// JSON API и проверка здоровья
package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sensor-gateway/internal/cache"
	"sensor-gateway/internal/history"
	"sensor-gateway/internal/metrics"
	"sensor-gateway/internal/models"
	"sensor-gateway/internal/state"
)

// Handler содержит зависимости HTTP обработчиков
// cache и mqttConnected могут быть nil: соответствующие поля статуса
// деградируют, обработчики продолжают работать
type Handler struct {
	registry      *state.Registry
	store         *history.Store
	cache         *cache.RedisCache
	mqttConnected func() bool
	startTime     time.Time
}

// NewHandler создает новый обработчик
// startTime - момент старта процесса: аптайм на статусной странице,
// в /health и /api/status совпадает с MQTT и гейджем Prometheus
func NewHandler(registry *state.Registry, store *history.Store, redisCache *cache.RedisCache, mqttConnected func() bool, startTime time.Time) *Handler {
	return &Handler{
		registry:      registry,
		store:         store,
		cache:         redisCache,
		mqttConnected: mqttConnected,
		startTime:     startTime,
	}
}

// BuildReport собирает полный снимок состояния: домены копируются
// строго по одному, итог компонуется без блокировок
func BuildReport(registry *state.Registry, startTime time.Time) models.StatusReport {
	uptime := time.Since(startTime).Round(time.Second)
	return models.StatusReport{
		Timestamp:     time.Now(),
		Uptime:        uptime.String(),
		UptimeSeconds: int64(uptime.Seconds()),
		Domains:       registry.Snapshots(),
	}
}

// StatusHandler обрабатывает GET / - HTML статусная страница с графиками
func (h *Handler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/", r.Method))
	defer timer.ObserveDuration()

	report := BuildReport(h.registry, h.startTime)
	streams, length, width := h.store.Geometry()

	data := statusPageData{
		Report:        report,
		HistoryActive: h.store.Active(),
		Streams:       streams,
		Length:        length,
		Width:         width,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTemplate.Execute(w, data); err != nil {
		metrics.RequestsTotal.WithLabelValues("/", r.Method, "500").Inc()
		return
	}
	metrics.RequestsTotal.WithLabelValues("/", r.Method, "200").Inc()
}

// HistoryHandler обрабатывает GET /history - исторический блоб
// Блоб отдается как есть, без парсинга: форматирование оплачено при записи
func (h *Handler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/history", r.Method))
	defer timer.ObserveDuration()

	blob := h.store.Snapshot()
	if blob == nil {
		h.respondError(w, "History disabled", http.StatusServiceUnavailable)
		metrics.RequestsTotal.WithLabelValues("/history", r.Method, "503").Inc()
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(bytes.TrimSuffix(blob, []byte{history.Terminator}))
	metrics.RequestsTotal.WithLabelValues("/history", r.Method, "200").Inc()
}

// APIStatusHandler обрабатывает GET /api/status - снимок состояния в JSON
func (h *Handler) APIStatusHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/api/status", r.Method))
	defer timer.ObserveDuration()

	report := BuildReport(h.registry, h.startTime)
	metrics.RequestsTotal.WithLabelValues("/api/status", r.Method, "200").Inc()
	h.respondJSON(w, report, http.StatusOK)
}

// IngestHandler обрабатывает POST /ingest - прием показания от удаленного узла
func (h *Handler) IngestHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/ingest", r.Method))
	defer timer.ObserveDuration()

	var reading models.Reading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/ingest", r.Method, "400").Inc()
		return
	}

	if err := h.ingest(reading); err != nil {
		h.respondError(w, err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/ingest", r.Method, "400").Inc()
		return
	}

	metrics.RequestsTotal.WithLabelValues("/ingest", r.Method, "200").Inc()
	h.respondJSON(w, map[string]string{"status": "accepted"}, http.StatusOK)
}

// BatchIngestHandler обрабатывает POST /ingest/batch - пакет показаний
func (h *Handler) BatchIngestHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/ingest/batch", r.Method))
	defer timer.ObserveDuration()

	var batch models.ReadingsBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		h.respondError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		metrics.RequestsTotal.WithLabelValues("/ingest/batch", r.Method, "400").Inc()
		return
	}

	accepted := 0
	for _, reading := range batch.Readings {
		if err := h.ingest(reading); err == nil {
			accepted++
		}
	}

	metrics.RequestsTotal.WithLabelValues("/ingest/batch", r.Method, "200").Inc()
	h.respondJSON(w, map[string]int{
		"received": len(batch.Readings),
		"accepted": accepted,
	}, http.StatusOK)
}

// ingest фиксирует одно показание в домене
func (h *Handler) ingest(reading models.Reading) error {
	id, ok := state.ParseID(reading.Domain)
	if !ok {
		return fmt.Errorf("unknown domain %q", reading.Domain)
	}
	domain, ok := h.registry.Get(id)
	if !ok {
		return fmt.Errorf("domain %q not registered", reading.Domain)
	}

	now := reading.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	domain.Record(reading.Value, now)
	metrics.ReadingsReceived.WithLabelValues(reading.Domain).Inc()

	if h.cache != nil {
		_, _ = h.cache.IncrementCounter(cache.ReadingsCounterKey)
	}
	return nil
}

// RecentHandler обрабатывает GET /api/recent - недавние снимки из Redis
func (h *Handler) RecentHandler(w http.ResponseWriter, r *http.Request) {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("/api/recent", r.Method))
	defer timer.ObserveDuration()

	if h.cache == nil {
		h.respondError(w, "Cache not available", http.StatusServiceUnavailable)
		metrics.RequestsTotal.WithLabelValues("/api/recent", r.Method, "503").Inc()
		return
	}

	count := int64(50)
	if countStr := r.URL.Query().Get("count"); countStr != "" {
		if c, err := strconv.ParseInt(countStr, 10, 64); err == nil && c > 0 && c <= cache.SnapshotListLimit {
			count = c
		}
	}

	reports, err := h.cache.GetRecentStatuses(count)
	if err != nil {
		h.respondError(w, "Failed to get recent statuses: "+err.Error(), http.StatusInternalServerError)
		metrics.RequestsTotal.WithLabelValues("/api/recent", r.Method, "500").Inc()
		return
	}

	metrics.RequestsTotal.WithLabelValues("/api/recent", r.Method, "200").Inc()
	h.respondJSON(w, reports, http.StatusOK)
}

// HealthHandler обрабатывает GET /health - проверка здоровья
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))

	redisStatus := "disconnected"
	if h.cache != nil && h.cache.Ping() == nil {
		redisStatus = "connected"
	}
	mqttStatus := "disabled"
	if h.mqttConnected != nil {
		if h.mqttConnected() {
			mqttStatus = "connected"
		} else {
			mqttStatus = "disconnected"
		}
	}
	historyStatus := "disabled"
	if h.store.Active() {
		historyStatus = "active"
	}

	uptime := time.Since(h.startTime).Round(time.Second)
	status := models.HealthStatus{
		Status:        "healthy",
		Timestamp:     time.Now(),
		Redis:         redisStatus,
		Mqtt:          mqttStatus,
		History:       historyStatus,
		Uptime:        uptime.String(),
		UptimeSeconds: int64(uptime.Seconds()),
	}

	h.respondJSON(w, status, http.StatusOK)
}

// respondJSON отправляет JSON ответ
func (h *Handler) respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError отправляет ошибку в JSON формате
func (h *Handler) respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
