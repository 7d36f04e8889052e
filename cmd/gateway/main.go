// Package main запускает многосенсорный телеметрический шлюз
// Шлюз реализует:
// - Опрос сенсоров по доменам (звук, свет, среда, батарея)
// - Скользящую статистику current/min/average/max и посекундные пики
// - Историческое хранилище фиксированной емкости для графиков
// - Статусную страницу, экспорт в Prometheus, публикацию в MQTT
// - Прием показаний от удаленных узлов по HTTP
package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sensor-gateway/internal/cache"
	"sensor-gateway/internal/config"
	"sensor-gateway/internal/handlers"
	"sensor-gateway/internal/history"
	"sensor-gateway/internal/metrics"
	"sensor-gateway/internal/publish"
	"sensor-gateway/internal/sensors"
	"sensor-gateway/internal/state"
)

func main() {
	log.Println("Starting Sensor Gateway...")
	log.Printf("Go version: %s", runtime.Version())

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	startTime := time.Now()

	// Домены в порядке следования потоков истории
	registry := state.NewRegistry(
		state.NewDomain(state.Sound, "dB", cfg.WindowSize, cfg.PeakWindowSeconds),
		state.NewDomain(state.Light, "lux", cfg.WindowSize, cfg.PeakWindowSeconds),
		state.NewDomain(state.Temperature, "F", cfg.WindowSize, 0),
		state.NewDomain(state.Humidity, "%", cfg.WindowSize, 0),
		state.NewDomain(state.Pressure, "mbar", cfg.WindowSize, 0),
		state.NewDomain(state.Battery, "V", cfg.WindowSize, 0),
	)

	// Начальные скаляры светового сенсора
	if light, ok := registry.Get(state.Light); ok {
		light.With(func(s *state.Data) {
			s.Gain = 25.0
			s.IntegrationMS = 300
		})
	}

	// Историческое хранилище: отказ настройки не фатален, шлюз
	// продолжает работать без истории
	store := history.NewStore()
	streamSpecs := []history.StreamSpec{
		{Name: "sound", Precision: 2},
		{Name: "light", Precision: 2},
		{Name: "temperature", Precision: 2},
		{Name: "humidity", Precision: 2},
		{Name: "pressure", Precision: 2},
		{Name: "battery", Precision: 2},
	}
	if err := store.Setup(streamSpecs, cfg.HistoryLength, cfg.HistoryElementWidth, cfg.HistoryBudgetBytes); err != nil {
		log.Printf("Warning: %v", err)
	} else {
		streams, length, width := store.Geometry()
		log.Printf("History store active: %d streams x %d elements x %d bytes",
			streams, length, width)
	}

	// Подключаемся к Redis с повторами
	var redisCache *cache.RedisCache
	for i := 0; i < 5; i++ {
		redisCache, err = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			log.Printf("Connected to Redis at %s", cfg.RedisAddr)
			break
		}
		log.Printf("Redis connection attempt %d failed: %v", i+1, err)
		if i < 4 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis, running without cache: %v", err)
		redisCache = nil
	}

	// MQTT издатель
	var publisher *publish.Publisher
	if cfg.MqttEnabled {
		publisher = publish.NewPublisher(publish.Options{
			Server:    cfg.MqttServer,
			Port:      cfg.MqttPort,
			User:      cfg.MqttUser,
			Password:  cfg.MqttPassword,
			TopicBase: cfg.MqttTopicBase,
			UseTLS:    cfg.MqttUseTLS,
		})
		log.Printf("MQTT publishing to %s:%d every %v (topic base %s)",
			cfg.MqttServer, cfg.MqttPort, cfg.PublishInterval(), cfg.MqttTopicBase)
	}

	// Имитационные драйверы локальных сенсоров; удаленные узлы
	// присылают показания через POST /ingest
	drivers := []sensors.Driver{
		sensors.NewSimulated(state.Sound, 45, 10, 10*time.Minute, 3).WithFloor(30),
		sensors.NewSimulated(state.Light, 250, 200, 20*time.Minute, 20).
			WithFloor(0).WithWarmup(3 * time.Second),
		sensors.NewSimulated(state.Temperature, 72, 3, time.Hour, 0.5),
		sensors.NewSimulated(state.Humidity, 45, 10, time.Hour, 1),
		sensors.NewSimulated(state.Pressure, 1013, 5, 2*time.Hour, 0.5),
		sensors.NewSimulated(state.Battery, 3.9, 0.05, 6*time.Hour, 0.01),
	}

	stop := make(chan struct{})
	for _, drv := range drivers {
		domain, ok := registry.Get(drv.Domain())
		if !ok {
			log.Fatalf("Driver for unregistered domain %s", drv.Domain())
		}
		go sensors.NewProducer(drv, domain, cfg.PollInterval()).Run(stop)
	}
	log.Printf("Started %d sensor producers, poll interval %v", len(drivers), cfg.PollInterval())

	// Периодические циклы вывода
	go historyTickLoop(registry, store, redisCache, startTime, cfg.TickInterval(), stop)
	go metricsRefreshLoop(registry, startTime, cfg.RefreshInterval(), stop)
	if publisher != nil {
		go publishLoop(registry, publisher, startTime, cfg.PublishInterval(), stop)
	}

	// Обработчики и маршруты
	var mqttConnected func() bool
	if publisher != nil {
		mqttConnected = publisher.Connected
	}
	handler := handlers.NewHandler(registry, store, redisCache, mqttConnected, startTime)

	router := mux.NewRouter()
	router.HandleFunc("/", handler.StatusHandler).Methods("GET")
	router.HandleFunc("/history", handler.HistoryHandler).Methods("GET")
	router.HandleFunc("/api/status", handler.APIStatusHandler).Methods("GET")
	router.HandleFunc("/api/recent", handler.RecentHandler).Methods("GET")
	router.HandleFunc("/ingest", handler.IngestHandler).Methods("POST")
	router.HandleFunc("/ingest/batch", handler.BatchIngestHandler).Methods("POST")
	router.HandleFunc("/health", handler.HealthHandler).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler())

	// pprof для профилирования
	router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	router.Use(loggingMiddleware)

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on %s", cfg.ServerAddr)
		log.Printf("Endpoints:")
		log.Printf("  GET  /             - Status page with charts")
		log.Printf("  GET  /history      - History blob for charting")
		log.Printf("  GET  /api/status   - Status snapshot (JSON)")
		log.Printf("  GET  /api/recent   - Recent snapshots from cache")
		log.Printf("  POST /ingest       - Submit a sensor reading")
		log.Printf("  POST /ingest/batch - Submit batch readings")
		log.Printf("  GET  /health       - Health check")
		log.Printf("  GET  /metrics      - Prometheus metrics")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-sig
	log.Println("Shutting down gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	close(stop)

	if publisher != nil {
		if err := publisher.Disconnect(); err != nil {
			log.Printf("MQTT disconnect error: %v", err)
		}
	}
	if redisCache != nil {
		redisCache.Close()
	}
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Gateway stopped")
}

// historyTickLoop периодически дописывает текущие значения всех доменов
// в историю; блокировки доменов захватываются строго по одной
// Временной индекс - секунды с момента старта процесса: монотонный и
// помещающийся в элемент потока при любой ширине из конфигурации
func historyTickLoop(registry *state.Registry, store *history.Store,
	redisCache *cache.RedisCache, startTime time.Time,
	interval time.Duration, stop <-chan struct{}) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-stop:
			return
		}

		report := handlers.BuildReport(registry, startTime)

		samples := make([]history.Sample, 0, len(report.Domains))
		for _, snap := range report.Domains {
			samples = append(samples, history.Sample{
				Value: snap.Current,
				Valid: snap.Valid,
			})
		}
		store.AppendTick(report.UptimeSeconds, samples)
		metrics.HistoryTicks.Inc()

		if redisCache != nil {
			if err := redisCache.CacheStatus(report); err != nil {
				log.Printf("Cache status error: %v", err)
			}
			_, _ = redisCache.IncrementCounter(cache.TicksCounterKey)
		}
	}
}

// metricsRefreshLoop периодически обновляет Prometheus-гейджи по
// снимкам доменов
func metricsRefreshLoop(registry *state.Registry, startTime time.Time,
	interval time.Duration, stop <-chan struct{}) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-stop:
			return
		}

		for _, snap := range registry.Snapshots() {
			metrics.UpdateDomain(snap)
		}
		metrics.UptimeSeconds.Set(time.Since(startTime).Seconds())
		metrics.ActiveGoroutines.Set(float64(runtime.NumGoroutine()))
	}
}

// publishLoop периодически публикует снимок состояния в MQTT
// Публикация идет по копии снимка, без блокировок доменов
func publishLoop(registry *state.Registry, publisher *publish.Publisher,
	startTime time.Time, interval time.Duration, stop <-chan struct{}) {

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-stop:
			return
		}

		report := handlers.BuildReport(registry, startTime)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := publisher.PublishReport(ctx, report)
		cancel()

		if err != nil {
			log.Printf("MQTT publish error: %v", err)
			metrics.PublishErrors.Inc()
			continue
		}
		metrics.PublishesTotal.Inc()
	}
}

// loggingMiddleware логирует HTTP запросы
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
