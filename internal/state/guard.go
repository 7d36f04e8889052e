// Package state реализует дисциплину доступа к состоянию сенсорных доменов
// Каждый домен владеет своими трекерами и вспомогательными скалярами за
// собственным мьютексом; производитель мутирует, читатели копируют снимок
// Блокировки двух доменов никогда не удерживаются одновременно
package state

import (
	"sync"
	"time"

	"sensor-gateway/internal/models"
	"sensor-gateway/internal/tracker"
)

// ID идентификатор сенсорного домена
type ID int

// Домены шлюза в порядке следования потоков истории
const (
	Sound ID = iota
	Light
	Temperature
	Humidity
	Pressure
	Battery
)

var idNames = map[ID]string{
	Sound:       "sound",
	Light:       "light",
	Temperature: "temperature",
	Humidity:    "humidity",
	Pressure:    "pressure",
	Battery:     "battery",
}

func (id ID) String() string {
	if name, ok := idNames[id]; ok {
		return name
	}
	return "unknown"
}

// ParseID возвращает идентификатор домена по имени
func ParseID(name string) (ID, bool) {
	for id, n := range idNames {
		if n == name {
			return id, true
		}
	}
	return 0, false
}

// Data состояние одного домена; доступно только внутри With
type Data struct {
	Window *tracker.SampleWindow
	Peak   *tracker.IntervalPeakTracker // nil для доменов без пикового трекера
	Unit   string
	Valid  bool // сенсор стабилизировался и выдает валидные показания

	// Вспомогательные скаляры сенсора (светочувствительность)
	Gain          float64
	IntegrationMS int
}

// Domain обертка взаимного исключения вокруг состояния одного домена
type Domain struct {
	mu   sync.Mutex
	id   ID
	data Data
}

// NewDomain создает домен с окном выборок емкости windowCap и, при
// peakWindowSeconds > 0, трекером посекундных пиков
func NewDomain(id ID, unit string, windowCap, peakWindowSeconds int) *Domain {
	d := &Domain{
		id: id,
		data: Data{
			Window: tracker.NewSampleWindow(windowCap),
			Unit:   unit,
		},
	}
	if peakWindowSeconds > 0 {
		d.data.Peak = tracker.NewIntervalPeakTracker(peakWindowSeconds)
	}
	return d
}

// ID возвращает идентификатор домена
func (d *Domain) ID() ID {
	return d.id
}

// With выполняет fn с эксклюзивным доступом к состоянию домена
// Критическая секция должна быть короткой: никакого сетевого или
// дисплейного ввода-вывода и никаких блокировок других доменов внутри fn
func (d *Domain) With(fn func(*Data)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.data)
}

// Record фиксирует показание в трекерах домена и помечает домен валидным
func (d *Domain) Record(value float64, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.data.Window.Track(value)
	if d.data.Peak != nil {
		d.data.Peak.Track(value, now.Unix())
	}
	d.data.Valid = true
}

// Snapshot копирует скаляры домена под блокировкой; форматирование
// результата выполняется вызывающим уже без блокировки
func (d *Domain) Snapshot() models.DomainSnapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	snap := models.DomainSnapshot{
		Domain:        d.id.String(),
		Unit:          d.data.Unit,
		Valid:         d.data.Valid && d.data.Window.Initialized(),
		Gain:          d.data.Gain,
		IntegrationMS: d.data.IntegrationMS,
	}
	if d.data.Window.Initialized() {
		snap.Current = d.data.Window.Current()
		snap.Min = d.data.Window.Min()
		snap.Max = d.data.Window.Max()
		snap.Average = d.data.Window.Average()
		snap.SampleCount = d.data.Window.Count()
	}
	if d.data.Peak != nil && d.data.Peak.Initialized() {
		snap.HasPeak = true
		snap.WindowPeak = d.data.Peak.WindowPeak()
		snap.EmaAverage = d.data.Peak.EmaAverage()
	}
	return snap
}

// Registry упорядоченный набор доменов шлюза
type Registry struct {
	domains []*Domain
	byID    map[ID]*Domain
}

// NewRegistry создает реестр из переданных доменов
func NewRegistry(domains ...*Domain) *Registry {
	r := &Registry{
		domains: domains,
		byID:    make(map[ID]*Domain, len(domains)),
	}
	for _, d := range domains {
		r.byID[d.ID()] = d
	}
	return r
}

// Get возвращает домен по идентификатору
func (r *Registry) Get(id ID) (*Domain, bool) {
	d, ok := r.byID[id]
	return d, ok
}

// Domains возвращает домены в порядке регистрации
func (r *Registry) Domains() []*Domain {
	return r.domains
}

// Snapshots копирует снимки всех доменов, захватывая блокировки строго
// по одной: составной снимок может смешивать значения чуть разных
// моментов времени (ограниченная несвежесть, не линеаризуемость)
func (r *Registry) Snapshots() []models.DomainSnapshot {
	out := make([]models.DomainSnapshot, 0, len(r.domains))
	for _, d := range r.domains {
		out = append(out, d.Snapshot())
	}
	return out
}
