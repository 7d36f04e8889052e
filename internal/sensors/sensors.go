// Package sensors определяет границу с драйверами сенсоров и циклы
// производителей, питающие трекеры доменов
// Инициализация реального железа и снятие сырых значений лежат за
// интерфейсом Driver; в комплекте идут имитационные драйверы для
// автономного запуска шлюза
package sensors

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"sensor-gateway/internal/state"
)

// ErrNotReady возвращается драйвером, пока сенсор стабилизируется
// Производитель пропускает такое показание; в историю уходит маркер
// отсутствующего значения
var ErrNotReady = errors.New("sensor not ready")

// Driver граница с драйвером одного сенсора
// Read блокируется на время аппаратного чтения и возвращает только
// валидные значения: проверка диапазона и NaN лежит на драйвере
type Driver interface {
	Domain() state.ID
	Read() (float64, error)
}

// Simulated имитационный драйвер: синусоида вокруг базового уровня
// с равномерным дрожанием, необязательным прогревом и минимумом
type Simulated struct {
	id        state.ID
	base      float64
	amplitude float64
	period    time.Duration
	jitter    float64
	floor     float64
	warmup    time.Duration

	mu    sync.Mutex
	rng   *rand.Rand
	start time.Time
}

// NewSimulated создает имитационный драйвер домена id
func NewSimulated(id state.ID, base, amplitude float64, period time.Duration, jitter float64) *Simulated {
	return &Simulated{
		id:        id,
		base:      base,
		amplitude: amplitude,
		period:    period,
		jitter:    jitter,
		floor:     math.Inf(-1),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(id))),
		start:     time.Now(),
	}
}

// WithWarmup задает время прогрева, в течение которого Read возвращает
// ErrNotReady (сенсор стабилизируется)
func (s *Simulated) WithWarmup(d time.Duration) *Simulated {
	s.warmup = d
	return s
}

// WithFloor задает нижнюю границу показаний
func (s *Simulated) WithFloor(floor float64) *Simulated {
	s.floor = floor
	return s
}

// Domain возвращает домен драйвера
func (s *Simulated) Domain() state.ID {
	return s.id
}

// Read возвращает очередное имитированное показание
func (s *Simulated) Read() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := time.Since(s.start)
	if elapsed < s.warmup {
		return 0, ErrNotReady
	}

	phase := 2 * math.Pi * float64(elapsed) / float64(s.period)
	v := s.base + s.amplitude*math.Sin(phase) + (s.rng.Float64()*2-1)*s.jitter
	if v < s.floor {
		v = s.floor
	}
	return v, nil
}
