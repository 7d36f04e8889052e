// Package tracker реализует агрегацию показаний сенсоров в скользящих окнах
// Включает кольцевое окно выборок (current/min/average/max) и трекер
// посекундных пиков с экспоненциальным сглаживанием
package tracker

// SampleWindow реализует кольцевое окно выборок фиксированной емкости
// Статистика min/max/average пересчитывается сканированием живой части
// массива при каждой записи, памяти после создания не выделяется
type SampleWindow struct {
	data        []float64
	cursor      int
	full        bool
	initialized bool

	current float64
	min     float64
	max     float64
	average float64
}

// NewSampleWindow создает окно выборок заданной емкости
func NewSampleWindow(capacity int) *SampleWindow {
	if capacity <= 0 {
		capacity = 1
	}
	return &SampleWindow{
		data: make([]float64, capacity),
	}
}

// Track добавляет новое показание и пересчитывает min/max/average
// по живой части окна (full ? N : cursor элементов)
func (w *SampleWindow) Track(value float64) {
	w.current = value
	w.initialized = true

	w.data[w.cursor] = value
	w.cursor++
	if w.cursor >= len(w.data) {
		w.cursor = 0
		w.full = true
	}

	live := w.cursor
	if w.full {
		live = len(w.data)
	}

	min, max := w.data[0], w.data[0]
	sum := w.data[0]
	for i := 1; i < live; i++ {
		d := w.data[i]
		if d < min {
			min = d
		}
		if d > max {
			max = d
		}
		sum += d
	}
	w.min = min
	w.max = max
	w.average = sum / float64(live)
}

// Initialized сообщает, было ли зафиксировано хотя бы одно показание
// До первого Track значения статистики не определены
func (w *SampleWindow) Initialized() bool {
	return w.initialized
}

// Current возвращает последнее зафиксированное показание
func (w *SampleWindow) Current() float64 {
	return w.current
}

// Min возвращает минимум по живой части окна
func (w *SampleWindow) Min() float64 {
	return w.min
}

// Max возвращает максимум по живой части окна
func (w *SampleWindow) Max() float64 {
	return w.max
}

// Average возвращает среднее по живой части окна
func (w *SampleWindow) Average() float64 {
	return w.average
}

// Count возвращает количество живых элементов в окне
func (w *SampleWindow) Count() int {
	if w.full {
		return len(w.data)
	}
	return w.cursor
}

// Capacity возвращает емкость окна
func (w *SampleWindow) Capacity() int {
	return len(w.data)
}
