package tracker

// IntervalPeakTracker хранит максимум показаний за каждую секунду в
// скользящем окне из W посекундных слотов плюс экспоненциальное
// скользящее среднее всех показаний
// Слот t mod W содержит максимум за секунду t; при смене секунды слот
// перезаписывается новым показанием
type IntervalPeakTracker struct {
	slots    []float64
	lastSlot int

	current float64
	ema     float64
	emaInit bool
}

// NewIntervalPeakTracker создает трекер пиков с окном windowSeconds секунд
func NewIntervalPeakTracker(windowSeconds int) *IntervalPeakTracker {
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	return &IntervalPeakTracker{
		slots:    make([]float64, windowSeconds),
		lastSlot: -1,
	}
}

// Track фиксирует показание value, снятое в секунду nowSeconds
// Показания внутри одной секунды сливаются по максимуму; новая секунда
// перезаписывает свой слот, вытесняя пик W-секундной давности
func (t *IntervalPeakTracker) Track(value float64, nowSeconds int64) {
	w := int64(len(t.slots))
	slot := int(((nowSeconds % w) + w) % w)

	if slot != t.lastSlot {
		t.slots[slot] = value
		t.lastSlot = slot
	} else if value > t.slots[slot] {
		t.slots[slot] = value
	}

	t.current = value

	// Первое показание инициализирует EMA напрямую, в том числе нулевое
	if !t.emaInit {
		t.ema = value
		t.emaInit = true
	} else {
		t.ema = (t.ema*float64(len(t.slots)-1) + value) / float64(len(t.slots))
	}
}

// Current возвращает последнее зафиксированное показание
func (t *IntervalPeakTracker) Current() float64 {
	return t.current
}

// EmaAverage возвращает экспоненциальное скользящее среднее
// (постоянная времени примерно W секунд)
func (t *IntervalPeakTracker) EmaAverage() float64 {
	return t.ema
}

// Initialized сообщает, было ли зафиксировано хотя бы одно показание
func (t *IntervalPeakTracker) Initialized() bool {
	return t.emaInit
}

// WindowPeak возвращает максимум по всем W слотам
// Пересчет ленивый, O(W) на запрос; в первые W секунд работы
// незаполненные слоты дают нулевой вклад и пик следует считать
// предварительным
func (t *IntervalPeakTracker) WindowPeak() float64 {
	peak := t.slots[0]
	for _, s := range t.slots[1:] {
		if s > peak {
			peak = s
		}
	}
	return peak
}

// WindowSeconds возвращает длину окна в секундах
func (t *IntervalPeakTracker) WindowSeconds() int {
	return len(t.slots)
}
