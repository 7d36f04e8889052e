// Package history реализует историческое хранилище фиксированной емкости
// для построения графиков: плоский байтовый регион, разбитый на параллельные
// текстовые потоки фиксированной ширины с FIFO-вытеснением без реаллокаций
package history

import (
	"fmt"
	"strconv"
	"sync"
)

const (
	// Sentinel текстовый маркер отсутствующего значения
	// Chart.js воспринимает его как разрыв линии
	Sentinel = "null"
	// Delimiter разделитель полей внутри потока
	Delimiter = ','
	// Pad нейтральный символ заполнения
	Pad = ' '
	// Terminator завершающий байт всего региона
	Terminator = 0x00
)

// StreamSpec описывает один поток значений в хранилище
type StreamSpec struct {
	Name      string
	Precision int // количество десятичных знаков при форматировании
}

// Sample представляет одно значение для записи в поток
// Невалидные значения записываются маркером Sentinel
type Sample struct {
	Value float64
	Valid bool
}

// Store хранит историю показаний в предвыделенном байтовом регионе
// Поток 0 зарезервирован под монотонный временной индекс, остальные
// потоки следуют порядку спецификаций из Setup
// Хранилище имеет два состояния: Disabled (регион не выделен, все
// операции безопасно бездействуют) и Active; обратного перехода нет
type Store struct {
	mu     sync.Mutex
	specs  []StreamSpec
	length int // элементов в потоке (H)
	width  int // байт на элемент (E)
	buf    []byte
}

// NewStore создает хранилище в состоянии Disabled
func NewStore() *Store {
	return &Store{}
}

// Setup выделяет регион размером (S+1)*H*E плюс завершающий байт и
// заполняет его символом Pad
// При некорректной геометрии или превышении бюджета budgetBytes
// хранилище остается в состоянии Disabled и возвращается ошибка;
// последующие операции бездействуют, но не падают
func (s *Store) Setup(specs []StreamSpec, length, width, budgetBytes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(specs) == 0 || length <= 0 {
		return fmt.Errorf("history: invalid geometry: streams=%d length=%d", len(specs), length)
	}
	// В элементе должны помещаться маркер Sentinel и разделитель
	if width < len(Sentinel)+1 {
		return fmt.Errorf("history: element width %d too small (min %d)", width, len(Sentinel)+1)
	}

	total := (len(specs)+1)*length*width + 1
	if total > budgetBytes {
		return fmt.Errorf("history: region of %d bytes exceeds budget of %d, history disabled",
			total, budgetBytes)
	}

	buf := make([]byte, total)
	for i := range buf {
		buf[i] = Pad
	}
	buf[total-1] = Terminator

	s.specs = specs
	s.length = length
	s.width = width
	s.buf = buf
	return nil
}

// Active сообщает, выделен ли регион хранилища
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf != nil
}

// AppendTick сдвигает каждый поток влево на один элемент и дописывает
// в освободившийся слот временной индекс и новые значения
// Лишние образцы игнорируются, недостающие записываются как Sentinel
// В состоянии Disabled вызов бездействует
func (s *Store) AppendTick(timeIndex int64, samples []Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return
	}

	s.appendField(0, strconv.FormatInt(timeIndex, 10))

	for i, spec := range s.specs {
		if i < len(samples) && samples[i].Valid {
			s.appendField(i+1, strconv.FormatFloat(samples[i].Value, 'f', spec.Precision, 64))
		} else {
			s.appendField(i+1, Sentinel)
		}
	}
}

// appendField сдвигает поток stream на один элемент и записывает text
// в последний слот; вызывается только под s.mu
func (s *Store) appendField(stream int, text string) {
	streamBytes := s.length * s.width
	region := s.buf[stream*streamBytes : (stream+1)*streamBytes]

	// Блочный сдвиг влево на один элемент: старейшее значение выпадает
	copy(region, region[s.width:])

	slot := region[streamBytes-s.width:]
	if len(text) > s.width-1 {
		text = Sentinel
	}
	n := copy(slot, text)
	slot[n] = Delimiter
	for i := n + 1; i < s.width; i++ {
		slot[i] = Pad
	}
}

// Snapshot возвращает копию всего региона как непрозрачный текстовый
// блок, включая завершающий байт
// Форматирование оплачено при записи; чтение — одно копирование под
// блокировкой
// В состоянии Disabled возвращается nil
func (s *Store) Snapshot() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.buf == nil {
		return nil
	}
	out := make([]byte, len(s.buf))
	copy(out, s.buf)
	return out
}

// Streams возвращает спецификации потоков значений (без временного индекса)
func (s *Store) Streams() []StreamSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.specs
}

// Geometry возвращает количество потоков (включая временной индекс),
// длину потока и ширину элемента
func (s *Store) Geometry() (streams, length, width int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buf == nil {
		return 0, 0, 0
	}
	return len(s.specs) + 1, s.length, s.width
}
