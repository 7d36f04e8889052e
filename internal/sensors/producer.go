package sensors

import (
	"log"
	"time"

	"sensor-gateway/internal/state"
)

// Producer цикл производителя одного домена: блокирующее чтение
// драйвера, фиксация показания под блокировкой домена, фиксированная
// пауза опроса
// Чтение выполняется вне блокировки; захватывается только собственный
// домен производителя
type Producer struct {
	driver   Driver
	domain   *state.Domain
	interval time.Duration
}

// NewProducer создает производителя для домена domain
func NewProducer(driver Driver, domain *state.Domain, interval time.Duration) *Producer {
	return &Producer{
		driver:   driver,
		domain:   domain,
		interval: interval,
	}
}

// Run выполняет бесконечный цикл опроса до закрытия stop
// Застрявшее аппаратное чтение задержит только свой домен: блокировка
// во время чтения не удерживается
func (p *Producer) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		value, err := p.driver.Read()
		if err != nil {
			if err != ErrNotReady {
				log.Printf("Sensor %s read error: %v", p.driver.Domain(), err)
			}
		} else {
			p.domain.Record(value, time.Now())
		}

		select {
		case <-ticker.C:
		case <-stop:
			return
		}
	}
}
