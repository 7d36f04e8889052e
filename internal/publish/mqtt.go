// Package publish реализует публикацию снимков состояния в MQTT
// Значения сериализуются в плоские key/value топики с заданным
// кадансом; форматирование выполняется без блокировок доменов,
// по уже скопированному снимку
package publish

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"strconv"
	"sync"

	"github.com/eclipse/paho.golang/paho"
	"github.com/google/uuid"

	"sensor-gateway/internal/models"
)

// Options параметры подключения к MQTT брокеру
type Options struct {
	Server    string
	Port      int
	User      string
	Password  string
	TopicBase string
	UseTLS    bool
	TLSConfig *tls.Config
}

// Publisher MQTT издатель поверх eclipse/paho
type Publisher struct {
	opts     Options
	clientID string

	mu        sync.Mutex
	client    *paho.Client
	connected bool
}

// NewPublisher создает издателя; подключение выполняется лениво при
// первой публикации и восстанавливается после обрыва
func NewPublisher(opts Options) *Publisher {
	return &Publisher{
		opts:     opts,
		clientID: "sensor-gateway-" + uuid.NewString()[:8],
	}
}

// Connected сообщает, установлено ли соединение с брокером
func (p *Publisher) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connected
}

// connect устанавливает TCP/TLS соединение и выполняет MQTT CONNECT
// Вызывается только под p.mu
func (p *Publisher) connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", p.opts.Server, p.opts.Port)

	var conn net.Conn
	var err error
	if p.opts.UseTLS {
		dialer := &tls.Dialer{Config: p.opts.TLSConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("mqtt: dial %s: %w", addr, err)
	}

	client := paho.NewClient(paho.ClientConfig{
		Conn:     conn,
		ClientID: p.clientID,
		OnClientError: func(err error) {
			log.Printf("MQTT client error: %v", err)
			p.mu.Lock()
			p.connected = false
			p.mu.Unlock()
		},
	})

	connect := &paho.Connect{
		ClientID:   p.clientID,
		KeepAlive:  30,
		CleanStart: true,
	}
	if p.opts.User != "" {
		connect.UsernameFlag = true
		connect.Username = p.opts.User
	}
	if p.opts.Password != "" {
		connect.PasswordFlag = true
		connect.Password = []byte(p.opts.Password)
	}

	ack, err := client.Connect(ctx, connect)
	if err != nil {
		conn.Close()
		return fmt.Errorf("mqtt: connect: %w", err)
	}
	if ack != nil && ack.ReasonCode != 0 {
		conn.Close()
		return fmt.Errorf("mqtt: connect rejected: reason code %d", ack.ReasonCode)
	}

	p.client = client
	p.connected = true
	log.Printf("Connected to MQTT broker at %s as %s", addr, p.clientID)
	return nil
}

// publishValue публикует одно значение в топик base+suffix
func (p *Publisher) publishValue(ctx context.Context, suffix, value string) error {
	_, err := p.client.Publish(ctx, &paho.Publish{
		Topic:   p.opts.TopicBase + suffix,
		QoS:     0,
		Payload: []byte(value),
	})
	return err
}

// PublishReport сериализует снимок состояния в key/value топики:
// по одному топику значения на домен плюс аптайм
func (p *Publisher) PublishReport(ctx context.Context, report models.StatusReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected {
		if err := p.connect(ctx); err != nil {
			return err
		}
	}

	for _, snap := range report.Domains {
		if !snap.Valid {
			continue
		}
		if err := p.publishValue(ctx, snap.Domain,
			strconv.FormatFloat(snap.Current, 'f', 2, 64)); err != nil {
			p.connected = false
			return fmt.Errorf("mqtt: publish %s: %w", snap.Domain, err)
		}
	}

	if err := p.publishValue(ctx, "uptime", report.Uptime); err != nil {
		p.connected = false
		return fmt.Errorf("mqtt: publish uptime: %w", err)
	}
	if err := p.publishValue(ctx, "uptime_seconds",
		strconv.FormatInt(report.UptimeSeconds, 10)); err != nil {
		p.connected = false
		return fmt.Errorf("mqtt: publish uptime_seconds: %w", err)
	}
	return nil
}

// Disconnect закрывает соединение с брокером
func (p *Publisher) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.connected || p.client == nil {
		return nil
	}
	p.connected = false

	return p.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}
