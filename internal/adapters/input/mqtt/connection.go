package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"myhome-bridge/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second

	payloadOnline  = "online"
	payloadOffline = "offline"
)

var ErrConnectionFailed = errors.New("mqtt: connection failed")

// Conn is the broker connection used by Host.
type Conn interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error
	Unsubscribe(topics ...string) error
}

// PahoConn is a Conn backed by paho. Subscriptions are restored and the
// availability topic is set online on every (re)connect.
type PahoConn struct {
	client            pahomqtt.Client
	qos               byte
	availabilityTopic string
	logger            zerolog.Logger

	mu   sync.RWMutex
	subs map[string]subscription
}

type subscription struct {
	qos     byte
	handler func(topic string, payload []byte)
}

// Connect dials the broker. The client id gets a random suffix so several
// bridges can share a broker; the availability topic is the last will.
func Connect(cfg config.MQTTConfig, availabilityTopic string, logger zerolog.Logger) (*PahoConn, error) {
	c := &PahoConn{
		qos:               cfg.QoS,
		availabilityTopic: availabilityTopic,
		logger:            logger.With().Str("component", "mqtt").Logger(),
		subs:              make(map[string]subscription),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker.URL())
	opts.SetClientID(cfg.Broker.ClientID + "-" + uuid.NewString()[:8])
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetWill(availabilityTopic, payloadOffline, cfg.QoS, true)
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.logger.Warn().Err(err).Msg("connection lost")
	})

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

func (c *PahoConn) handleConnect() {
	c.logger.Info().Msg("connected to broker")
	c.client.Publish(c.availabilityTopic, c.qos, true, payloadOnline)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for topic, sub := range c.subs {
		c.client.Subscribe(topic, sub.qos, wrap(sub.handler))
	}
}

func wrap(handler func(topic string, payload []byte)) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, m pahomqtt.Message) {
		handler(m.Topic(), m.Payload())
	}
}

func wait(token pahomqtt.Token, op string) error {
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt: %s timed out", op)
	}
	return token.Error()
}

func (c *PahoConn) Publish(topic string, qos byte, retained bool, payload []byte) error {
	return wait(c.client.Publish(topic, qos, retained, payload), "publish "+topic)
}

func (c *PahoConn) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return wait(c.client.Subscribe(topic, qos, wrap(handler)), "subscribe "+topic)
}

func (c *PahoConn) Unsubscribe(topics ...string) error {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()
	return wait(c.client.Unsubscribe(topics...), "unsubscribe")
}

// Close marks the bridge offline and disconnects.
func (c *PahoConn) Close() {
	if c.client.IsConnected() {
		_ = c.Publish(c.availabilityTopic, c.qos, true, []byte(payloadOffline))
	}
	c.client.Disconnect(250)
}
