// Package ingest receives PV controller readings over MQTT and stores them.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pv_informant/internal/logger"
	"pv_informant/internal/metrics"
	"pv_informant/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var ErrMalformedReading = errors.New("malformed reading")

const (
	storeTimeout      = 5 * time.Second
	disconnectQuiesce = 250 // ms
)

type readingStore interface {
	Append(ctx context.Context, r models.Reading) error
}

// Config is the broker connection and subscription.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string
	QoS      byte
}

// Ingester validates readings published by the controller and appends them
// to the reading store.
type Ingester struct {
	store   readingStore
	log     *logger.Logger
	metrics *metrics.Metrics
}

func NewIngester(store readingStore, log *logger.Logger, m *metrics.Metrics) *Ingester {
	if log == nil {
		log = logger.Nop()
	}
	return &Ingester{store: store, log: log, metrics: m}
}

// Ingest decodes one JSON reading and stores it. A missing or unstorable
// timestamp, or a non-finite value, is rejected with ErrMalformedReading.
func (in *Ingester) Ingest(ctx context.Context, payload []byte) error {
	var r models.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		in.metrics.ReadingRejected()
		return fmt.Errorf("%w: %w", ErrMalformedReading, err)
	}
	if !r.Valid() {
		in.metrics.ReadingRejected()
		return fmt.Errorf("%w: missing or out-of-range timestamp, or non-finite value", ErrMalformedReading)
	}
	r.Timestamp = r.Timestamp.UTC()

	if err := in.store.Append(ctx, r); err != nil {
		return fmt.Errorf("%w: append reading: %w", models.ErrStorageUnavailable, err)
	}
	in.metrics.ReadingIngested()
	return nil
}

// HandleMessage is the paho callback for the readings topic.
func (in *Ingester) HandleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()

	if err := in.Ingest(ctx, msg.Payload()); err != nil {
		if errors.Is(err, ErrMalformedReading) {
			in.log.Warnw("reading_rejected", "topic", msg.Topic(), "err", err)
			return
		}
		in.log.Errorw("reading_store_failed", "topic", msg.Topic(), "err", err)
		return
	}
	in.log.Debugw("reading_ingested", "topic", msg.Topic())
}

// Run connects to the broker, subscribes the ingester and blocks until ctx is
// canceled. Paho reconnects on its own and resubscribes through the
// on-connect handler.
func (in *Ingester) Run(ctx context.Context, cfg Config) error {
	subscribe := func(c mqtt.Client) {
		token := c.Subscribe(cfg.Topic, cfg.QoS, in.HandleMessage)
		if token.Wait() && token.Error() != nil {
			in.log.Errorw("mqtt_subscribe_failed", "topic", cfg.Topic, "err", token.Error())
			return
		}
		in.log.Infow("mqtt_subscribed", "topic", cfg.Topic, "qos", cfg.QoS)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetOnConnectHandler(subscribe)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		in.log.Warnw("mqtt_connection_lost", "err", err)
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	select {
	case <-ctx.Done():
		client.Disconnect(disconnectQuiesce)
		return nil
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, err)
	}
	in.log.Infow("mqtt_connected", "broker", cfg.Broker)

	<-ctx.Done()
	client.Disconnect(disconnectQuiesce)
	in.log.Infow("mqtt_disconnected")
	return nil
}
