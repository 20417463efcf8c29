// Package publish pushes recommendations to Home Assistant over MQTT.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"
	"github.com/levenlabs/go-lflag"
	"github.com/raterudder/solaradvisor/pkg/common"
	"github.com/raterudder/solaradvisor/pkg/log"
	"github.com/raterudder/solaradvisor/pkg/types"
)

// connection is the subset of autopaho.ConnectionManager used by MQTT.
type connection interface {
	AwaitConnection(ctx context.Context) error
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Disconnect(ctx context.Context) error
}

// MQTT publishes the latest recommendation per home as a retained Home
// Assistant sensor state. A zero MQTT (no broker configured) publishes
// nothing.
type MQTT struct {
	brokerURL string
	username  string
	password  string
	clientID  string
	prefix    string

	conn connection

	mu        sync.Mutex
	announced map[string]bool
}

// Configured registers the MQTT flags and returns the publisher. Connect must
// be called before Publish does anything.
func Configured() *MQTT {
	brokerURL := lflag.String("mqtt-url", "", "MQTT broker URL, e.g. mqtt://localhost:1883 (publishing disabled when empty)")
	username := lflag.String("mqtt-username", "", "MQTT username")
	password := lflag.String("mqtt-password", "", "MQTT password")
	clientID := lflag.String("mqtt-client-id", "solaradvisor", "MQTT client id")
	prefix := lflag.String("mqtt-discovery-prefix", "homeassistant", "Home Assistant discovery prefix")

	m := &MQTT{}
	lflag.Do(func() {
		m.brokerURL = *brokerURL
		m.username = *username
		m.password = *password
		m.clientID = *clientID
		m.prefix = *prefix
	})
	return m
}

// Enabled reports whether a broker was configured.
func (m *MQTT) Enabled() bool {
	return m != nil && m.brokerURL != ""
}

// Validate checks the broker URL.
func (m *MQTT) Validate() error {
	if !m.Enabled() {
		return nil
	}
	u, err := url.Parse(m.brokerURL)
	if err != nil {
		return fmt.Errorf("failed to parse mqtt url (%s): %w", m.brokerURL, err)
	}
	if u.Host == "" {
		return fmt.Errorf("mqtt url is missing a host: %s", m.brokerURL)
	}
	if m.clientID == "" {
		return fmt.Errorf("mqtt-client-id is required")
	}
	return nil
}

// Connect starts the connection manager and waits for the first connection.
// The manager keeps reconnecting until ctx is cancelled.
func (m *MQTT) Connect(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	if err := m.Validate(); err != nil {
		return err
	}
	u, _ := url.Parse(m.brokerURL)

	cfg := autopaho.ClientConfig{
		ServerUrls:                    []*url.URL{u},
		ConnectUsername:               m.username,
		ConnectPassword:               []byte(m.password),
		KeepAlive:                     30,
		CleanStartOnInitialConnection: true,
		SessionExpiryInterval:         60,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, connAck *paho.Connack) {
			log.Ctx(ctx).InfoContext(ctx, "mqtt connection up", slog.String("broker", m.brokerURL))
			// the broker may have lost retained configs, so announce again
			m.mu.Lock()
			m.announced = nil
			m.mu.Unlock()
		},
		OnConnectError: func(err error) {
			log.Ctx(ctx).WarnContext(ctx, "mqtt connection attempt failed", slog.Any("error", err))
		},
		ClientConfig: paho.ClientConfig{
			ClientID: m.clientID,
			OnClientError: func(err error) {
				log.Ctx(ctx).WarnContext(ctx, "mqtt client error", slog.Any("error", err))
			},
			OnServerDisconnect: func(d *paho.Disconnect) {
				log.Ctx(ctx).WarnContext(ctx, "mqtt server requested disconnect", slog.Int("reasonCode", int(d.ReasonCode)))
			},
		},
	}

	cm, err := autopaho.NewConnection(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start mqtt connection: %w", err)
	}
	m.conn = cm
	if err := cm.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker %s: %w", m.brokerURL, err)
	}
	return nil
}

// Close disconnects from the broker.
func (m *MQTT) Close(ctx context.Context) error {
	if m.conn == nil {
		return nil
	}
	return m.conn.Disconnect(ctx)
}

type sensorConfig struct {
	Name              string `json:"name"`
	DeviceClass       string `json:"device_class,omitempty"`
	StateTopic        string `json:"state_topic"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	ValueTemplate     string `json:"value_template"`
	UniqueID          string `json:"unique_id"`
	StateClass        string `json:"state_class,omitempty"`
	Device            struct {
		Identifiers  []string `json:"identifiers"`
		Name         string   `json:"name"`
		Manufacturer string   `json:"manufacturer"`
		SWVersion    string   `json:"sw_version"`
	} `json:"device"`
}

type sensorState struct {
	Timestamp      time.Time      `json:"timestamp"`
	MaxACCurrent   float64        `json:"max_ac_current"`
	Irradiance     *float64       `json:"irradiance"`
	Category       types.Category `json:"category"`
	Regime         types.Regime   `json:"regime"`
	Recommendation string         `json:"recommendation"`
}

var sensors = []struct {
	key, name, deviceClass, unit, stateClass string
}{
	{"max_ac_current", "Max AC Current", "current", "A", "measurement"},
	{"irradiance", "Estimated Irradiance", "irradiance", "W/m²", "measurement"},
	{"category", "Solar Condition", "enum", "", ""},
	{"recommendation", "Recommendation", "", "", ""},
}

// Publish sends rec as the retained state of location's sensor, announcing
// the sensor first if this connection hasn't yet.
func (m *MQTT) Publish(ctx context.Context, location string, rec types.Recommendation) error {
	if !m.Enabled() || m.conn == nil {
		return nil
	}
	slug := Slug(location)
	if slug == "" {
		return fmt.Errorf("location %q has no usable characters for a topic", location)
	}
	stateTopic := m.prefix + "/sensor/solaradvisor_" + slug + "/state"

	if err := m.announce(ctx, location, slug, stateTopic); err != nil {
		return err
	}

	payload, err := json.Marshal(sensorState{
		Timestamp:      rec.Time,
		MaxACCurrent:   rec.MaxACCurrent,
		Irradiance:     rec.Irradiance,
		Category:       rec.Category,
		Regime:         rec.Regime,
		Recommendation: rec.Message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sensor state: %w", err)
	}
	if _, err := m.conn.Publish(ctx, &paho.Publish{
		QoS:     1,
		Retain:  true,
		Topic:   stateTopic,
		Payload: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish state for %s: %w", location, err)
	}
	log.Ctx(ctx).DebugContext(ctx, "published recommendation", slog.String("topic", stateTopic))
	return nil
}

func (m *MQTT) announce(ctx context.Context, location, slug, stateTopic string) error {
	m.mu.Lock()
	done := m.announced[slug]
	m.mu.Unlock()
	if done {
		return nil
	}

	deviceID := "solaradvisor_" + slug
	for _, s := range sensors {
		var cfg sensorConfig
		cfg.Name = s.name
		cfg.DeviceClass = s.deviceClass
		cfg.StateTopic = stateTopic
		cfg.UnitOfMeasurement = s.unit
		cfg.StateClass = s.stateClass
		cfg.ValueTemplate = "{{ value_json." + s.key + " }}"
		cfg.UniqueID = deviceID + "_" + s.key
		cfg.Device.Identifiers = []string{deviceID}
		cfg.Device.Name = "Solar Advisor " + location
		cfg.Device.Manufacturer = "SolarAdvisor"
		cfg.Device.SWVersion = common.Version()

		payload, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal sensor config: %w", err)
		}
		if _, err := m.conn.Publish(ctx, &paho.Publish{
			QoS:     1,
			Retain:  true,
			Topic:   m.prefix + "/sensor/" + cfg.UniqueID + "/config",
			Payload: payload,
		}); err != nil {
			return fmt.Errorf("failed to announce %s sensor for %s: %w", s.key, location, err)
		}
	}

	m.mu.Lock()
	if m.announced == nil {
		m.announced = make(map[string]bool)
	}
	m.announced[slug] = true
	m.mu.Unlock()
	return nil
}

// Slug lowercases location and collapses every run of characters that are
// not ASCII letters or digits into a single underscore.
func Slug(location string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(location) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
