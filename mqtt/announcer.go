// Package mqtt announces controller state to an MQTT broker so home
// automation dashboards can follow irrigation activity without polling the
// device themselves.
package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jlinford/pyrainbird"
	"github.com/jlinford/pyrainbird/config"
	"github.com/jlinford/pyrainbird/internal/telemetry"
)

const publishTimeout = 5 * time.Second

// StateSource is the controller surface the announcer polls.
type StateSource interface {
	StationStates(page int) (rainbird.States, error)
	RainSensorState() (bool, error)
}

// Announcer publishes retained station and rain sensor topics under a common
// prefix. Topic layout:
//
//	<prefix>/status          online/offline, retained, also the LWT
//	<prefix>/station/<n>     on/off per station, numbered from 1
//	<prefix>/rain_sensor     on/off/unknown
type Announcer struct {
	client paho.Client
	prefix string
	log    zerolog.Logger
}

func New(cfg config.MQTT) *Announcer {
	a := &Announcer{
		prefix: cfg.TopicPrefix,
		log:    log.Logger,
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Broker, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetWill(statusTopic(cfg.TopicPrefix), "offline", 1, true)
	opts.SetOnConnectHandler(func(client paho.Client) {
		a.log.Info().Str("broker", cfg.Broker).Msg("Connected to MQTT broker")
		if token := client.Publish(statusTopic(a.prefix), 1, true, "online"); token.Wait() && token.Error() != nil {
			a.log.Warn().Err(token.Error()).Msg("Could not publish online status")
		}
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		a.log.Error().Err(err).Msg("Lost connection to MQTT broker")
	})

	a.client = paho.NewClient(opts)
	return a
}

// SetLogger replaces the package default logger.
func (a *Announcer) SetLogger(logger zerolog.Logger) {
	a.log = logger
}

// Connect establishes the broker session.
func (a *Announcer) Connect() error {
	if token := a.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker: %w", token.Error())
	}
	return nil
}

// Close marks the announcer offline and drops the broker session.
func (a *Announcer) Close() {
	if !a.client.IsConnected() {
		return
	}
	if token := a.client.Publish(statusTopic(a.prefix), 1, true, "offline"); token.Wait() && token.Error() != nil {
		a.log.Warn().Err(token.Error()).Msg("Could not publish offline status")
	}
	a.client.Disconnect(250)
}

// Publish announces one snapshot of station and rain sensor state. Messages
// are retained so subscribers see the last known state immediately.
func (a *Announcer) Publish(st rainbird.States, rainSensor *bool) error {
	for station := 1; station <= st.Count(); station++ {
		active, err := st.Active(station - 1)
		if err != nil {
			return err
		}
		if err := a.publish(stationTopic(a.prefix, station), stationPayload(active)); err != nil {
			return err
		}
	}
	return a.publish(rainSensorTopic(a.prefix), rainSensorPayload(rainSensor))
}

func (a *Announcer) publish(topic, payload string) error {
	token := a.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(publishTimeout) {
		telemetry.Incr("mqtt.publish_timeout")
		return fmt.Errorf("publish %s: timed out", topic)
	}
	if err := token.Error(); err != nil {
		telemetry.Incr("mqtt.publish_error")
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Run polls the controller on the given interval and announces each snapshot
// until stop closes. The first announcement happens immediately.
func (a *Announcer) Run(src StateSource, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.log.Info().Dur("interval", interval).Msg("Starting state announcer")
	a.announce(src)

	for {
		select {
		case <-stop:
			a.log.Info().Msg("Stopping state announcer")
			return
		case <-ticker.C:
			a.announce(src)
		}
	}
}

func (a *Announcer) announce(src StateSource) {
	start := time.Now()

	st, err := src.StationStates(rainbird.DefaultPage)
	if err != nil {
		a.log.Error().Err(err).Msg("Could not read station states")
		return
	}

	var sensor *bool
	if tripped, err := src.RainSensorState(); err != nil {
		a.log.Warn().Err(err).Msg("Could not read rain sensor state")
	} else {
		sensor = &tripped
	}

	if err := a.Publish(st, sensor); err != nil {
		a.log.Error().Err(err).Msg("Could not publish controller state")
		return
	}
	telemetry.Timing("mqtt.announce", time.Since(start))
}

func statusTopic(prefix string) string {
	return prefix + "/status"
}

func stationTopic(prefix string, station int) string {
	return fmt.Sprintf("%s/station/%d", prefix, station)
}

func rainSensorTopic(prefix string) string {
	return prefix + "/rain_sensor"
}

func stationPayload(active bool) string {
	if active {
		return "on"
	}
	return "off"
}

func rainSensorPayload(sensor *bool) string {
	switch {
	case sensor == nil:
		return "unknown"
	case *sensor:
		return "on"
	default:
		return "off"
	}
}
