package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
controller:
  host: 192.168.1.10
  password: hunter2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "192.168.1.10", cfg.Controller.Host)
	assert.Equal(t, 20*time.Second, cfg.Controller.UpdateDelay())
	assert.Equal(t, 3, cfg.Controller.Retries)
	assert.Equal(t, 10*time.Second, cfg.Controller.RetryDelay())
	assert.Equal(t, 20*time.Second, cfg.Controller.Timeout())
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.Equal(t, "rainbird", cfg.MQTT.ClientID)
	assert.Equal(t, "rainbird", cfg.MQTT.TopicPrefix)
	assert.Equal(t, time.Minute, cfg.MQTT.Interval())
	assert.False(t, cfg.MQTT.Enabled)
}

func TestLoadReadsAllSections(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
controller:
  host: sprinkler.local
  password: hunter2
  update_delay_seconds: 5
  retries: 6
  retry_delay_seconds: 2
  timeout_seconds: 8
journal:
  path: /var/lib/rainbird/journal.db
statsd:
  addr: 127.0.0.1:8125
  namespace: rainbird.
  tags:
    - site:backyard
mqtt:
  enabled: true
  broker: mqtt.local
  port: 8883
  client_id: lawn
  username: mq
  password: ttqm
  topic_prefix: garden
  interval_seconds: 30
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.Controller.UpdateDelay())
	assert.Equal(t, 6, cfg.Controller.Retries)
	assert.Equal(t, 2*time.Second, cfg.Controller.RetryDelay())
	assert.Equal(t, 8*time.Second, cfg.Controller.Timeout())
	assert.Equal(t, "/var/lib/rainbird/journal.db", cfg.Journal.Path)
	assert.Equal(t, "127.0.0.1:8125", cfg.Statsd.Addr)
	assert.Equal(t, "rainbird.", cfg.Statsd.Namespace)
	assert.Equal(t, []string{"site:backyard"}, cfg.Statsd.Tags)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "mqtt.local", cfg.MQTT.Broker)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.Equal(t, "lawn", cfg.MQTT.ClientID)
	assert.Equal(t, "garden", cfg.MQTT.TopicPrefix)
	assert.Equal(t, 30*time.Second, cfg.MQTT.Interval())
}

func TestLoadRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "no host",
			body: "controller:\n  password: hunter2\n",
			want: "controller.host",
		},
		{
			name: "no password",
			body: "controller:\n  host: 192.168.1.10\n",
			want: "controller.password",
		},
		{
			name: "mqtt enabled without broker",
			body: "controller:\n  host: h\n  password: p\nmqtt:\n  enabled: true\n",
			want: "mqtt.broker",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadRejectsNegativeValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "retries",
			body: "controller:\n  host: h\n  password: p\n  retries: -1\n",
			want: "retries",
		},
		{
			name: "update delay",
			body: "controller:\n  host: h\n  password: p\n  update_delay_seconds: -5\n",
			want: "update_delay_seconds",
		},
		{
			name: "timeout",
			body: "controller:\n  host: h\n  password: p\n  timeout_seconds: -1\n",
			want: "timeout_seconds",
		},
		{
			name: "mqtt interval",
			body: "controller:\n  host: h\n  password: p\nmqtt:\n  interval_seconds: -1\n",
			want: "interval_seconds",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "controller: [not a map\n"))
	require.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseLevel(tc.in), "level %q", tc.in)
	}
}
