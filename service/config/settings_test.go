package config

import (
	"os"
	"path/filepath"
	"testing"

	"datacontract-service/service/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoad_Defaults(t *testing.T) {
	s, err := load(envOf(nil))
	require.NoError(t, err)

	assert.Equal(t, "datacontract-service", s.ProjectName)
	assert.Equal(t, "/api/v1", s.APIV1Prefix)
	assert.Equal(t, 10000, s.MaxBatchSize)
	assert.Equal(t, 1000, s.BatchChunkSize)
	assert.Equal(t, EventSinkNone, s.EventSink)
	assert.True(t, s.IsDevelopment())
	assert.False(t, s.IsProduction())
	assert.False(t, s.RedisEnabled())
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=postgres sslmode=disable TimeZone=UTC", s.DSN())
}

func TestLoad_EnvOverrides(t *testing.T) {
	s, err := load(envOf(map[string]string{
		"ENV":                "Production",
		"DEBUG":              "true",
		"LISTEN_PORT":        "8080",
		"VALIDATION_WORKERS": " 8 ",
		"CORS_ORIGINS":       "https://a.example, https://b.example,",
		"EVENT_SINK":         "kafka",
		"KAFKA_BROKERS":      "k1:9092,k2:9092",
		"DATABASE_URL":       "postgres://u:p@db/contracts",
		"REDIS_HOST":         "redis",
	}))
	require.NoError(t, err)

	assert.True(t, s.IsProduction())
	assert.True(t, s.Debug)
	assert.Equal(t, 8080, s.ListenPort)
	assert.Equal(t, 8, s.ValidationWorkers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, s.CORSOrigins)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, s.KafkaBrokers)
	assert.Equal(t, "postgres://u:p@db/contracts", s.DSN())
	assert.True(t, s.RedisEnabled())
}

func TestLoad_ConfigFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_driver: sqlite
db_name: contracts
max_batch_size: 500
event_sink: mqtt
mqtt_broker: tcp://broker:1883
`), 0o644))

	s, err := load(envOf(map[string]string{
		"CONFIG_FILE":    path,
		"MAX_BATCH_SIZE": "2000",
	}))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", s.DBDriver)
	assert.Equal(t, "contracts.db", s.DSN())
	assert.Equal(t, 2000, s.MaxBatchSize, "环境变量优先于配置文件")
	assert.Equal(t, EventSinkMQTT, s.EventSink)
	assert.Equal(t, "tcp://broker:1883", s.MQTTBroker)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"非数字端口", map[string]string{"LISTEN_PORT": "eighty"}},
		{"端口越界", map[string]string{"LISTEN_PORT": "70000"}},
		{"非法布尔值", map[string]string{"DEBUG": "maybe"}},
		{"未知驱动", map[string]string{"DB_DRIVER": "mysql"}},
		{"未知事件通知", map[string]string{"EVENT_SINK": "nats"}},
		{"负数并发", map[string]string{"VALIDATION_WORKERS": "-1"}},
		{"QoS越界", map[string]string{"MQTT_QOS": "3"}},
		{"前缀缺少斜杠", map[string]string{"API_V1_PREFIX": "api"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(envOf(tt.env))
			var cfgErr *models.ConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := load(envOf(map[string]string{"CONFIG_FILE": filepath.Join(t.TempDir(), "missing.yaml")}))
	assert.Error(t, err)
}
