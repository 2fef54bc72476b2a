package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"datacontract-service/service/config"
	"datacontract-service/service/models"
	"datacontract-service/testutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServices_Defaults(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	svc, err := NewServices(config.Default(), tdb.DB, prometheus.NewRegistry())
	require.NoError(t, err)

	assert.NotNil(t, svc.Engine)
	assert.NotNil(t, svc.Processor)
	assert.NotNil(t, svc.Aggregator)
	assert.NotNil(t, svc.Scheduler)
	assert.Empty(t, svc.closers, "未配置Redis和事件通知时没有外部连接")
	assert.NoError(t, svc.Ping(context.Background()))
}

func TestNewServices_InvalidEventSink(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()

	settings := config.Default()
	settings.EventSink = config.EventSinkKafka

	_, err := NewServices(settings, tdb.DB, nil)
	var cfgErr *models.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestInit_SQLiteWithContractsDir(t *testing.T) {
	dir := t.TempDir()
	contractsDir := filepath.Join(dir, "contracts")
	require.NoError(t, os.MkdirAll(contractsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(contractsDir, "users.yaml"), []byte(testutil.UsersContractYAML), 0o644))

	settings := config.Default()
	settings.DBDriver = "sqlite"
	settings.DatabaseURL = filepath.Join(dir, "contracts.db")
	settings.ContractsDir = contractsDir

	require.NoError(t, Init(settings))
	defer GlobalServices.Close()

	def, err := GlobalServices.Contracts.GetContract(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", def.Version)

	result, err := GlobalServices.Engine.ValidateRecord(context.Background(), "users",
		map[string]interface{}{"user_id": "usr_1", "email": "someone@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPass, result.Status)
}
