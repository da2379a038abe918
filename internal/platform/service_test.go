package platform

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"findam-backend/internal/common/logger"
	"findam-backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock, redismock.ClientMock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	rdb, redisMock := redismock.NewClientMock()
	return NewService(NewRepository(db), rdb, logger.NewTestLogger(t)), mock, redisMock
}

func TestFloatValue(t *testing.T) {
	t.Run("reads numeric setting and caches it", func(t *testing.T) {
		svc, mock, redisMock := newTestService(t)
		cfg := &models.SystemConfig{Key: KeyServiceFeeRate, Value: "0.05", UpdatedAt: time.Now().UTC().Truncate(time.Second)}

		redisMock.ExpectGet("sysconfig:" + KeyServiceFeeRate).RedisNil()
		mock.ExpectQuery(`SELECT key, value, description, updated_at FROM findam_system_configs`).
			WithArgs(KeyServiceFeeRate).
			WillReturnRows(sqlmock.NewRows([]string{"key", "value", "description", "updated_at"}).
				AddRow(cfg.Key, cfg.Value, cfg.Description, cfg.UpdatedAt))
		data, _ := json.Marshal(cfg)
		redisMock.ExpectSet("sysconfig:"+KeyServiceFeeRate, data, configCacheTTL).SetVal("OK")

		assert.Equal(t, 0.05, svc.FloatValue(context.Background(), KeyServiceFeeRate, 0.07))
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("cache hit skips db", func(t *testing.T) {
		svc, mock, redisMock := newTestService(t)
		cfg := &models.SystemConfig{Key: KeyServiceFeeRate, Value: "0.05"}

		data, _ := json.Marshal(cfg)
		redisMock.ExpectGet("sysconfig:" + KeyServiceFeeRate).SetVal(string(data))

		assert.Equal(t, 0.05, svc.FloatValue(context.Background(), KeyServiceFeeRate, 0.07))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("falls back on missing key", func(t *testing.T) {
		svc, mock, redisMock := newTestService(t)

		redisMock.ExpectGet("sysconfig:" + KeyServiceFeeRate).RedisNil()
		mock.ExpectQuery(`SELECT key, value, description, updated_at FROM findam_system_configs`).
			WillReturnRows(sqlmock.NewRows([]string{"key", "value", "description", "updated_at"}))

		assert.Equal(t, 0.07, svc.FloatValue(context.Background(), KeyServiceFeeRate, 0.07))
	})

	t.Run("falls back on malformed value", func(t *testing.T) {
		svc, _, redisMock := newTestService(t)
		cfg := &models.SystemConfig{Key: KeyServiceFeeRate, Value: "not-a-number"}

		data, _ := json.Marshal(cfg)
		redisMock.ExpectGet("sysconfig:" + KeyServiceFeeRate).SetVal(string(data))

		assert.Equal(t, 0.07, svc.FloatValue(context.Background(), KeyServiceFeeRate, 0.07))
	})
}

func TestSetConfig(t *testing.T) {
	svc, mock, redisMock := newTestService(t)
	mock.ExpectExec(`INSERT INTO findam_system_configs`).
		WithArgs(KeyMaintenanceMode, "true", "planned migration", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	redisMock.ExpectDel("sysconfig:" + KeyMaintenanceMode).SetVal(1)

	cfg, err := svc.Set(context.Background(), ConfigInput{
		Key:         KeyMaintenanceMode,
		Value:       "true",
		Description: "planned migration",
	})
	require.NoError(t, err)
	assert.Equal(t, "true", cfg.Value)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
