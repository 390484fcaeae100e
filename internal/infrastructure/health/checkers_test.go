package health

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	infraDB "github.com/avatarctic/petportrait/internal/infrastructure/db"
)

func TestRedisHealthChecker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	hc := NewRedisHealthChecker(client)
	assert.Equal(t, "redis", hc.Name())
	assert.NoError(t, hc.Check(context.Background()))

	mr.Close()
	assert.Error(t, hc.Check(context.Background()))
}

func TestDBHealthChecker(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	hc := NewDBHealthChecker(infraDB.Wrap(sqlx.NewDb(mockDB, "postgres")))
	assert.Equal(t, "database", hc.Name())

	mock.ExpectPing()
	assert.NoError(t, hc.Check(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Error(t, hc.Check(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
