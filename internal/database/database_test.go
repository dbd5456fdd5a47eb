package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"impugnaya/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:            "db",
		Port:            "5432",
		User:            "impugnaya",
		Password:        "secreto",
		Name:            "impugnaya",
		SSLMode:         "disable",
		ApplicationName: "impugnaya",
		ConnectTimeout:  3 * time.Second,
	}
}

func stubOpen(t *testing.T, db *sql.DB, err error) {
	t.Helper()
	orig := sqlOpen
	sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
		return db, err
	}
	t.Cleanup(func() { sqlOpen = orig })
}

func TestBuildPostgresDSN(t *testing.T) {
	t.Run("registry parameters", func(t *testing.T) {
		c := registryConfig()
		c.Schema = "registro"

		got, err := BuildPostgresDSN(c)

		require.NoError(t, err)
		assert.Equal(t, "postgres://impugnaya:secreto@db:5432/impugnaya?application_name=impugnaya&connect_timeout=3&search_path=registro&sslmode=disable", got)
	})

	t.Run("sub-second timeout rounds up to one second", func(t *testing.T) {
		c := registryConfig()
		c.Password, c.SSLMode, c.ApplicationName = "", "", ""
		c.ConnectTimeout = 200 * time.Millisecond

		got, err := BuildPostgresDSN(c)

		require.NoError(t, err)
		assert.Equal(t, "postgres://impugnaya@db:5432/impugnaya?connect_timeout=1", got)
	})

	t.Run("bare config", func(t *testing.T) {
		got, err := BuildPostgresDSN(config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Name: "n"})

		require.NoError(t, err)
		assert.Equal(t, "postgres://u@db:5432/n", got)
	})

	t.Run("lists every missing field", func(t *testing.T) {
		_, err := BuildPostgresDSN(config.DatabaseConfig{Port: "5432", User: "u"})

		assert.EqualError(t, err, "invalid registry database config: missing host, name")
	})
}

func TestNewPostgres(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		stubOpen(t, db, nil)

		mock.ExpectPing()

		gotDB, err := NewPostgres(ctx, registryConfig())
		require.NoError(t, err)
		assert.Same(t, db, gotDB)
		assert.Equal(t, 4, gotDB.Stats().MaxOpenConnections)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("configured pool size", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		defer db.Close()
		stubOpen(t, db, nil)
		mock.ExpectPing()

		c := registryConfig()
		c.MaxOpenConns = 12
		gotDB, err := NewPostgres(ctx, c)
		require.NoError(t, err)
		assert.Equal(t, 12, gotDB.Stats().MaxOpenConnections)
	})

	t.Run("sql open error is not a fallback", func(t *testing.T) {
		stubOpen(t, nil, errors.New("open error"))

		gotDB, err := NewPostgres(ctx, registryConfig())

		assert.ErrorContains(t, err, "sql open: open error")
		assert.NotErrorIs(t, err, ErrUnavailable)
		assert.Nil(t, gotDB)
	})

	t.Run("ping error is unavailable", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
		require.NoError(t, err)
		stubOpen(t, db, nil)

		mock.ExpectPing().WillReturnError(errors.New("connection refused"))

		gotDB, err := NewPostgres(ctx, registryConfig())

		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorContains(t, err, "connection refused")
		assert.Nil(t, gotDB)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid config", func(t *testing.T) {
		gotDB, err := NewPostgres(ctx, config.DatabaseConfig{})

		assert.ErrorContains(t, err, "missing host, port, user, name")
		assert.Nil(t, gotDB)
	})
}

func TestPingHonoursTimeout(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing().WillDelayFor(time.Second)

	start := time.Now()
	err = Ping(context.Background(), db, 50*time.Millisecond)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestFallback(t *testing.T) {
	unavailable := errors.Join(ErrUnavailable, errors.New("dial tcp: refused"))
	optional := registryConfig()
	required := registryConfig()
	required.Required = true

	tests := []struct {
		name string
		c    config.DatabaseConfig
		err  error
		want bool
	}{
		{"no error", optional, nil, false},
		{"unreachable optional database", optional, unavailable, true},
		{"unreachable required database", required, unavailable, false},
		{"config error", optional, errors.New("invalid registry database config"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Fallback(tt.c, tt.err))
		})
	}
}
