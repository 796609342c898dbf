package config

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	base := AppConfig{DBHost: "db", DBPort: "1234", DBUser: "u", DBPassword: "p", DBName: "feed", DBSSLMode: "disable"}

	mysqlCfg := base
	mysqlCfg.DBDriver = "mysql"
	assert.Equal(t, "u:p@tcp(db:1234)/feed?charset=utf8mb4&parseTime=True&loc=Local", DSN(mysqlCfg))

	pgCfg := base
	pgCfg.DBDriver = "postgres"
	assert.Equal(t, "host=db port=1234 user=u password=p dbname=feed sslmode=disable", DSN(pgCfg))

	liteCfg := base
	liteCfg.DBDriver = "sqlite"
	assert.Equal(t, "feed.db?_busy_timeout=5000", DSN(liteCfg))

	uriCfg := base
	uriCfg.DBDriver = "postgres"
	uriCfg.DatabaseURI = "postgres://x"
	assert.Equal(t, "postgres://x", DSN(uriCfg))
}

func TestDialector(t *testing.T) {
	for _, driver := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Dialector(AppConfig{DBDriver: driver, DBName: "x"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}
	_, err := Dialector(AppConfig{DBDriver: "mssql"})
	assert.Error(t, err)
}

func TestSnapshotTxOptions(t *testing.T) {
	opts := SnapshotTxOptions("mysql")
	require.NotNil(t, opts)
	assert.Equal(t, sql.LevelRepeatableRead, opts.Isolation)
	assert.True(t, opts.ReadOnly)
	assert.Nil(t, SnapshotTxOptions("sqlite"))
}
