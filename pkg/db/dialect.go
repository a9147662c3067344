package db

import (
	"fmt"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const defaultSQLiteFile = "gstengine.db"

// Dialect picks the gorm dialector for cfg.Type. Every dialect runs in UTC
// so date-only effective windows compare the same everywhere.
func Dialect(cfg Config) (gorm.Dialector, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

// DSN renders the driver connection string.
func (c Config) DSN() (string, error) {
	switch c.Type {
	case "postgres":
		parts := []string{
			"host=" + c.Host,
			"port=" + c.Port,
			"user=" + c.User,
			"dbname=" + c.Name,
			"sslmode=" + c.SSLMode,
			"TimeZone=UTC",
		}
		if c.Password != "" {
			parts = append(parts, "password="+c.Password)
		}
		return strings.Join(parts, " "), nil
	case "mysql":
		mc := mysqldriver.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = c.Host + ":" + c.Port
		mc.DBName = c.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN(), nil
	case "sqlite":
		name := c.Name
		if name == "" {
			name = defaultSQLiteFile
		}
		return name + "?_foreign_keys=on", nil
	default:
		return "", fmt.Errorf("unsupported database type %q", c.Type)
	}
}
