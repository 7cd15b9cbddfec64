package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/course-planner-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "planner",
		Password: "secret",
		Name:     "catalog",
		SSLMode:  "disable",
	})

	assert.Equal(t, "host=db port=5433 user=planner password=secret dbname=catalog sslmode=disable application_name=course-planner-api connect_timeout=5", dsn)
}
