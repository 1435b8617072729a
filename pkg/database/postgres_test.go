package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/substitute-finder-api/pkg/config"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "finder",
		Password: "p@ss word",
		Name:     "substitutes",
	})
	assert.Equal(t, "postgres://finder:p%40ss%20word@db:5432/substitutes?application_name=substitute-finder-api&sslmode=disable", dsn)
}
