package startup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@localhost:5432/yoga?sslmode=disable",
		MigrateURL("postgres://u:p@localhost:5432/yoga?sslmode=disable"))
	assert.Equal(t, "pgx5://u:p@db/yoga", MigrateURL("postgresql://u:p@db/yoga"))
	assert.Equal(t, "pgx5://u@db/yoga", MigrateURL("pgx5://u@db/yoga"))
}
