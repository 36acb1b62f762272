package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationNamesSorted(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "001_init.sql", names[0])
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	err := RunMigrations(context.Background(), nil, zap.NewNop())
	assert.NoError(t, err)
}
