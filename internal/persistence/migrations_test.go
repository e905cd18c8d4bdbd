package persistence

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMigrationFilesEmbeddedAndOrdered(t *testing.T) {
	files, err := migrationFiles()
	require.NoError(t, err)
	require.NotEmpty(t, files)

	assert.True(t, sort.StringsAreSorted(files))
	for _, name := range files {
		assert.True(t, strings.HasSuffix(name, ".sql"), "unexpected migration file %s", name)
		content, err := migrationsFS.ReadFile("migrations/" + name)
		require.NoError(t, err)
		assert.NotEmpty(t, content)
	}
}

func TestRunMigrationsWithoutPoolSkips(t *testing.T) {
	err := RunMigrations(context.Background(), nil, zap.NewNop())
	require.NoError(t, err)
}
