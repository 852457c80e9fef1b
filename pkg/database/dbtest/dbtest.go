// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"context"
	"strings"
	"testing"

	"entgo.io/ent/dialect"
	"github.com/jordanlanch/affiliatebridge/pkg/database"
	"github.com/stretchr/testify/require"
)

// Open returns a migrated in-memory database private to t.
func Open(t testing.TB) *database.Client {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&_fk=1"

	client, err := database.NewClient(context.Background(), dialect.SQLite, dsn, database.SQLitePoolConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client
}
