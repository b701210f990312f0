package profile

import (
	"context"
	"testing"

	"github.com/auditelle/storefront/internal/testutil"
)

func TestPostgresStore(t *testing.T) {
	db := testutil.PGTest(t)
	runStoreContract(t, func(t *testing.T) Store {
		testutil.Truncate(context.Background(), db)
		return NewPostgresStore(db)
	})
}
