// Command resellerctl inspects and checks the reseller entries compiled
// into the storefront.
//
// Usage:
//
//	resellerctl list                        # Registered resellers
//	resellerctl validate [id...]            # Validate entries (all by default)
//	resellerctl validate --dir ./tenants    # Validate entries from a directory
//	resellerctl show veritexto-es           # Dump one entry as YAML
//	resellerctl redirects auditelle-fr      # Redirect table as JSON
//	resellerctl metadata                    # Page metadata of RESELLER_ID
//	resellerctl preview-email trialExpiring --days 1 --format text
package main

import (
	"fmt"
	"os"

	"github.com/auditelle/storefront/internal/reseller"
)

var Version = "dev"

func main() {
	if err := newRootCmd(reseller.Builtin()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
