// sealctl is the device-side CLI: register a biometric identity, authorize
// write proposals, and manage the local session.
package main

import (
	"os"

	"github.com/sealwrite/sealwrite/cmd/sealctl/cmd"
	"github.com/sealwrite/sealwrite/pkg/clierror"
)

func main() {
	if err := cmd.Execute(); err != nil {
		ce := clierror.FromError(err, cmd.RegistryURL())
		clierror.PrintError(ce, cmd.OutputFormat())
		os.Exit(ce.ExitCode)
	}
}
