package cmd

import (
	"fmt"

	"github.com/go-drift/fabric/pkg/config"
)

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  "Show the CLI version and the configuration schema it reads.",
		Usage: "fabric version",
		Run: func(args []string) error {
			fmt.Fprintf(stdout, "fabric CLI version %s (built %s, config schema %s)\n", Version, BuildTime, config.SchemaMajor)
			return nil
		},
	})
}
