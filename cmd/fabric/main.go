// Command fabric renders UI templates through the fabric commit pipeline
// and inspects commit traces.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/fabric/cmd/fabric/cmd"
)

func main() {
	if err := cmd.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
