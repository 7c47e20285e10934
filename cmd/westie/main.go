// cmd/westie/main.go
package main

import (
	"os"

	"github.com/zyniel/westie/internal/cli"
)

func main() {
	// Interrupts are handled by the commands that run long enough to need it
	os.Exit(cli.Execute())
}
