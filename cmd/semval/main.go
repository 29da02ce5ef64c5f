// Command semval validates semantic model documents.
package main

import (
	"os"

	"semval/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
