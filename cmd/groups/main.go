package main

import (
	"os"

	"groups/cli"
)

func main() {
	os.Exit(cli.Execute())
}
