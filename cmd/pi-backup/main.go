package main

import (
	"os"

	"pi-backup/src/cli"
)

func main() {
	os.Exit(cli.Execute())
}
