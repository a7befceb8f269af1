package main

import (
	"os"

	"github.com/mhcho1994/rumoca/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
