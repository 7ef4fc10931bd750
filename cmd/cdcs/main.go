package main

import (
	"os"

	"github.com/hashicorp-forge/cdcs/internal/cmd"
)

func main() {
	os.Exit(cmd.Main(os.Args))
}
