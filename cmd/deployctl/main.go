package main

import (
	"os"

	"deployd/internal/deployctl"
)

func main() {
	os.Exit(deployctl.Main(os.Args[1:]))
}
