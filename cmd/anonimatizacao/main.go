package main

import (
	"os"

	"github.com/Gunoch/anonimatizacao/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
