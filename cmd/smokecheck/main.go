package main

import (
	"os"

	"github.com/villarosa/admin-api/internal/tools/smokecheck"
)

func main() {
	if err := smokecheck.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
