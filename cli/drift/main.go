package main

import (
	"os"

	driftcmder "github.com/papercomputeco/drift/cmd/drift"
)

func main() {
	cmd := driftcmder.NewDriftCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
