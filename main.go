package main

import (
	"os"

	"github.com/spigell/internship-recommender/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
