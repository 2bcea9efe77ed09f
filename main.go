package main

import (
	"os"

	"github.com/nita-portal/nita/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
