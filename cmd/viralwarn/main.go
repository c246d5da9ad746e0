package main

import (
	"os"

	"viralwarn/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}
