// Package main implements the entry point for the cardlog API server,
// which serves authenticated flashcard management with a full audit trail.
package main

import (
	"context"
	"log"
)

func main() {
	app, err := newApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.run(context.Background()); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
