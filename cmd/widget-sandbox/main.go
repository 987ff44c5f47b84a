package main

import (
	"log"

	"github.com/siteguard/widget-go/internal/application/startup"
)

func main() {
	if err := startup.Initialize(); err != nil {
		log.Fatalf("Sandbox startup failed: %v", err)
	}

	log.Println("Sandbox has shut down gracefully.")
}
