package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"canon-router/config"
	"canon-router/server"
	"canon-router/services"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.LoadConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadConfigFile(path); err != nil {
			log.Fatalf("Failed to load config file: %v", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	// A broken or incomplete artifact set fails here, before any traffic
	container, err := services.NewServiceFactory(cfg).CreateServices()
	if err != nil {
		log.Fatalf("Failed to create services: %v", err)
	}

	srv := server.NewServer(cfg, container)

	log.Println("Canon router starting...")
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
