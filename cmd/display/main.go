package main

import (
	"flag"
	"log"

	"github.com/tidewater-labs/helmsman/internal/app"
	"github.com/tidewater-labs/helmsman/internal/config"
)

func main() {
	configPath := flag.String("config", "./helm_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting helmsman display")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("fatal: %v", err)
	}
	if err := app.RunDisplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
