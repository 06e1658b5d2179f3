package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/selva/internal/server"
	"github.com/dmitrijs2005/selva/internal/server/config"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("start selva: %v", err)
	}

	app.Run(ctx)
}
