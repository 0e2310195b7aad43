package main

import (
	"fmt"
	"log"

	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/config"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/database"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/server"
)

func main() {
	cfg := config.Load()
	database.Init(cfg.DBDSN)

	r := server.NewRouter(cfg)

	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("starting server on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
