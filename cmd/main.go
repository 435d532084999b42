package main

import (
	"context"
	"log"
	"os"

	"intake-script-engine/internal/api"
	"intake-script-engine/internal/storage"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	var store *storage.ScriptStore
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		var err error
		store, err = storage.Open(context.Background(), dsn)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer store.Close()
		log.Println("Script persistence enabled")
	}

	router := api.SetupRouterWithStore(store)

	log.Printf("Starting server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
