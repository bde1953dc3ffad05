package main

import (
	"context"
	"log"

	"github.com/ExplainThisPR/explain-this-pr/app"
)

func main() {
	app.MustInitDB()
	app.InitStripe()
	if err := app.InitServices(context.Background()); err != nil {
		log.Fatalf("failed to initialize services: %v", err)
	}
	router, err := app.NewRouter()
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	router.Run("0.0.0.0:8080")
}
