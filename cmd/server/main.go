package main

import (
	"log"

	"github.com/gpalras/bank-converter-pt/app"
)

func main() {
	app.MustInitDB()
	app.InitStripe()
	app.MustInitExtractor()
	router, err := app.NewRouter()
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	router.Run("0.0.0.0:8080")
}
