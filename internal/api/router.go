package api

import (
	"net/http"

	"github.com/AlexZinkM/seedvault/internal/handler"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/AlexZinkM/seedvault/docs" // swagger spec
)

// SetupRouter sets up router with handlers
func SetupRouter(seedHandler *handler.SeedHandler) http.Handler {
	mux := http.NewServeMux()

	// Swagger UI
	mux.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Seed endpoints
	mux.HandleFunc("/seed/status", seedHandler.Status)
	mux.HandleFunc("/seed/unlock", seedHandler.Unlock)
	mux.HandleFunc("/seed/phrase", seedHandler.Phrase)
	mux.HandleFunc("/seed/revoke", seedHandler.Revoke)

	// Wallet endpoints
	mux.HandleFunc("/wallet", seedHandler.Wallet)

	return mux
}
