package server

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/solindex-labs/solindex/app/server/controller"
	"github.com/solindex-labs/solindex/app/server/types"
	"github.com/solindex-labs/solindex/pkg/utils"
)

// NewServer builds the HTTP server around the controller's router.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router := ctler.NewRouter()

	// use <ip>:<port> to bind to a specific interface or :<port> to bind to all interfaces
	addr := utils.Env("ADDR", ":3000")

	app.Server = &http.Server{
		Addr:              addr,
		Handler:           controller.WithCORS(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.Logger.Info("Starting server", zap.String("addr", addr))

	return nil
}
