package main

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
	"go.uber.org/zap"
)

func main() {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg := loadConfig(configPath)

	log, _ := zap.NewProduction()
	defer log.Sync()

	backend, err := url.Parse(cfg.BackendURL)
	if err != nil {
		log.Fatal("parse backend url", zap.String("url", cfg.BackendURL), zap.Error(err))
	}
	proxy := httputil.NewSingleHostReverseProxy(backend)

	mux := http.NewServeMux()

	// Backend API surface, proxied so the WASM client stays same-origin.
	for _, pattern := range []string{
		"GET /project/{id}/files",
		"POST /upload/{id}",
		"DELETE /delete_source/{id}/{filename}",
		"GET /project/{id}/notes",
		"POST /project/{id}/notes",
		"GET /project/{id}/notes/{noteId}",
		"PUT /project/{id}/notes/{noteId}",
		"DELETE /project/{id}/notes/{noteId}",
		"GET /project/{id}/settings",
		"POST /project/{id}/settings",
		"GET /project/{id}/chat-history",
		"POST /chat/{id}",
		"POST /ask/{id}",
		"POST /reset-chat/{id}",
		"POST /embed/{id}",
		"GET /embed/status/{taskId}",
		"GET /embed/results/{taskId}",
		"GET /project/{id}/sources/{filename}",
	} {
		mux.Handle(pattern, proxy)
	}

	// Everything else is the client: /project/{id} without a sub-path falls
	// through to the page handler.
	mux.Handle("/", &app.Handler{
		Name:        "Lectern",
		ShortName:   "Lectern",
		Description: "Project workspaces for sources, notes, and chat.",
		Styles: []string{
			"https://fonts.googleapis.com/css2?family=Material+Symbols+Outlined",
			"/web/style.css",
		},
	})

	log.Info("listening",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.BackendURL))
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
