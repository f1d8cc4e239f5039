package router

import (
	"net/http"

	handler "rowbook/internal/document"
	"rowbook/middleware"
	"rowbook/socket"
)

type Options struct {
	StaticDir  string
	CORSOrigin string
}

func Setup(docHandler *handler.DocumentHandler, hub *socket.Hub, opts Options) http.Handler {
	mux := http.NewServeMux()

	// Page and assets
	mux.HandleFunc("/{$}", docHandler.Index)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))

	// Document API
	mux.HandleFunc("/data", docHandler.GetData)
	mux.HandleFunc("/save", docHandler.Save)
	mux.HandleFunc("GET /healthz", docHandler.Health)

	// Change notifications
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		socket.ServeWs(hub, w, r)
	})

	cors := middleware.CORSMiddleware(opts.CORSOrigin)
	return middleware.Recover(middleware.RequestLogger(cors(mux)))
}
