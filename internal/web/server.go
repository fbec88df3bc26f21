package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/daybook/internal/app"
	"github.com/hpungsan/daybook/internal/logging"
)

// NewServer creates the HTTP server for the local diary API and image files.
func NewServer(a *app.App, log logging.Logger, bind string, port int) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           NewHandler(a, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed, header-wrapped handler.
func NewHandler(a *app.App, log logging.Logger) http.Handler {
	h := &Handlers{app: a, log: log}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/diaries", h.HandleListDiaries)
	mux.HandleFunc("POST /api/diaries", h.HandleSaveDiary)
	mux.HandleFunc("GET /api/diaries/by-date", h.HandleDiaryByDate)
	mux.HandleFunc("GET /api/diaries/dates", h.HandleDiaryDates)
	mux.HandleFunc("GET /api/diaries/{id}", h.HandleGetDiary)
	mux.HandleFunc("DELETE /api/diaries/{id}", h.HandleDeleteDiary)
	mux.HandleFunc("GET /api/diaries/{id}/attachments", h.HandleListAttachments)
	mux.HandleFunc("POST /api/diaries/{id}/attachments", h.HandleAddAttachment)
	mux.HandleFunc("GET /api/search", h.HandleSearch)

	mux.HandleFunc("GET /api/archives", h.HandleListArchives)
	mux.HandleFunc("POST /api/archives", h.HandleSaveArchive)
	mux.HandleFunc("GET /api/archives/{id}", h.HandleGetArchive)
	mux.HandleFunc("DELETE /api/archives/{id}", h.HandleDeleteArchive)

	mux.HandleFunc("GET /api/mentions", h.HandleMentionStats)
	mux.HandleFunc("GET /api/mentions/{name}", h.HandleMentionDetails)

	mux.HandleFunc("GET /api/tags", h.HandleListTags)
	mux.HandleFunc("GET /api/settings", h.HandleListSettings)
	mux.HandleFunc("GET /api/settings/{key}", h.HandleGetSetting)
	mux.HandleFunc("PUT /api/settings/{key}", h.HandleSetSetting)
	mux.HandleFunc("GET /api/stats", h.HandleStats)

	mux.HandleFunc("POST /api/images", h.HandleUploadImage)
	mux.HandleFunc("POST /api/export", h.HandleExport)
	mux.HandleFunc("POST /api/import", h.HandleImport)

	// Files behind diary-image:// references.
	mux.HandleFunc("GET /images/{file}", h.imageFileHandler(false))
	mux.HandleFunc("GET /thumbnails/{file}", h.imageFileHandler(true))

	return securityHeaders(mux)
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; img-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and shuts it down gracefully on SIGINT/SIGTERM.
func Run(srv *http.Server, log logging.Logger) error {
	ctx := context.Background()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Info(ctx, "daybook API listening", "addr", "http://"+srv.Addr)
	if strings.HasPrefix(srv.Addr, "0.0.0.0:") || strings.HasPrefix(srv.Addr, "[::]:") || strings.HasPrefix(srv.Addr, ":") {
		log.Warn(ctx, "server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
