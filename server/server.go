package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openglass/glassesd/status"
	"github.com/openglass/glassesd/utils"
)

// recorderStatus is what the debug endpoints need to know about the
// recorder.
type recorderStatus interface {
	Recording() bool
	SegmentSeconds() int
	QueuedSegments() int
}

type recordingsIndex interface {
	Page(ctx context.Context, offset int) ([]utils.RecordingEntry, error)
}

// Server holds the dependencies for the local debug HTTP server.
type Server struct {
	addr      string
	publisher *status.Publisher
	recorder  recorderStatus
	index     recordingsIndex
	wsHub     *utils.WebSocketHub
	router    *http.ServeMux
}

// NewServer creates a new Server instance.
func NewServer(addr string, publisher *status.Publisher, recorder recorderStatus, index recordingsIndex, wsHub *utils.WebSocketHub) *Server {
	s := &Server{
		addr:      addr,
		publisher: publisher,
		recorder:  recorder,
		index:     index,
		wsHub:     wsHub,
		router:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", corsMiddleware(s.handleHealth))
	s.router.HandleFunc("/status", corsMiddleware(s.handleStatus))
	s.router.HandleFunc("/recordings", corsMiddleware(s.handleRecordings))
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Start runs the server until SIGINT or SIGTERM, then shuts it down
// gracefully.
func (s *Server) Start() {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.router,
	}

	go func() {
		log.Printf("Starting server on %s", s.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
		return
	}

	log.Println("Server gracefully stopped")
}
