package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/openglass/glassesd/bluetooth"
	"github.com/openglass/glassesd/config"
	"github.com/openglass/glassesd/network"
	"github.com/openglass/glassesd/recording"
	"github.com/openglass/glassesd/server"
	"github.com/openglass/glassesd/status"
	"github.com/openglass/glassesd/storage"
	"github.com/openglass/glassesd/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	setupLogging(cfg.LogFile)

	log.Println("========================================")
	log.Printf("Starting glassesd (%s)", cfg.DeviceID)
	log.Println("========================================")
	log.Printf("Configuration:")
	log.Printf("  Recordings dir: %s", cfg.RecordingsDir)
	log.Printf("  Segment length: %ds", cfg.SegmentSeconds)
	log.Printf("  Bucket: %s (prefix %s)", cfg.S3Bucket, cfg.S3Prefix)
	log.Printf("  Wi-Fi interface: %s", cfg.WifiInterface)
	log.Printf("  HTTP: %s", cfg.HTTPAddr)

	if err := os.MkdirAll(cfg.RecordingsDir, 0755); err != nil {
		log.Fatalf("Could not create recordings directory: %v", err)
	}

	publisher := status.NewPublisher()

	wsHub := utils.NewWebSocketHub()
	publisher.Subscribe("ws-hub", func(payload string) error {
		wsHub.Broadcast(utils.WebSocketEvent{Type: "status", Payload: payload})
		return nil
	})

	store, err := storage.NewStore(context.Background(), storage.Options{
		Bucket:       cfg.S3Bucket,
		Prefix:       cfg.S3Prefix,
		Region:       cfg.S3Region,
		SignedURLTTL: cfg.SignedURLTTL,
		PageSize:     cfg.RecordingsPerPage,
	})
	if err != nil {
		log.Fatalf("Could not initialize object storage: %v", err)
	}

	muxer := recording.NewFFmpegMuxer()
	if err := muxer.CheckAvailable(); err != nil {
		log.Printf("Warning: %v, muxing will fail until ffmpeg is installed", err)
	}

	recorder := recording.NewRecorder(recording.Options{
		Dir:                   cfg.RecordingsDir,
		DefaultSegmentSeconds: cfg.SegmentSeconds,
		Grace:                 cfg.CaptureGrace,
	}, recording.NewCaptureSupervisor(), muxer, store, publisher)

	netManager := network.NewManager(publisher, cfg.WifiInterface, cfg.WifiConnection)
	log.Printf("WIFI: %s", netManager.StatusPayload())

	dispatcher := bluetooth.NewDispatcher(publisher, recorder, netManager, store)

	btManager, err := bluetooth.NewManager(publisher, dispatcher, cfg.DeviceID)
	if err != nil {
		log.Fatalf("Could not connect to system bus: %v", err)
	}
	if err := btManager.Start(); err != nil {
		log.Fatalf("Could not start BLE service: %v", err)
	}

	srv := server.NewServer(cfg.HTTPAddr, publisher, recorder, store, wsHub)
	srv.Start()

	log.Println("Stopping recorder...")
	recorder.Stop()
	btManager.Stop()
	log.Println("Shutdown complete")
}

// setupLogging mirrors everything to a log file when one is configured.
// Failures fall back to stdout only.
func setupLogging(path string) {
	if path == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		log.Printf("Warning: Could not create log directory: %v", err)
		return
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Printf("Warning: Could not open log file: %v", err)
		return
	}
	log.SetOutput(io.MultiWriter(os.Stdout, file))
	log.Printf("Logging to %s", path)
}
