package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	// Load a .env file next to the binary before anything reads the environment.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds the full daemon configuration, resolved from environment
// variables with defaults matching the shipped device image.
type Config struct {
	// DeviceID is the per-device identity. It doubles as the BLE local name
	// and as the namespace segment of remote object keys.
	DeviceID string

	// RecordingsDir is where raw captures and muxed containers live until
	// they are uploaded.
	RecordingsDir string

	S3Bucket     string
	S3Region     string
	S3Prefix     string // derived: <GLASSES_S3_PREFIX>/<DeviceID>
	SignedURLTTL time.Duration

	// SegmentSeconds is the default segment length used when START carries
	// no explicit duration.
	SegmentSeconds int

	// CaptureGrace is how long STOP waits after SIGTERM before SIGKILL.
	CaptureGrace time.Duration

	// RecordingsPerPage bounds one GET_RECORDINGS reply so the JSON page
	// stays readable over chunked BLE reads.
	RecordingsPerPage int

	WifiInterface  string
	WifiConnection string

	HTTPAddr string
	LogFile  string
}

// Load resolves the configuration from the environment.
func Load() (*Config, error) {
	deviceID := getEnv("GLASSES_DEVICE_ID", "glasses-001")

	cfg := &Config{
		DeviceID:          deviceID,
		RecordingsDir:     getEnv("GLASSES_RECORDINGS_DIR", filepath.Join("/home", deviceID, "glasses", "videos")),
		S3Bucket:          getEnv("GLASSES_S3_BUCKET", "smart-glasses-videos-460"),
		S3Region:          getEnv("GLASSES_S3_REGION", "us-east-1"),
		SignedURLTTL:      getDurationEnv("GLASSES_SIGNED_URL_TTL", time.Hour),
		SegmentSeconds:    getIntEnv("GLASSES_SEGMENT_SECONDS", 900),
		CaptureGrace:      getDurationEnv("GLASSES_CAPTURE_GRACE", 5*time.Second),
		RecordingsPerPage: getIntEnv("GLASSES_RECORDINGS_PER_PAGE", 4),
		WifiInterface:     getEnv("GLASSES_WIFI_IFACE", "wlan0"),
		WifiConnection:    getEnv("GLASSES_WIFI_CONNECTION", "glasses-wifi"),
		HTTPAddr:          getEnv("GLASSES_HTTP_ADDR", ":8080"),
		LogFile:           getEnv("GLASSES_LOG_FILE", ""),
	}
	cfg.S3Prefix = fmt.Sprintf("%s/%s", getEnv("GLASSES_S3_PREFIX", "devices"), deviceID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("device id is required")
	}
	if c.RecordingsDir == "" {
		return fmt.Errorf("recordings directory is required")
	}
	if c.S3Bucket == "" {
		return fmt.Errorf("s3 bucket is required")
	}
	if c.SegmentSeconds <= 0 {
		return fmt.Errorf("invalid segment length: %d", c.SegmentSeconds)
	}
	if c.RecordingsPerPage <= 0 {
		return fmt.Errorf("invalid recordings page size: %d", c.RecordingsPerPage)
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
