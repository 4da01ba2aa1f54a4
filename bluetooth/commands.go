package bluetooth

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/openglass/glassesd/status"
	"github.com/openglass/glassesd/utils"
)

// RecordingController is the slice of the recorder the dispatcher drives.
type RecordingController interface {
	Start(seconds int)
	Stop()
	SegmentSeconds() int
	StatusString() string
}

// NetworkController provisions Wi-Fi and reports connectivity.
type NetworkController interface {
	Configure(ssid, password string)
	StatusPayload() string
}

// RecordingIndex answers listing and signed URL queries against remote
// storage.
type RecordingIndex interface {
	Page(ctx context.Context, offset int) ([]utils.RecordingEntry, error)
	SignedURL(ctx context.Context, id string) (string, error)
}

const defaultIndexTimeout = 15 * time.Second

// Dispatcher parses control writes and routes them to the owning subsystem.
// Every command answers through the status publisher rather than a write
// response, so results reach notify subscribers too.
type Dispatcher struct {
	publisher *status.Publisher
	recorder  RecordingController
	network   NetworkController
	index     RecordingIndex

	// indexTimeout bounds the remote round-trips made inside a write
	// handler.
	indexTimeout time.Duration
}

func NewDispatcher(publisher *status.Publisher, recorder RecordingController, network NetworkController, index RecordingIndex) *Dispatcher {
	return &Dispatcher{
		publisher:    publisher,
		recorder:     recorder,
		network:      network,
		index:        index,
		indexTimeout: defaultIndexTimeout,
	}
}

// Dispatch handles a single raw command string. The verb is matched without
// regard to case; arguments keep their original casing.
func (d *Dispatcher) Dispatch(raw string) {
	raw = strings.TrimSpace(raw)
	cmd := strings.ToUpper(raw)
	log.Printf("BLE: command %q", truncateCommand(raw))

	switch {
	case strings.HasPrefix(cmd, "START"):
		d.handleStart(raw)
	case cmd == "STOP":
		d.recorder.Stop()
		d.publisher.Set(d.recorder.StatusString())
	case cmd == "GET_WIFI":
		d.publisher.Set(d.network.StatusPayload())
	case strings.HasPrefix(cmd, "SET_WIFI"):
		d.handleSetWifi(raw)
	case strings.HasPrefix(cmd, "GET_RECORDINGS"):
		d.handleGetRecordings(raw)
	case strings.HasPrefix(cmd, "GET_URL"):
		d.handleGetURL(raw)
	default:
		log.Printf("BLE: unknown command %q", truncateCommand(raw))
	}
}

func (d *Dispatcher) handleStart(raw string) {
	seconds := d.recorder.SegmentSeconds()
	parts := strings.Split(raw, ":")
	if len(parts) == 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
			seconds = n
		} else {
			log.Printf("BLE: invalid segment length %q, using %ds", parts[1], seconds)
		}
	}
	d.recorder.Start(seconds)
	d.publisher.Set(d.recorder.StatusString())
}

func (d *Dispatcher) handleSetWifi(raw string) {
	// Split on the first two colons only; passwords may contain colons.
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) != 3 || parts[1] == "" {
		log.Printf("BLE: malformed SET_WIFI command")
		d.publisher.Set("WIFI:DISCONNECTED")
		return
	}
	d.network.Configure(parts[1], parts[2])
}

func (d *Dispatcher) handleGetRecordings(raw string) {
	offset := 0
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) == 2 {
		if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil && n >= 0 {
			offset = n
		} else {
			log.Printf("BLE: invalid recordings offset %q, using 0", parts[1])
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.indexTimeout)
	defer cancel()

	page, err := d.index.Page(ctx, offset)
	if err != nil {
		log.Printf("BLE: failed to list recordings: %v", err)
		d.publisher.Set("[]")
		return
	}
	body, err := json.Marshal(page)
	if err != nil {
		log.Printf("BLE: failed to encode recordings page: %v", err)
		d.publisher.Set("[]")
		return
	}
	d.publisher.Set(string(body))
}

func (d *Dispatcher) handleGetURL(raw string) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		d.publisher.Set("URL:ERROR")
		return
	}
	id := strings.TrimSpace(parts[1])

	ctx, cancel := context.WithTimeout(context.Background(), d.indexTimeout)
	defer cancel()

	url, err := d.index.SignedURL(ctx, id)
	if err != nil || url == "" {
		log.Printf("BLE: failed to sign url for %q: %v", id, err)
		d.publisher.Set("URL:ERROR")
		return
	}
	d.publisher.Set("URL:" + url)
}

func truncateCommand(s string) string {
	if len(s) > 64 {
		return s[:64] + "..."
	}
	return s
}
