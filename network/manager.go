// Package network provisions the device onto Wi-Fi with NetworkManager and
// reports normalized outcomes through the status publisher.
package network

import (
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
	"time"

	probing "github.com/prometheus-community/pro-bing"

	"github.com/openglass/glassesd/status"
)

// CommandRunner executes one external tool invocation and returns its
// combined output and exit code. err is reserved for failures to run at all
// (tool missing, context expired).
type CommandRunner func(ctx context.Context, name string, args ...string) (output string, exitCode int, err error)

func runCommand(ctx context.Context, name string, args ...string) (string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return string(out), exitErr.ExitCode(), nil
		}
		return string(out), -1, err
	}
	return string(out), 0, nil
}

// Manager owns Wi-Fi provisioning and live status queries. Provisioning is
// fire-and-forget: its only channel back to the rest of the daemon is the
// status publisher.
type Manager struct {
	publisher  *status.Publisher
	iface      string
	connection string

	run         CommandRunner
	ipLookup    func(iface string) string
	probe       func() bool
	settleDelay time.Duration
}

func NewManager(publisher *status.Publisher, iface, connection string) *Manager {
	return &Manager{
		publisher:   publisher,
		iface:       iface,
		connection:  connection,
		run:         runCommand,
		ipLookup:    interfaceIPv4,
		probe:       probeInternet,
		settleDelay: 2 * time.Second,
	}
}

// Configure (re)creates and activates the device's Wi-Fi profile in the
// background. External provisioning tools can take tens of seconds, so this
// must never run on the command dispatch path.
func (m *Manager) Configure(ssid, password string) {
	go m.provision(ssid, password)
}

func (m *Manager) provision(ssid, password string) {
	log.Printf("WIFI: Configuring Wi-Fi SSID=%q via %q", ssid, m.connection)
	m.publisher.Set("WIFI:CONNECTING")

	// Stale profiles under our fixed name are replaced wholesale. The
	// delete legitimately fails when no profile exists yet.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if out, code, err := m.run(ctx, "nmcli", "connection", "delete", m.connection); err != nil || code != 0 {
		log.Printf("WIFI: Warning: failed to delete old connection (code %d): %v %s", code, err, strings.TrimSpace(out))
	}
	cancel()

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	out, code, err := m.run(ctx, "nmcli", "connection", "add",
		"type", "wifi",
		"ifname", m.iface,
		"con-name", m.connection,
		"ssid", ssid,
		"wifi-sec.key-mgmt", "wpa-psk",
		"wifi-sec.psk", password,
		"ipv4.method", "auto",
		"ipv6.method", "auto",
	)
	cancel()
	if err != nil || code != 0 {
		log.Printf("WIFI: nmcli add failed (code %d): %v %s", code, err, strings.TrimSpace(out))
		m.publisher.Set("WIFI:DISCONNECTED")
		return
	}

	ctx, cancel = context.WithTimeout(context.Background(), 45*time.Second)
	out, code, err = m.run(ctx, "nmcli", "connection", "up", m.connection)
	cancel()
	if err != nil || code != 0 {
		log.Printf("WIFI: nmcli up failed (code %d): %v %s", code, err, strings.TrimSpace(out))
		m.publisher.Set(classifyActivationFailure(out, ssid))
		return
	}

	// Give DHCP a moment before reporting the live state.
	time.Sleep(m.settleDelay)
	m.publisher.Set(m.StatusPayload())

	if m.probe != nil {
		if m.probe() {
			log.Println("WIFI: Internet connectivity confirmed")
		} else {
			log.Println("WIFI: Connected to network but internet unreachable")
		}
	}
}

// classifyActivationFailure folds nmcli's free-text failures into the closed
// status vocabulary the app understands.
func classifyActivationFailure(output, ssid string) string {
	switch {
	case strings.Contains(output, "No network with SSID"):
		return fmt.Sprintf("WIFI:NOT_FOUND:%s", ssid)
	case strings.Contains(output, "Secrets were required"),
		strings.Contains(strings.ToLower(output), "wrong password"):
		return "WIFI:BAD_PASSWORD"
	default:
		return "WIFI:DISCONNECTED"
	}
}

func probeInternet() bool {
	pinger, err := probing.NewPinger("1.1.1.1")
	if err != nil {
		return false
	}
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	pinger.SetPrivileged(true)
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}
