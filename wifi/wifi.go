/*
DESCRIPTION
  wifi.go provides the WiFi connection manager, which joins the configured
  network via the system network manager with bounded retries, and reports
  connection state and the device address.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>
  Trek Hopton <trek@ausocean.org>

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package wifi manages the device's WiFi connection through the system
// network manager (nmcli).
package wifi

import (
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/ausocean/utils/logging"
)

const pkg = "wifi: "

// Connection defaults.
const (
	defaultInterface  = "wlan0"
	defaultMaxRetries = 10
	defaultRetryDelay = 500 * time.Millisecond
)

// ErrNotConnected is returned when an operation requires an established
// connection and there is none.
var ErrNotConnected = errors.New("not connected")

// runner executes a system command and returns its combined output. It is
// injectable for testing.
type runner func(name string, args ...string) ([]byte, error)

func systemRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Manager joins and monitors the device's WiFi connection.
type Manager struct {
	iface      string
	maxRetries int
	retryDelay time.Duration
	run        runner
	log        logging.Logger
}

// Option is a functional option for Manager.
type Option func(*Manager)

// WithInterface sets the wireless interface name.
func WithInterface(name string) Option {
	return func(m *Manager) { m.iface = name }
}

// WithMaxRetries sets the bounded connection attempt count.
func WithMaxRetries(n int) Option {
	return func(m *Manager) { m.maxRetries = n }
}

// WithRetryDelay sets the delay between failed connection attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(m *Manager) { m.retryDelay = d }
}

// WithRunner replaces the system command runner, for testing.
func WithRunner(r runner) Option {
	return func(m *Manager) { m.run = r }
}

// NewManager returns a WiFi connection manager with the given options
// applied.
func NewManager(l logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		iface:      defaultInterface,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		run:        systemRunner,
		log:        l,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Connect joins the named network, retrying up to the bounded attempt
// count. Credentials are passed to the network manager and never logged.
func (m *Manager) Connect(ssid, pass string) error {
	if ssid == "" {
		return errors.New("ssid must not be empty")
	}

	var lastErr error
	for attempt := 1; attempt <= m.maxRetries; attempt++ {
		m.log.Info(pkg+"connecting", "ssid", ssid, "attempt", attempt)
		out, err := m.run("nmcli", "device", "wifi", "connect", ssid, "password", pass, "ifname", m.iface)
		if err == nil {
			m.log.Info(pkg+"connected", "ssid", ssid)
			return nil
		}
		lastErr = fmt.Errorf("%v: %s", err, strings.TrimSpace(string(out)))
		m.log.Warning(pkg+"connection attempt failed", "attempt", attempt, "error", lastErr.Error())
		if attempt < m.maxRetries {
			time.Sleep(m.retryDelay)
		}
	}
	return fmt.Errorf("could not connect to %q after %d attempts: %w", ssid, m.maxRetries, lastErr)
}

// IsConnected reports whether the interface has an established connection.
func (m *Manager) IsConnected() bool {
	out, err := m.run("nmcli", "-t", "-f", "DEVICE,STATE", "device", "status")
	if err != nil {
		m.log.Warning(pkg+"could not query connection state", "error", err.Error())
		return false
	}
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) == 2 && parts[0] == m.iface && parts[1] == "connected" {
			return true
		}
	}
	return false
}

// Disconnect drops the current connection.
func (m *Manager) Disconnect() error {
	out, err := m.run("nmcli", "device", "disconnect", m.iface)
	if err != nil {
		return fmt.Errorf("could not disconnect: %v: %s", err, strings.TrimSpace(string(out)))
	}
	m.log.Info(pkg + "disconnected")
	return nil
}

// IP returns the interface's first IPv4 address.
func (m *Manager) IP() (string, error) {
	ifc, err := net.InterfaceByName(m.iface)
	if err != nil {
		return "", fmt.Errorf("could not get interface %s: %w", m.iface, err)
	}
	addrs, err := ifc.Addrs()
	if err != nil {
		return "", fmt.Errorf("could not get addresses: %w", err)
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if ip4 := ipn.IP.To4(); ip4 != nil {
			return ip4.String(), nil
		}
	}
	return "", ErrNotConnected
}
