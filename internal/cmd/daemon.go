// Package cmd implements the btkeyd command-line entry point: flag/env/
// config-file parsing via kong, and the Run method that boots internal/core
// and blocks until shutdown.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ronsdev/btkeyd/internal/adapter"
	"github.com/ronsdev/btkeyd/internal/core"
	"github.com/ronsdev/btkeyd/internal/ipc"
	"github.com/ronsdev/btkeyd/internal/l2cap"
	"github.com/ronsdev/btkeyd/internal/log"
	"github.com/ronsdev/btkeyd/internal/sdp"
)

// Log groups the logging flags, embedded into RunCmd the way Server/Proxy
// embed their config blocks in the wider example pack. Unprefixed so the
// flags read as --log-level/--log-file/--debug, matching the documented
// external interface.
type Log struct {
	Level  string `name:"log-level" help:"Log level: trace, debug, info, warn, error" default:"info" env:"BTKEYD_LOG_LEVEL"`
	File   string `name:"log-file" help:"Write logs to this file instead of stdout/stderr" env:"BTKEYD_LOG_FILE"`
	Debug  bool   `name:"debug" help:"Shorthand for --log-level=trace" env:"BTKEYD_DEBUG"`
	RawLog string `name:"raw-log" help:"Hex-dump every frame on the local command channel to this file"`
}

// RunCmd is the daemon's only real command: connect to the adapter, claim
// the HID service, and drive the readiness loop until shutdown.
type RunCmd struct {
	DevID          int    `help:"HCI device id of the Bluetooth adapter to use" default:"0" env:"BTKEYD_DEVID"`
	Nodaemon       bool   `short:"n" help:"Accepted for compatibility; btkeyd always runs in the foreground"`
	HIDDeviceClass bool   `help:"Switch the adapter's Class-of-Device to Peripheral/Keyboard on start" default:"true"`
	Config         string `help:"Path to a config file (json/yaml/toml)" env:"BTKEYD_CONFIG"`
	Log            Log    `embed:""`
}

// Run is called by kong once flags/env/config are resolved, with logger
// and rawLogger injected via ctx.Bind/ctx.BindTo in cmd/btkeyd/main.go.
func (c *RunCmd) Run(logger *slog.Logger, rawLogger log.RawLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.run(ctx, logger, rawLogger)
}

func (c *RunCmd) run(ctx context.Context, logger *slog.Logger, rawLogger log.RawLogger) error {
	hw, err := adapter.NewHCIAdapter(c.DevID)
	if err != nil {
		return fmt.Errorf("cmd: open adapter: %w", err)
	}

	bdaddr, err := hw.DeviceBDAddr(c.DevID)
	if err != nil {
		return fmt.Errorf("cmd: resolve adapter address: %w", err)
	}
	identity := adapter.Identity{DevID: c.DevID, Addr: bdaddr}

	publisher, err := sdp.NewPublisher(identity, hw)
	if err != nil {
		return fmt.Errorf("cmd: connect to SDP server: %w", err)
	}

	var endpoint *l2cap.Endpoint
	endpoint, err = l2cap.NewEndpoint(l2cap.Addr(bdaddr))
	if err != nil {
		logger.Warn("HID server sockets unavailable, running command-channel only", "error", err)
		endpoint = nil
	}

	ipcSrv, err := ipc.Listen(rawLogger)
	if err != nil {
		return fmt.Errorf("cmd: listen on local command channel: %w", err)
	}

	daemon := core.New(logger, identity, hw, publisher, endpoint, ipcSrv)

	if err := daemon.Boot(); err != nil {
		return fmt.Errorf("cmd: boot: %w", err)
	}

	if c.HIDDeviceClass {
		if err := publisher.SetHIDDeviceClass(); err != nil {
			logger.Warn("failed to set HID device class", "error", err)
		}
	}

	go func() {
		<-ctx.Done()
		daemon.RequestShutdown()
	}()

	logger.Info("btkeyd started", "devid", c.DevID, "addr", bdaddr)
	return daemon.Run()
}
