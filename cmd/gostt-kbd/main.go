package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chaz8081/gostt-kbd/internal/authentication"
	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/channel"
	"github.com/chaz8081/gostt-kbd/pkg/cli"
	"github.com/chaz8081/gostt-kbd/pkg/hid"
	"github.com/chaz8081/gostt-kbd/pkg/mute"
	"github.com/chaz8081/gostt-kbd/pkg/status"
)

const defaultHIDDevice = "/dev/hidg0"

const (
	EnvHIDDevice = "GOSTT_HID_DEVICE"
	EnvKeepalive = "GOSTT_KEEPALIVE"
	EnvVerbose   = "GOSTT_VERBOSE"
)

type DaemonConfig struct {
	hidDevice    string
	keepalive    time.Duration
	queueSize    int
	verbose      bool
	quiet        bool
	factoryReset bool
}

var (
	daemonConfig = &DaemonConfig{}
)

func init() {
	flag.StringVar(&daemonConfig.hidDevice, "hid-device", defaultHIDDevice, "HID gadget `file` that receives keyboard reports, or - to discard them")
	flag.DurationVar(&daemonConfig.keepalive, "keepalive", channel.DefaultConfig.KeepaliveInterval, "Interval between keepalive notifications")
	flag.IntVar(&daemonConfig.queueSize, "queue", channel.DefaultConfig.DispatchQueueSize, "Number of decrypted commands that may wait for the keyboard")
	flag.BoolVar(&daemonConfig.verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&daemonConfig.quiet, "quiet", false, "Do not draw the status line on the terminal")
	flag.BoolVar(&daemonConfig.factoryReset, "factory-reset", false, "Erase pairing material and mute configuration, then exit")
}

func Usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [OPTION...]\n", os.Args[0])
	fmt.Fprintf(out, "\nTypes text received from a paired companion over an encrypted BLE or WebSocket link.\n")
	fmt.Fprintf(out, "Send SIGUSR1 to perform a factory reset while running.\n")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Options:")
	flag.PrintDefaults()
}

// readFromEnvironment applies configuration from environment variables.
// Values are not overwritten.
func readFromEnvironment() error {
	if daemonConfig.hidDevice == defaultHIDDevice {
		if device, ok := os.LookupEnv(EnvHIDDevice); ok {
			daemonConfig.hidDevice = device
		}
	}

	if !daemonConfig.verbose {
		if verbose, ok := os.LookupEnv(EnvVerbose); ok {
			daemonConfig.verbose = verbose != "false" && verbose != "0"
		}
	}

	if daemonConfig.keepalive == channel.DefaultConfig.KeepaliveInterval {
		if keepaliveEnv, ok := os.LookupEnv(EnvKeepalive); ok {
			keepalive, err := time.ParseDuration(keepaliveEnv)
			if err != nil || keepalive <= 0 {
				return fmt.Errorf("invalid keepalive: %s", keepaliveEnv)
			}
			daemonConfig.keepalive = keepalive
		}
	}
	return nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// openHID opens the gadget's report device. "-" discards reports, which is useful when testing a
// companion without USB gadget support.
func openHID(filename string) (io.WriteCloser, error) {
	if filename == "-" {
		log.Warning("Keyboard reports are discarded")
		return nopWriteCloser{io.Discard}, nil
	}
	return os.OpenFile(filename, os.O_WRONLY, 0)
}

func main() {
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(1)
	}

	defer func() {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}
	}()

	flag.Usage = Usage
	config.RegisterCommandLineFlags()
	flag.Parse()
	if err = readFromEnvironment(); err != nil {
		return
	}
	config.ReadFromEnvironment()

	if daemonConfig.verbose {
		log.SetLevel(log.LevelDebug)
	}

	st, err := config.OpenStore()
	if err != nil {
		return
	}
	session, err := authentication.NewSession(st, nil)
	if err != nil {
		return
	}

	if daemonConfig.factoryReset {
		err = session.Erase()
		if err == nil {
			fmt.Println("Factory reset complete.")
		}
		return
	}

	reports, err := openHID(daemonConfig.hidDevice)
	if err != nil {
		return
	}
	defer reports.Close()
	keyboard := hid.NewTyper(hid.NewReportWriter(reports), hid.DefaultTiming)

	indicator := status.Multi{&status.LogIndicator{}}
	if !daemonConfig.quiet {
		indicator = append(indicator, status.NewTerminalIndicator(os.Stdout))
	}

	server, err := config.Transport()
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			fmt.Fprintf(os.Stderr, "\nTry again after granting this application CAP_NET_ADMIN:\n\n\tsudo setcap 'cap_net_admin=eip' \"$(which %s)\"\n\n", os.Args[0])
		}
		return
	}

	ch := channel.New(session, server, keyboard, mute.NewController(keyboard, st), indicator, channel.Config{
		KeepaliveInterval: daemonConfig.keepalive,
		DispatchQueueSize: daemonConfig.queueSize,
	})
	defer ch.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	served := make(chan error, 1)
	go func() {
		served <- server.Serve(ctx, ch)
	}()

	if err = ch.Start(ctx); err != nil {
		stop()
		<-served
		return
	}
	log.Info("Waiting for a companion")

	resets := make(chan os.Signal, 1)
	if sigs := resetSignals(); len(sigs) > 0 {
		signal.Notify(resets, sigs...)
		defer signal.Stop(resets)
	}

	for {
		select {
		case <-resets:
			if err := ch.FactoryReset(); err != nil {
				log.Error("Factory reset failed: %s", err)
			}
		case err = <-served:
			if errors.Is(err, context.Canceled) {
				log.Info("Shutting down")
				err = nil
			}
			return
		}
	}
}
