package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/chaz8081/gostt-kbd/internal/log"
	"github.com/chaz8081/gostt-kbd/pkg/cli"
	"github.com/chaz8081/gostt-kbd/pkg/connector"
	"github.com/chaz8081/gostt-kbd/pkg/peer"
)

// Suffix of the keyring service name, so a daemon and a companion on the same host keep separate
// keys.
const keyringSuffix = ".companion"

func writeErr(format string, a ...interface{}) {
	fmt.Fprintf(os.Stderr, format, a...)
	fmt.Fprintf(os.Stderr, "\n")
}

const usage = `
 * Run pair once before other commands. The key is kept in the system keyring or -store-file.
 * The keyboard is found over BLE by name unless -ws or -mdns is given.
 * Without a COMMAND, commands are read from standard input.`

func Usage() {
	fmt.Printf("Usage: %s [OPTION...] COMMAND [ARG...]\n", os.Args[0])
	fmt.Printf("\nRun %s help COMMAND for more information. Valid COMMANDs are listed below.", os.Args[0])
	fmt.Println("")
	fmt.Println(usage)
	fmt.Println("")

	fmt.Printf("Available OPTIONs:\n")
	flag.PrintDefaults()
	fmt.Println("")
	fmt.Printf("Available COMMANDs:\n")
	maxLength := 0
	var labels []string
	for command := range commands {
		labels = append(labels, command)
		if len(command) > maxLength {
			maxLength = len(command)
		}
	}
	sort.Strings(labels)
	for _, command := range labels {
		info := commands[command]
		fmt.Printf("  %s%s %s\n", command, strings.Repeat(" ", maxLength-len(command)), info.help)
	}
}

func runCommand(s *Session, args []string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := execute(ctx, s, args); err != nil {
		switch {
		case errors.Is(err, peer.ErrPairingTimeout):
			writeErr("The keyboard did not answer. Make sure it is connected to power and not paired to another client.")
		case errors.Is(err, connector.ErrClosed), errors.Is(err, peer.ErrLinkClosed):
			writeErr("Lost connection to the keyboard: %s", err)
		default:
			writeErr("Failed to execute command: %s", err)
		}
		return 1
	}
	return 0
}

func runInteractiveShell(s *Session, timeout time.Duration) int {
	scanner := bufio.NewScanner(os.Stdin)
	for fmt.Printf("> "); scanner.Scan(); fmt.Printf("> ") {
		args, err := shlex.Split(scanner.Text())
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" {
			return 0
		}
		if err != nil {
			writeErr("Invalid command: %s", err)
			continue
		}
		runCommand(s, args, timeout)
	}
	if err := scanner.Err(); err != nil {
		writeErr("Error reading command: %s", err)
		return 1
	}
	return 0
}

func main() {
	status := 1
	defer func() {
		os.Exit(status)
	}()

	var (
		debug          bool
		commandTimeout time.Duration
		connTimeout    time.Duration
		chunkDelay     time.Duration
	)
	config, err := cli.NewConfig(cli.FlagAll)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %s\n", err)
		os.Exit(1)
	}
	config.Backend.ServiceName += keyringSuffix
	flag.Usage = Usage
	flag.BoolVar(&debug, "debug", false, "Enable verbose debugging messages")
	flag.DurationVar(&commandTimeout, "command-timeout", peer.DefaultPairTimeout, "Set timeout for commands sent to the keyboard.")
	flag.DurationVar(&connTimeout, "connect-timeout", 20*time.Second, "Set timeout for establishing initial connection.")
	flag.DurationVar(&chunkDelay, "chunk-delay", peer.DefaultChunkDelay, "Pause between chunks of long text.")

	config.RegisterCommandLineFlags()
	flag.Parse()
	if !debug {
		if debugEnv, ok := os.LookupEnv("GOSTT_VERBOSE"); ok {
			debug = debugEnv != "false" && debugEnv != "0"
		}
	}
	if debug {
		log.SetLevel(log.LevelDebug)
	}
	config.ReadFromEnvironment()

	args := flag.Args()
	local := false
	if len(args) > 0 {
		if args[0] == "help" {
			if len(args) == 1 {
				Usage()
				status = 0
				return
			}
			info, ok := commands[args[1]]
			if !ok {
				writeErr("Unrecognized command: %s", args[1])
				return
			}
			info.Usage(args[1])
			status = 0
			return
		}
		info, ok := commands[args[0]]
		if !ok {
			writeErr("Unrecognized command: %s", args[0])
			return
		}
		local = info.local
	}

	st, err := config.OpenStore()
	if err != nil {
		writeErr("Error opening store: %s", err)
		return
	}

	var conn connector.Connector
	if !local {
		ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
		conn, err = config.Connect(ctx)
		cancel()
		if err != nil {
			writeErr("Error: %s", err)
			// Error isn't wrapped so we have to check for a substring explicitly.
			if strings.Contains(err.Error(), "operation not permitted") {
				writeErr("\nTry again after granting this application CAP_NET_ADMIN:\n\n\tsudo setcap 'cap_net_admin=eip' \"$(which %s)\"\n", os.Args[0])
			}
			return
		}
		defer conn.Close()
	}

	session, err := NewSession(conn, st, chunkDelay)
	if err != nil {
		writeErr("Error loading key: %s", err)
		return
	}

	if flag.NArg() > 0 {
		status = runCommand(session, flag.Args(), commandTimeout)
	} else {
		status = runInteractiveShell(session, commandTimeout)
	}
}
