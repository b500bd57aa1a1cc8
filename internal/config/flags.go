// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"flag"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses the configuration flags found in args.
//
// Flags:
//
//	-a remote API address (URL or host:port)
//	-listen dev server listen address in format [host]:[port]
//	-d database DSN (SQLite file path)
//	-c/-config json file path with configs
//	-log log file path
//	-log-level minimum log level (debug, info, warn, error)
//	-background run one sync pass and exit
//	-request-timeout per request timeout (e.g. "15s")
//	-rate-limit outbound requests per second
//	-lanes concurrent sync lanes
//	-max-attempts dispatches before a retryable failure becomes permanent
//	-sync-interval wake job period (e.g. "5m")
//	-probe-interval health probe period (e.g. "10s")
//	-debounce online debounce window (e.g. "1.5s")
//	-token-sign-key dev server JWT signing key
func ParseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("go-offline-sync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var listenAddress NetAddress
	var adapterAddress, databaseDSN, jsonConfigPath, logPath, logLevel, tokenSignKey string
	var background bool
	var requestTimeout, syncInterval, probeInterval, debounce time.Duration
	var rateLimit float64
	var lanes, maxAttempts int

	fs.StringVar(&adapterAddress, "a", "", "Remote API address")
	fs.Var(&listenAddress, "listen", "Dev server listen address host:port")
	fs.StringVar(&databaseDSN, "d", "", "Database DSN")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&logPath, "log", "", "Log file path")
	fs.StringVar(&logLevel, "log-level", "", "Minimum log level")
	fs.BoolVar(&background, "background", false, "Run a single sync pass and exit")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 15s)")
	fs.Float64Var(&rateLimit, "rate-limit", 0, "Outbound requests per second")
	fs.IntVar(&lanes, "lanes", 0, "Concurrent sync lanes")
	fs.IntVar(&maxAttempts, "max-attempts", 0, "Dispatch attempts before giving up")
	fs.DurationVar(&syncInterval, "sync-interval", 0, "Periodic wake interval (e.g., 5m)")
	fs.DurationVar(&probeInterval, "probe-interval", 0, "Health probe interval (e.g., 10s)")
	fs.DurationVar(&debounce, "debounce", 0, "Online debounce window (e.g., 1.5s)")
	fs.StringVar(&tokenSignKey, "token-sign-key", "", "Token signing key")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		App: App{
			LogPath:      logPath,
			LogLevel:     logLevel,
			Background:   background,
			TokenSignKey: tokenSignKey,
		},
		Storage: Storage{DB: DB{DSN: databaseDSN}},
		Server:  Server{HTTPAddress: listenAddress.String()},
		Adapter: Adapter{
			HTTPAddress:    adapterAddress,
			RequestTimeout: requestTimeout,
			RateLimit:      rateLimit,
		},
		Sync:         Sync{Lanes: lanes, MaxAttempts: maxAttempts},
		Connectivity: Connectivity{ProbeInterval: probeInterval, Debounce: debounce},
		Workers:      Workers{SyncInterval: syncInterval},
		JSONFilePath: jsonConfigPath,
	}, nil
}

// String returns a canonical host:port string for a NetAddress.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" && host != "" {
		if ip := net.ParseIP(host); ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
