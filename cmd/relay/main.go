// Package main starts the relay real-time service and handles termination.
//
// The process is a transport adapter around session lifecycle and
// full-document fan-out; editor state lives in the relay's session store
// for exactly as long as someone is connected.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	relaycmd "github.com/pairpad/pairpad/internal/cmd/relay"
	"github.com/pairpad/pairpad/internal/platform/config"
)

func main() {
	cfg, err := relaycmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	log.SetPrefix("[RELAY] ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := relaycmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
