// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package server contains the lifecycle shared by the gateway listeners.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Server is a listener that can be started and gracefully stopped.
type Server interface {
	Start() error
	Stop() error
}

// Config is the listener configuration read from the environment.
type Config struct {
	Host     string `env:"HOST"        envDefault:""`
	Port     string `env:"PORT"        envDefault:""`
	CertFile string `env:"SERVER_CERT" envDefault:""`
	KeyFile  string `env:"SERVER_KEY"  envDefault:""`
}

// BaseServer holds the fields every listener implementation needs.
type BaseServer struct {
	Ctx      context.Context
	Cancel   context.CancelFunc
	Name     string
	Address  string
	Config   Config
	Logger   *slog.Logger
	Protocol string
}

func stopAllServer(servers ...Server) error {
	var err error
	for _, server := range servers {
		if err1 := server.Stop(); err1 != nil {
			if err == nil {
				err = fmt.Errorf("%w", err1)
				continue
			}
			err = fmt.Errorf("%v ; %w", err, err1)
		}
	}
	return err
}

// StopSignalHandler stops the servers on SIGINT or SIGABRT, or returns when
// ctx is done.
func StopSignalHandler(ctx context.Context, cancel context.CancelFunc, logger *slog.Logger, svcName string, servers ...Server) error {
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGABRT)
	select {
	case sig := <-c:
		defer cancel()
		err := stopAllServer(servers...)
		if err != nil {
			logger.Error(fmt.Sprintf("%s service error during shutdown: %v", svcName, err))
		}
		logger.Info(fmt.Sprintf("%s service shutdown by signal: %s", svcName, sig))
		return err
	case <-ctx.Done():
		return nil
	}
}
