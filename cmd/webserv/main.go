// Command webserv starts the HTTP server described by a configuration
// file, defaulting to config/default.conf the way main.cpp does when
// no argument is given.
package main

import (
	"os"
	"os/signal"

	"golang.org/x/sys/unix"

	"github.com/hipoliciak/webserv/internal/config"
	"github.com/hipoliciak/webserv/internal/engine"
	"github.com/hipoliciak/webserv/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := "config/default.conf"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	logging.Infof("starting webserv, config file: %s", configPath)

	servers, err := config.Parse(configPath)
	if err != nil {
		logging.Errorf("failed to parse configuration: %v", err)
		return 1
	}

	loop, err := engine.New(servers)
	if err != nil {
		logging.Errorf("failed to initialize server: %v", err)
		return 1
	}
	defer loop.Close()

	for _, s := range servers {
		logging.Infof("server listening on %s:%d", s.Host, s.Port)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, unix.SIGTERM)
	go func() {
		<-sigCh
		logging.Infof("shutting down server")
		loop.Stop()
	}()

	if err := loop.Run(); err != nil {
		logging.Errorf("server loop exited with error: %v", err)
		return 1
	}
	return 0
}
