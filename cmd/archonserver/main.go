// The archonserver command is the main entrypoint for running the
// server core: it loads configuration and hands off to the Controller,
// which owns every listener and the cooperative event loop for the
// rest of the process's life.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/quietloop/archon/internal"
	"github.com/quietloop/archon/internal/core"
)

var configFlag = pflag.StringP("config", "c", "./", "Path to the directory containing the server config file")

func main() {
	pflag.Parse()

	config := core.LoadConfig(*configFlag)
	fmt.Println("using configuration file:", *configFlag)

	// Change to the same directory as the config file so that any
	// relative paths in the config file (sqlite filename, TLS cert/key,
	// packet capture file) resolve the same way regardless of cwd.
	if err := os.Chdir(*configFlag); err != nil {
		fmt.Println("error changing to config directory:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go exitHandler(cancel, sig)

	controller := &internal.Controller{Config: config}
	controller.Start(ctx)

	fmt.Println("shut down")
}

func exitHandler(cancelFn func(), c chan os.Signal, wg ...*sync.WaitGroup) {
	<-c
	fmt.Println("waiting to shut down gracefully...")

	cancelFn()
	exitChan := make(chan bool)
	go func() {
		for _, wg := range wg {
			wg.Wait()
		}
		exitChan <- true
	}()

	select {
	case <-c:
		fmt.Println("hard exiting (killed)")
	case <-exitChan:
	}

	os.Exit(0)
}
