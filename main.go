package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"pebbles/app"
	"pebbles/hal"
	"pebbles/internal/buildinfo"
	"pebbles/kern"
)

func main() {
	var cfg hal.HeadlessConfig
	var stdin bool
	mcfg := kern.DefaultConfig()
	flag.BoolVar(&cfg.Enabled, "headless", false, "Run without a window; console lines go to stdout.")
	flag.IntVar(&cfg.Hz, "hz", 60, "Step rate in headless mode.")
	flag.Uint64Var(&cfg.Ticks, "steps", 0, "Stop after N steps in headless mode (0 = run until init exits).")
	flag.BoolVar(&stdin, "stdin", true, "Read keyboard input from stdin in headless mode.")
	flag.IntVar(&mcfg.Cores, "cores", mcfg.Cores, "Number of cores, the manager core included.")
	flag.IntVar(&mcfg.StackSlots, "slots", mcfg.StackSlots, "Thread slots per core.")
	flag.IntVar(&mcfg.Frames, "frames", mcfg.Frames, "Physical frames.")
	flag.StringVar(&mcfg.Init, "init", mcfg.Init, "First program to run.")
	flag.Parse()
	mcfg.Args = flag.Args()

	fmt.Fprintf(os.Stderr, "pebbles %s: %d cores\n", buildinfo.Short(), mcfg.Cores)
	newApp := func(h hal.HAL) func() error {
		return app.NewWithConfig(h, app.Config{Machine: mcfg})
	}

	var err error
	if cfg.Enabled {
		if stdin {
			cfg.Input = os.Stdin
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err = hal.RunHeadless(ctx, newApp, cfg)
	} else {
		err = hal.RunWindow(newApp)
	}
	switch {
	case err == nil, errors.Is(err, app.ErrHalted), errors.Is(err, context.Canceled):
		return
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
