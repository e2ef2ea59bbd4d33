// Package app boots a pebbles machine on a HAL: it registers the bundled
// programs, mirrors the console to the framebuffer and reports when the
// machine stops.
package app

import (
	"context"
	"errors"

	"pebbles/hal"
	"pebbles/kern"
	"pebbles/kern/console"
	"pebbles/kern/core"
	"pebbles/kern/loader"
	"pebbles/progs"
)

// ErrHalted is returned by the step function once the machine stopped
// without error, for instance because init exited.
var ErrHalted = errors.New("app: machine halted")

type system struct {
	m    *kern.Machine
	fb   hal.Framebuffer
	r    *console.Renderer
	done chan error
}

type Config struct {
	Machine kern.Config
}

// New boots the default machine.
func New(h hal.HAL) func() error {
	return NewWithConfig(h, Config{Machine: kern.DefaultConfig()})
}

// NewWithConfig boots a machine on h and returns the host step function.
// The step redraws the console and returns ErrHalted, or the error that
// stopped the machine, once it is down. Boot errors are returned by the
// first step.
func NewWithConfig(h hal.HAL, cfg Config) func() error {
	s, err := newSystem(h, cfg)
	if err != nil {
		return func() error { return err }
	}
	return s.step
}

func newSystem(h hal.HAL, cfg Config) (*system, error) {
	reg := loader.New()
	if err := progs.Register(reg); err != nil {
		return nil, err
	}
	mcfg := cfg.Machine
	if mcfg.Log == nil {
		mcfg.Log = h.Logger()
	}
	m, err := kern.New(mcfg, reg)
	if err != nil {
		return nil, err
	}
	installPanicHandler(h)

	s := &system{m: m, done: make(chan error, 1)}
	if d := h.Display(); d != nil {
		s.fb = d.Framebuffer()
		s.r = console.NewRenderer(s.fb)
	}

	var clock hal.Time
	if t := h.Time(); t != nil && t.Ticks() != nil {
		clock = t
	}
	var kbd hal.Keyboard
	if in := h.Input(); in != nil {
		kbd = in.Keyboard()
	}
	go func() {
		s.done <- m.Run(context.Background(), clock, kbd)
	}()
	return s, nil
}

func (s *system) step() error {
	if s.r != nil && !core.InPanicMode() {
		s.r.Render(s.m.Console())
	}
	select {
	case err := <-s.done:
		if err == nil {
			return ErrHalted
		}
		return err
	default:
		return nil
	}
}
