package progs

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pebbles/kern"
	"pebbles/kern/loader"
)

type lineLog struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineLog) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, s)
}

func (l *lineLog) WriteLineBytes(b []byte) { l.WriteLineString(string(b)) }

func (l *lineLog) text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.lines, "\n")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := loader.New()
	if err := Register(r); err != nil {
		t.Fatal(err)
	}
	if err := Register(r); err == nil {
		t.Fatal("second Register() succeeded")
	}
	if len(r.Names()) != len(All()) {
		t.Fatalf("Names() = %q", r.Names())
	}
}

func TestShellSession(t *testing.T) {
	r := loader.New()
	if err := Register(r); err != nil {
		t.Fatal(err)
	}
	log := &lineLog{}
	cfg := kern.DefaultConfig()
	cfg.Cores = 3
	cfg.Hz = 500
	cfg.Log = log
	m, err := kern.New(cfg, r)
	if err != nil {
		t.Fatal(err)
	}

	script := strings.Join([]string{
		`hello "a b" c`,
		"forkwait 5",
		"threads 3",
		"sleeper 5",
		"nosuch",
		"cursor 2 3",
		"version",
		"exit 0",
	}, "\n") + "\n"
	for i := 0; i < len(script); i++ {
		if !m.Key(script[i]) {
			t.Fatal("keyboard buffer full")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.Run(ctx, nil, nil); err != nil {
		t.Fatalf("Run() = %v\n%s", err, log.text())
	}

	out := log.text()
	for _, want := range []string{
		": a b c",
		"forkwait: 5 children, status sum 10",
		"threads: 3 threads ran",
		"sleeper: slept",
		"nosuch: no such program",
		"pebbles dev (commit unknown",
		"init: shell exited with status 0",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q\n%s", want, out)
		}
	}
}
