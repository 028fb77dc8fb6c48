package framegraph

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestSetLoggerPropagates(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	defer SetLogger(nil)

	table, dev := newTestFrame(t)
	g := NewGraph(table)
	p := g.AddPass("logged_pass", fill(1))
	h := g.CreateTransient(p, colorTarget("t"))
	g.SetOutput(h)

	plan, err := g.Compile()
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	if _, err := NewExecutor(table, dev).Execute(plan); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"logged_pass", "compiled", "executed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestLoggerAccessorsAgree(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	SetLogger(l)
	defer SetLogger(nil)

	if Logger() != l {
		t.Error("Logger() does not return the configured logger")
	}
	if logger() != l {
		t.Error("package-internal accessor does not return the configured logger")
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	SetLogger(nil)

	Logger().Info("should not appear")
	if buf.Len() != 0 {
		t.Errorf("nop logger wrote output: %s", buf.String())
	}
}
