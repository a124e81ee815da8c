package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/fencegate/fencegate/internal/audit"
	"github.com/fencegate/fencegate/internal/config"
	"github.com/fencegate/fencegate/internal/digest"
	"github.com/fencegate/fencegate/internal/gate"
	"github.com/fencegate/fencegate/internal/script"
)

func init() {
	rootCmd.AddCommand(demoCmd)
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through the gate lifecycle with a toy engine",
	Long: "Registers a toy execution engine, gates it, runs an untrusted\n" +
		"snippet (blocked and recorded), trusts its digest, and runs it\n" +
		"again (allowed). Uses a throwaway configuration; your own config\n" +
		"is not read or written.",
	RunE: runDemo,
}

// echoEngine is the toy integration used by the demo.
type echoEngine struct {
	entries map[string]script.RunFunc
}

func (e *echoEngine) Name() string { return "echo-runner" }

func (e *echoEngine) EntryPoints() []string {
	out := make([]string, 0, len(e.entries))
	for name := range e.entries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (e *echoEngine) EntryPoint(name string) (script.RunFunc, error) {
	fn, ok := e.entries[name]
	if !ok {
		return nil, fmt.Errorf("no entry point %q", name)
	}
	return fn, nil
}

func (e *echoEngine) SetEntryPoint(name string, fn script.RunFunc) error {
	if _, ok := e.entries[name]; !ok {
		return fmt.Errorf("no entry point %q", name)
	}
	e.entries[name] = fn
	return nil
}

func runDemo(cmd *cobra.Command, args []string) error {
	eng := &echoEngine{entries: map[string]script.RunFunc{
		"run": func(ctx context.Context, c script.Call) (script.Result, error) {
			return script.Result{Output: "engine output for: " + c.Source}, nil
		},
	}}

	registry := gate.NewRegistry()
	registry.Register(eng)

	dir, err := os.MkdirTemp("", "fencegate-demo-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	cfg := &config.Config{
		Integrations: []string{"echo-runner"},
		DenialDB:     filepath.Join(dir, "denials.db"),
		AuditLog:     filepath.Join(dir, "verdicts.jsonl"),
	}
	asm, err := gate.FromConfig(cfg, registry, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer asm.Close()

	if err := asm.Controller.Activate(cmd.Context()); err != nil {
		return err
	}
	defer asm.Controller.Deactivate()

	for !asm.Manager.Installed("echo-runner", "run") {
		time.Sleep(10 * time.Millisecond)
	}

	call := script.Call{
		Source:   `print("hello vault")`,
		Location: script.Location{Note: "demo.md", Line: 1},
	}
	run := func() error {
		fn, err := eng.EntryPoint("run")
		if err != nil {
			return err
		}
		res, err := fn(cmd.Context(), call)
		if err != nil {
			return err
		}
		if !res.Denied {
			fmt.Fprintln(cmd.OutOrStdout(), res.Output)
		}
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), "-- invoking with empty trust list --")
	if err := run(); err != nil {
		return err
	}

	sum := digest.Sum(call.Source)
	fmt.Fprintf(cmd.OutOrStdout(), "\n-- trusting %s and refreshing --\n", sum.Short())
	asm.Store.AddManual(sum)
	asm.Store.Refresh(cmd.Context())

	if err := run(); err != nil {
		return err
	}

	denials, err := asm.Denials.List(0)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n-- %d denial recorded, audit chain valid: %v --\n",
		len(denials), audit.Verify(cfg.AuditLog).Valid)
	return nil
}
