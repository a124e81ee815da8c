package gate

import (
	"io"

	"github.com/fencegate/fencegate/internal/audit"
	"github.com/fencegate/fencegate/internal/config"
	"github.com/fencegate/fencegate/internal/intercept"
	"github.com/fencegate/fencegate/internal/report"
	"github.com/fencegate/fencegate/internal/truststore"
	"github.com/fencegate/fencegate/internal/vault"
)

// Assembly is a fully wired gate built from persisted configuration:
// the trust store over the configured vault and sources, denial
// history, the audit log, and a controller watching every trust
// source file.
type Assembly struct {
	Controller *Controller
	Store      *truststore.Store
	Manager    *intercept.Manager
	Denials    *report.Store // nil when no denial db is configured
	Audit      *audit.Log    // nil when no audit log is configured
}

// FromConfig wires a controller from configuration. Denials render to
// out and, when cfg.DenialDB is set, are also recorded for later
// review and promotion. When cfg.AuditLog is set every verdict is
// chained into it. Close the assembly after the controller is
// deactivated.
func FromConfig(cfg *config.Config, resolver Resolver, out io.Writer) (*Assembly, error) {
	v := vault.Open(cfg.Vault)

	a := &Assembly{
		Store:   truststore.New(v, cfg.Manual(), cfg.Sources()),
		Manager: intercept.NewManager(),
	}

	reporters := report.Fanout{report.NewRenderer(out)}
	if cfg.DenialDB != "" {
		denials, err := report.OpenStore(cfg.DenialDB)
		if err != nil {
			return nil, err
		}
		a.Denials = denials
		reporters = append(reporters, denials)
	}

	opts := Options{
		Integrations: cfg.Integrations,
		Flags:        cfg.Flags(),
		WatchPaths:   watchPaths(v, cfg),
	}
	if cfg.AuditLog != "" {
		log, err := audit.Open(cfg.AuditLog)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Audit = log
		opts.Audit = log
	}

	a.Controller = New(a.Store, a.Manager, resolver, reporters, opts)
	return a, nil
}

// watchPaths resolves every trust source to a file path for the
// change watcher. A note reference that escapes the vault is skipped
// here; Refresh reports it when it tries to read the source.
func watchPaths(v *vault.Vault, cfg *config.Config) []string {
	var paths []string
	for _, ref := range cfg.TrustedNotes {
		p, err := v.Resolve(ref)
		if err != nil {
			continue
		}
		paths = append(paths, p)
	}
	return append(paths, cfg.TrustedFiles...)
}

// Close releases the denial store and audit log, if open.
func (a *Assembly) Close() error {
	var first error
	if a.Denials != nil {
		if err := a.Denials.Close(); err != nil {
			first = err
		}
	}
	if a.Audit != nil {
		if err := a.Audit.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
