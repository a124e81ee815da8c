// Package gate is the lifecycle owner of the trusted-execution gate.
// The controller refreshes the trust store, wires refresh triggers to
// trust-source changes, installs guards around every entry point of
// every resolved integration, and routes denied invocations to the
// reporting collaborator. It exclusively owns all active bindings.
package gate

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/fencegate/fencegate/internal/audit"
	"github.com/fencegate/fencegate/internal/digest"
	"github.com/fencegate/fencegate/internal/intercept"
	"github.com/fencegate/fencegate/internal/policy"
	"github.com/fencegate/fencegate/internal/report"
	"github.com/fencegate/fencegate/internal/script"
	"github.com/fencegate/fencegate/internal/truststore"
	"github.com/fencegate/fencegate/internal/vault"
)

const (
	defaultResolveAttempts = 8
	defaultResolveInitial  = 100 * time.Millisecond
	defaultResolveMax      = 5 * time.Second
)

// Options configure a Controller.
type Options struct {
	// Integrations names the foreign execution engines to gate.
	Integrations []string
	// Flags are the operator override flags in effect at activation.
	Flags policy.Flags
	// WatchPaths are trust-source files whose changes trigger a
	// trust store refresh.
	WatchPaths []string
	// Audit, when non-nil, records every verdict.
	Audit *audit.Log

	// Resolution retry budget. An integration that never resolves
	// within the budget is not gated; the rest of the system keeps
	// operating.
	ResolveAttempts int
	ResolveInitial  time.Duration
	ResolveMax      time.Duration
}

// Controller wires the trust store, interception manager, resolver,
// and reporter together across the activate/deactivate lifecycle.
type Controller struct {
	store    *truststore.Store
	manager  *intercept.Manager
	resolver Resolver
	reporter report.Reporter
	opts     Options

	mu       sync.Mutex
	flags    policy.Flags
	bindings []*intercept.Binding
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a Controller. Nothing is installed until Activate.
func New(store *truststore.Store, manager *intercept.Manager, resolver Resolver, reporter report.Reporter, opts Options) *Controller {
	if opts.ResolveAttempts <= 0 {
		opts.ResolveAttempts = defaultResolveAttempts
	}
	if opts.ResolveInitial <= 0 {
		opts.ResolveInitial = defaultResolveInitial
	}
	if opts.ResolveMax <= 0 {
		opts.ResolveMax = defaultResolveMax
	}
	return &Controller{
		store:    store,
		manager:  manager,
		resolver: resolver,
		reporter: reporter,
		opts:     opts,
		flags:    opts.Flags,
	}
}

// Flags returns the override flags currently in effect.
func (c *Controller) Flags() policy.Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

// SetFlags replaces the override flags. Applies to subsequent
// invocations; in-flight calls keep the flags they were evaluated with.
func (c *Controller) SetFlags(f policy.Flags) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flags = f
}

// Activate refreshes the trust store, starts the trust-source watcher,
// and begins resolving and gating each configured integration.
// Resolution runs concurrently per integration since engines load in
// arbitrary order; Activate itself does not block on them.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return nil // already active
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	c.store.Refresh(runCtx)

	if len(c.opts.WatchPaths) > 0 {
		w, err := vault.NewWatcher(c.opts.WatchPaths, func() {
			c.store.Refresh(runCtx)
			logrus.Info("trust store refreshed after source change")
		})
		if err != nil {
			logrus.WithError(err).Warn("trust source watching disabled")
		} else {
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				w.Run(runCtx)
			}()
		}
	}

	for _, name := range c.opts.Integrations {
		c.wg.Add(1)
		go func(name string) {
			defer c.wg.Done()
			c.gateIntegration(runCtx, name)
		}(name)
	}
	return nil
}

// Deactivate cancels resolution loops and the watcher, then uninstalls
// every binding the controller owns. A binding that is already gone is
// not an error.
func (c *Controller) Deactivate() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()

	c.mu.Lock()
	bindings := c.bindings
	c.bindings = nil
	c.mu.Unlock()

	for _, b := range bindings {
		if err := c.manager.Uninstall(b); err != nil {
			// Already-gone bindings are tolerated; anything else is
			// a lifecycle bug worth surfacing in the log.
			logrus.WithError(err).WithField("entry", b.Entry).Warn("uninstall during deactivation")
		}
	}
}

// Bindings returns the bindings the controller currently owns.
func (c *Controller) Bindings() []*intercept.Binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*intercept.Binding(nil), c.bindings...)
}

func (c *Controller) gateIntegration(ctx context.Context, name string) {
	target, err := c.resolveWithRetry(ctx, name)
	if err != nil {
		if ctx.Err() != nil {
			return // deactivated while waiting
		}
		logrus.WithError(err).WithField("integration", name).
			Error("integration never resolved, leaving it ungated")
		return
	}

	for _, entry := range target.EntryPoints() {
		if err := c.gateEntryPoint(target, entry); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"integration": name,
				"entry":       entry,
			}).Error("failed to install guard")
		}
	}
	logrus.WithField("integration", name).Info("integration gated")
}

// resolveWithRetry waits for an integration to come up: bounded
// attempts, exponentially increasing delay, cancelled by deactivation.
func (c *Controller) resolveWithRetry(ctx context.Context, name string) (intercept.Target, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.opts.ResolveInitial
	bo.MaxInterval = c.opts.ResolveMax
	bo.MaxElapsedTime = 0

	var target intercept.Target
	err := backoff.Retry(func() error {
		t, err := c.resolver.Resolve(name)
		if err != nil {
			return err
		}
		target = t
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.opts.ResolveAttempts-1)), ctx))
	if err != nil {
		return nil, err
	}
	return target, nil
}

// gateEntryPoint installs a guard at one entry point. The guard closes
// over the controller's policy inputs and the binding itself, so it
// never performs a runtime lookup to find its dependencies.
func (c *Controller) gateEntryPoint(target intercept.Target, entry string) error {
	name := target.Name()

	b, err := c.manager.Install(target, entry, func(b *intercept.Binding) script.RunFunc {
		return func(ctx context.Context, call script.Call) (script.Result, error) {
			// Read-then-decide against one consistent snapshot: a
			// refresh completing mid-call does not retroactively
			// affect this invocation.
			snap := c.store.Snapshot()
			sum := digest.Sum(call.Source)
			verdict := policy.Decide(sum, name, c.Flags(), snap)

			c.recordVerdict(call, name, sum, verdict)

			if verdict == policy.Deny {
				c.reporter.ReportDenied(call.Location, sum, name)
				return script.Result{Denied: true}, nil
			}
			return c.manager.Delegate(ctx, b, call)
		}
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.bindings = append(c.bindings, b)
	c.mu.Unlock()
	return nil
}

func (c *Controller) recordVerdict(call script.Call, integration string, sum digest.Entry, verdict policy.Verdict) {
	if c.opts.Audit == nil {
		return
	}
	err := c.opts.Audit.Record(audit.Entry{
		Note:        call.Location.Note,
		Line:        call.Location.Line,
		Integration: integration,
		Digest:      string(sum),
		Verdict:     string(verdict),
	})
	if err != nil {
		logrus.WithError(err).Warn("failed to record verdict")
	}
}
