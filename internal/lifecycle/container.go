// Package lifecycle manages the full lifecycle of an ephemeral container used
// as a test dependency: reuse matching, creation, start, layered readiness
// and teardown, driven through a narrow engine interface.
package lifecycle

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/api/types/container"

	"github.com/vesselhq/vessel/pkg/logger"
)

// internalHostHostname resolves to the test host inside containers when a
// port-forwarding helper is active.
const internalHostHostname = "host.vessel.internal"

// Container drives one managed container instance. It is owned by a single
// logical caller: Start and Stop are not synchronized against concurrent
// calls on the same instance.
type Container struct {
	Spec *Spec

	engine        Engine
	reaper        Reaper
	hooks         any
	waitStrategy  WaitStrategy
	portForwarder PortForwarder
	dependencies  []Startable
	log           *log.Logger

	startupAttempts int
	reuseRequested  bool
	reuseSupported  bool

	portWaitCeiling  time.Duration
	portWaitInterval time.Duration

	// Runtime identity, replaced wholesale on each (re)start and cleared on
	// stop. Only Start and Stop mutate these.
	containerID string
	info        *container.InspectResponse
	reused      bool
}

// Option configures a Container at construction time.
type Option func(*Container)

// WithReuse requests adoption of an already-running container with an
// identical fingerprint instead of creating a new one. Requires a supporting
// environment (see WithReuseSupported) and a hook set without custom
// just-created behavior.
func WithReuse() Option {
	return func(c *Container) { c.reuseRequested = true }
}

// WithReuseSupported declares whether the runtime environment permits reuse
// (typically config.Load().ReuseEnabled). Defaults to false.
func WithReuseSupported(supported bool) Option {
	return func(c *Container) { c.reuseSupported = supported }
}

// WithStartupAttempts allows the full create/start/ready cycle to be
// attempted more than once. Defaults to 1.
func WithStartupAttempts(attempts int) Option {
	return func(c *Container) { c.startupAttempts = attempts }
}

// WithHooks registers a hook set; each stage runs when the set implements the
// corresponding interface from hooks.go.
func WithHooks(hooks any) Option {
	return func(c *Container) { c.hooks = hooks }
}

// WithWaitStrategy sets the application-level readiness probe. Nil skips the
// application-wait stage.
func WithWaitStrategy(ws WaitStrategy) Option {
	return func(c *Container) { c.waitStrategy = ws }
}

// WithReaper overrides the teardown collaborator.
func WithReaper(r Reaper) Option {
	return func(c *Container) { c.reaper = r }
}

// WithDependencies declares startables that must be started before this
// container begins creation. Cyclic dependencies deadlock; see DeepStart.
func WithDependencies(deps ...Startable) Option {
	return func(c *Container) { c.dependencies = append(c.dependencies, deps...) }
}

// WithPortForwarder registers an active port-forwarding helper.
func WithPortForwarder(pf PortForwarder) Option {
	return func(c *Container) { c.portForwarder = pf }
}

// WithLogger overrides the per-image logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Container) { c.log = l }
}

// withPortWaitPolicy overrides the port-readiness poll ceiling and interval.
// Kept internal; the defaults are part of the readiness contract.
func withPortWaitPolicy(ceiling, interval time.Duration) Option {
	return func(c *Container) {
		c.portWaitCeiling = ceiling
		c.portWaitInterval = interval
	}
}

// New returns an unstarted container for the given spec.
func New(engine Engine, spec *Spec, opts ...Option) *Container {
	c := &Container{
		Spec:             spec,
		engine:           engine,
		startupAttempts:  1,
		portWaitCeiling:  defaultPortWaitCeiling,
		portWaitInterval: defaultPortWaitInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.ForImage(spec.Image.Raw())
	}
	return c
}

// ID returns the engine-assigned container id, or "" before Start.
func (c *Container) ID() string {
	return c.containerID
}

// IsReused reports whether an existing container was adopted rather than
// created on the last start.
func (c *Container) IsReused() bool {
	return c.reused
}

// Info returns the inspect snapshot captured at startup, or nil.
func (c *Container) Info() *container.InspectResponse {
	return c.info
}

// Dependencies implements Startable.
func (c *Container) Dependencies() []Startable {
	return c.dependencies
}

// Start brings the container to the ready state: dependencies first, then up
// to the configured number of full create/start/ready attempts. Calling
// Start on an already-started container is a no-op.
func (c *Container) Start(ctx context.Context) error {
	if c.containerID != "" {
		return nil
	}
	if err := c.Spec.validate(); err != nil {
		return err
	}
	if c.reuseRequested && !c.canBeReused() {
		return &ConfigError{Reason: "this container does not support reuse: its hooks customize just-created behavior"}
	}

	if err := DeepStart(ctx, c.dependencies...); err != nil {
		return fmt.Errorf("starting dependencies: %w", err)
	}

	// Resolve the image eagerly so a bad reference fails fast, before the
	// retry driver spends attempts on it.
	imageRef, err := c.Spec.Image.Resolve(ctx, c.engine)
	if err != nil {
		return &LaunchError{Cause: err}
	}

	startedAt := time.Now()
	driver := &startupDriver{attempts: c.startupAttempts, log: c.log}
	if err := driver.run(ctx, func(ctx context.Context) error {
		return c.tryStart(ctx, imageRef)
	}); err != nil {
		return &LaunchError{Cause: err, Logs: c.captureLogs(ctx)}
	}

	c.log.Info("container started", "id", c.containerID, "took", time.Since(startedAt))
	return nil
}

// tryStart performs one full attempt of the creation sequence. Every attempt
// begins from the not-created state.
func (c *Container) tryStart(ctx context.Context, imageRef string) error {
	c.containerID = ""
	c.info = nil
	c.reused = false

	if err := c.hookBeforeStart(ctx); err != nil {
		return fmt.Errorf("before-start hook: %w", err)
	}

	extras, err := c.resolveBuildExtras(ctx)
	if err != nil {
		return err
	}
	req := buildCreateRequest(c.Spec, imageRef, extras)

	c.log.Info("creating container")

	reused := false
	reusable := false
	if c.reuseRequested {
		if c.reuseSupported {
			filesSum, err := hashCopiedFiles(c.Spec.CopyFiles)
			if err != nil {
				return fmt.Errorf("checksum copied files: %w", err)
			}
			req.Config.Labels[LabelCopiedFilesHash] = fmt.Sprintf("%x", filesSum)

			hash, err := fingerprint(req)
			if err != nil {
				return err
			}

			id, err := c.findContainerForReuse(ctx, hash)
			if err != nil {
				return fmt.Errorf("looking up reusable container: %w", err)
			}
			if id != "" {
				c.log.Info("reusing container", "id", id, "hash", hash)
				c.containerID = id
				reused = true
			} else {
				c.log.Debug("no reusable running container found", "hash", hash)
				req.Config.Labels[LabelHash] = hash
			}
			reusable = true
		} else {
			c.log.Warn("reuse was requested but the environment does not support reuse of containers; " +
				"set reuse_enabled: true in ~/.vessel.yaml or VESSEL_REUSE_ENABLE=true")
		}
	}

	if !reusable {
		req.Config.Labels[LabelSessionID] = SessionID()
	}

	if !reused {
		id, err := c.engine.CreateContainer(ctx, req.Config, req.Host, req.Networking, "")
		if err != nil {
			return fmt.Errorf("create container: %w", err)
		}
		c.containerID = id

		for _, f := range c.Spec.CopyFiles {
			if err := c.engine.CopyToContainer(ctx, id, f.SourcePath, f.DestPath); err != nil {
				return fmt.Errorf("copy %s to container: %w", f.SourcePath, err)
			}
		}
	}

	if err := c.connectToPortForwardingNetwork(ctx, string(req.Host.NetworkMode)); err != nil {
		return err
	}

	if !reused {
		if err := c.hookCreated(ctx); err != nil {
			return fmt.Errorf("created hook: %w", err)
		}
		c.log.Info("starting container", "id", c.containerID)
		if err := c.engine.StartContainer(ctx, c.containerID); err != nil {
			return fmt.Errorf("start container: %w", err)
		}
		if err := c.hookStarting(ctx, reused); err != nil {
			return fmt.Errorf("starting hook: %w", err)
		}
	}

	c.log.Info("container is starting", "id", c.containerID)

	info, err := c.waitForPortBindings(ctx)
	if err != nil {
		return c.diagnoseStartupFailure(ctx, err)
	}
	c.info = &info
	c.reused = reused

	if sc := c.Spec.StartupCheck; sc != nil {
		ok, err := sc.WaitUntilStartupSuccessful(ctx, c.engine, c.containerID)
		if err != nil {
			return c.diagnoseStartupFailure(ctx, err)
		}
		if !ok {
			return c.diagnoseStartupFailure(ctx, fmt.Errorf("container did not start correctly"))
		}
	}

	if c.waitStrategy != nil {
		if err := c.waitStrategy.WaitUntilReady(ctx, c); err != nil {
			return c.diagnoseStartupFailure(ctx, err)
		}
	}

	return c.hookStarted(ctx, reused)
}

// resolveBuildExtras resolves the request inputs that depend on the live
// engine: legacy link targets (and their networks) and the port-forwarder
// host entry.
func (c *Container) resolveBuildExtras(ctx context.Context) (buildExtras, error) {
	var extras buildExtras

	if len(c.Spec.Links) > 0 {
		links, networks, err := c.resolveLinks(ctx)
		if err != nil {
			return extras, err
		}
		extras.links = links

		// A container can only be on one custom network via network mode.
		// When links span several, the first one wins with a warning; this is
		// best-effort by design of the deprecated links feature.
		if len(networks) > 1 {
			c.log.Warn("container would need to be on more than one custom network to link to other containers; "+
				"this is not supported", "networks", networks)
		}
		if len(networks) > 0 {
			c.log.Debug("associating container with network", "network", networks[0])
			extras.networkOverride = networks[0]
		}
	}

	if c.portForwarder != nil {
		extras.extraHosts = append(extras.extraHosts, internalHostHostname+":"+c.portForwarder.HostIP())
	}
	return extras, nil
}

// resolveLinks maps each configured link alias to a running container and
// collects the custom networks those containers are attached to.
func (c *Container) resolveLinks(ctx context.Context) ([]string, []string, error) {
	running, err := c.engine.ListContainers(ctx, "running", nil, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("list running containers for links: %w", err)
	}

	var links []string
	networkSet := map[string]bool{}
	for _, alias := range sortedKeys(c.Spec.Links) {
		target := c.Spec.Links[alias]
		found := false
		for _, summary := range running {
			for _, name := range summary.Names {
				if strings.HasSuffix(name, target) {
					links = append(links, strings.TrimPrefix(name, "/")+":"+alias)
					found = true
					if summary.NetworkSettings != nil {
						for network := range summary.NetworkSettings.Networks {
							if network != "bridge" {
								networkSet[network] = true
							}
						}
					}
				}
			}
		}
		if !found {
			return nil, nil, fmt.Errorf("aborting attempt to link to container %s as it is not running", target)
		}
	}

	networks := make([]string, 0, len(networkSet))
	for network := range networkSet {
		networks = append(networks, network)
	}
	sort.Strings(networks)
	return links, networks, nil
}

// connectToPortForwardingNetwork attaches the container to the forwarder's
// network. Needed explicitly because some network modes are applied post-hoc
// and the engine does not auto-attach secondary networks at creation time.
func (c *Container) connectToPortForwardingNetwork(ctx context.Context, networkMode string) error {
	if c.portForwarder == nil {
		return nil
	}
	networkID := c.portForwarder.NetworkID()
	if networkMode == networkID || networkMode == "none" || networkMode == "host" {
		return nil
	}
	if err := c.engine.ConnectNetwork(ctx, networkID, c.containerID); err != nil {
		return fmt.Errorf("connect container to port-forwarding network: %w", err)
	}
	return nil
}

// Stop tears the container down through the reaper. It is a no-op when no
// container id is held. Local identity is reset unconditionally, so the
// instance can be started again even after a failed stop.
func (c *Container) Stop(ctx context.Context) error {
	if c.containerID == "" {
		return nil
	}

	defer func() {
		c.containerID = ""
		c.info = nil
		c.reused = false
	}()

	// Best-effort display name for logs only.
	displayName := c.Spec.Image.Raw()
	if c.info != nil && c.info.Name != "" {
		displayName = strings.TrimPrefix(c.info.Name, "/")
	}

	if err := c.hookStopping(ctx); err != nil {
		return fmt.Errorf("stopping hook: %w", err)
	}

	reaper := c.reaper
	if reaper == nil {
		reaper = &engineReaper{engine: c.engine}
	}
	if err := reaper.StopAndRemove(ctx, c.containerID, displayName); err != nil {
		return fmt.Errorf("stop and remove container %s: %w", c.containerID, err)
	}

	if err := c.hookStopped(ctx); err != nil {
		return fmt.Errorf("stopped hook: %w", err)
	}
	c.log.Info("container stopped", "name", displayName)
	return nil
}

// captureLogs drains the container's output for launch-failure diagnostics.
// Returns "" when no id is held or logs are unavailable.
func (c *Container) captureLogs(ctx context.Context) string {
	if c.containerID == "" {
		return ""
	}
	rc, err := c.engine.ContainerLogs(ctx, c.containerID)
	if err != nil {
		c.log.Error("there are no stdout/stderr logs available for the failed container", "error", err)
		return ""
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil || len(out) == 0 {
		c.log.Error("there are no stdout/stderr logs available for the failed container")
		return ""
	}
	c.log.Error("log output from the failed container", "logs", string(out))
	return string(out)
}

// engineReaper is the fallback teardown path when no reaper is configured:
// stop, then force-remove through the engine.
type engineReaper struct {
	engine Engine
}

func (r *engineReaper) StopAndRemove(ctx context.Context, id, displayName string) error {
	if err := r.engine.StopContainer(ctx, id); err != nil {
		return err
	}
	return r.engine.RemoveContainer(ctx, id, true)
}

func (c *Container) hookBeforeStart(ctx context.Context) error {
	if h, ok := c.hooks.(BeforeStartHook); ok {
		return h.BeforeStart(ctx)
	}
	return nil
}

func (c *Container) hookCreated(ctx context.Context) error {
	if h, ok := c.hooks.(CreatedHook); ok {
		return h.ContainerCreated(ctx, c.containerID)
	}
	return nil
}

func (c *Container) hookStarting(ctx context.Context, reused bool) error {
	if h, ok := c.hooks.(StartingHook); ok {
		return h.ContainerStarting(ctx, reused)
	}
	return nil
}

func (c *Container) hookStarted(ctx context.Context, reused bool) error {
	if h, ok := c.hooks.(StartedHook); ok {
		return h.ContainerStarted(ctx, reused)
	}
	return nil
}

func (c *Container) hookStopping(ctx context.Context) error {
	if h, ok := c.hooks.(StoppingHook); ok {
		return h.ContainerStopping(ctx)
	}
	return nil
}

func (c *Container) hookStopped(ctx context.Context) error {
	if h, ok := c.hooks.(StoppedHook); ok {
		return h.ContainerStopped(ctx)
	}
	return nil
}
