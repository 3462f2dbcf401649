package lifecycle

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
)

type createdContainer struct {
	cfg     *container.Config
	host    *container.HostConfig
	net     *network.NetworkingConfig
	started bool
	copies  []CopyFile
}

// fakeEngine is an in-memory Engine. Created containers get sequential ids
// and, by default, inspect as running with every exposed port mapped.
type fakeEngine struct {
	mu sync.Mutex

	seq     int
	created map[string]*createdContainer

	createErr  error
	failStarts int

	// running backs ListContainers.
	running []container.Summary

	// inspectFn overrides the default inspect response. calls is the 1-based
	// number of inspect calls made so far.
	inspectFn    func(id string, calls int) (container.InspectResponse, error)
	inspectCalls int

	stopped   []string
	removed   []string
	connected []string

	logs string

	images map[string]bool
	pulled []string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		created: map[string]*createdContainer{},
		images:  map[string]bool{},
	}
}

func (f *fakeEngine) DaemonHost() string { return "localhost" }

func (f *fakeEngine) CreateContainer(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.seq++
	id := fmt.Sprintf("container-%d", f.seq)
	f.created[id] = &createdContainer{cfg: cfg, host: hostCfg, net: netCfg}
	return id, nil
}

func (f *fakeEngine) StartContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failStarts > 0 {
		f.failStarts--
		return fmt.Errorf("engine refused to start %s", id)
	}
	if c, ok := f.created[id]; ok {
		c.started = true
	}
	return nil
}

func (f *fakeEngine) StopContainer(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, id)
	return nil
}

func (f *fakeEngine) RemoveContainer(ctx context.Context, id string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeEngine) InspectContainer(ctx context.Context, id string) (container.InspectResponse, error) {
	f.mu.Lock()
	f.inspectCalls++
	calls := f.inspectCalls
	fn := f.inspectFn
	rec := f.created[id]
	f.mu.Unlock()

	if fn != nil {
		return fn(id, calls)
	}

	ports := nat.PortMap{}
	if rec != nil {
		for port := range rec.cfg.ExposedPorts {
			ports[port] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "32768"}}
		}
	}
	return runningInspect(id, ports), nil
}

func (f *fakeEngine) ListContainers(ctx context.Context, status string, labels map[string]string, limit int) ([]container.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []container.Summary
	for _, s := range f.running {
		match := true
		for k, v := range labels {
			if s.Labels[k] != v {
				match = false
				break
			}
		}
		if match {
			out = append(out, s)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeEngine) ConnectNetwork(ctx context.Context, networkID, containerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = append(f.connected, networkID+"/"+containerID)
	return nil
}

func (f *fakeEngine) ContainerLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.logs)), nil
}

func (f *fakeEngine) CopyToContainer(ctx context.Context, id, srcPath, destPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.created[id]; ok {
		c.copies = append(c.copies, CopyFile{SourcePath: srcPath, DestPath: destPath})
	}
	return nil
}

func (f *fakeEngine) Exec(ctx context.Context, id string, cmd []string) (int, string, error) {
	return 0, "", nil
}

func (f *fakeEngine) ImageExists(ctx context.Context, ref string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images[ref], nil
}

func (f *fakeEngine) PullImage(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulled = append(f.pulled, ref)
	f.images[ref] = true
	return nil
}

func (f *fakeEngine) createdLabels(id string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.created[id]; ok {
		return c.cfg.Labels
	}
	return nil
}

func runningInspect(id string, ports nat.PortMap) container.InspectResponse {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:    id,
			Name:  "/" + id,
			State: &container.State{Running: true, Status: "running"},
		},
		Config: &container.Config{},
		NetworkSettings: &container.NetworkSettings{
			NetworkSettingsBase: container.NetworkSettingsBase{Ports: ports},
		},
	}
}

func stoppedInspect(id string, state container.State) container.InspectResponse {
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			ID:    id,
			Name:  "/" + id,
			State: &state,
		},
		Config:          &container.Config{},
		NetworkSettings: &container.NetworkSettings{},
	}
}

// hookRecorder implements every lifecycle hook and records invocation order.
// Its CreatedHook makes any container carrying it ineligible for reuse.
type hookRecorder struct {
	mu     sync.Mutex
	events []string
}

func (h *hookRecorder) record(e string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *hookRecorder) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *hookRecorder) BeforeStart(ctx context.Context) error { return h.record("before-start") }
func (h *hookRecorder) ContainerCreated(ctx context.Context, id string) error {
	return h.record("created")
}
func (h *hookRecorder) ContainerStarting(ctx context.Context, reused bool) error {
	return h.record(fmt.Sprintf("starting(reused=%t)", reused))
}
func (h *hookRecorder) ContainerStarted(ctx context.Context, reused bool) error {
	return h.record(fmt.Sprintf("started(reused=%t)", reused))
}
func (h *hookRecorder) ContainerStopping(ctx context.Context) error { return h.record("stopping") }
func (h *hookRecorder) ContainerStopped(ctx context.Context) error  { return h.record("stopped") }

// startObserver records only the start-side notifications that are compatible
// with reuse (no just-created customization).
type startObserver struct {
	mu     sync.Mutex
	events []string
}

func (h *startObserver) record(e string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *startObserver) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.events...)
}

func (h *startObserver) ContainerStarting(ctx context.Context, reused bool) error {
	return h.record(fmt.Sprintf("starting(reused=%t)", reused))
}
func (h *startObserver) ContainerStarted(ctx context.Context, reused bool) error {
	return h.record(fmt.Sprintf("started(reused=%t)", reused))
}
