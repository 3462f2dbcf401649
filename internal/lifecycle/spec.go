package lifecycle

import (
	"fmt"
	"sort"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
)

// CopyFile stages a host file or directory into the container after creation.
type CopyFile struct {
	SourcePath string
	DestPath   string
}

// Spec is the desired-state description of a container. Identity fields
// (image, ports, binds) must be fixed before the first Start call; mutating a
// Spec after its container has been created is undefined behavior.
type Spec struct {
	Image *Image

	// ExposedPorts are container ports ("6379/tcp") published to ephemeral
	// host ports. Order is preserved.
	ExposedPorts []nat.Port

	// PortBindings pins container ports to fixed host ports. Prefer
	// ExposedPorts; fixed mappings clash easily on shared hosts.
	PortBindings nat.PortMap

	Env    map[string]string
	Labels map[string]string

	Binds       []string
	VolumesFrom []string
	Tmpfs       map[string]string

	NetworkMode    string
	NetworkAliases []string
	ExtraHosts     []string

	// Links maps alias to target container name. Deprecated engine feature,
	// kept for parity; prefer NetworkMode with aliases.
	Links map[string]string

	WorkingDir string
	Cmd        []string
	CopyFiles  []CopyFile

	StartupCheck StartupCheck

	// ShmSize is the /dev/shm size in bytes; 0 applies the engine default.
	ShmSize    int64
	Privileged bool
}

// NewSpec returns a spec for the given image reference.
func NewSpec(image string) *Spec {
	return &Spec{
		Image:  NewImage(image),
		Env:    map[string]string{},
		Labels: map[string]string{},
	}
}

// AddExposedPorts exposes TCP ports, published to ephemeral host ports.
func (s *Spec) AddExposedPorts(ports ...int) *Spec {
	for _, p := range ports {
		s.ExposedPorts = append(s.ExposedPorts, nat.Port(fmt.Sprintf("%d/tcp", p)))
	}
	return s
}

// AddFixedPort binds containerPort to a fixed hostPort on all interfaces.
func (s *Spec) AddFixedPort(hostPort, containerPort int) *Spec {
	if s.PortBindings == nil {
		s.PortBindings = nat.PortMap{}
	}
	port := nat.Port(fmt.Sprintf("%d/tcp", containerPort))
	s.PortBindings[port] = append(s.PortBindings[port], nat.PortBinding{
		HostIP:   "0.0.0.0",
		HostPort: fmt.Sprintf("%d", hostPort),
	})
	return s
}

// SetEnv sets one environment variable. Keys are unique; setting an existing
// key overwrites it.
func (s *Spec) SetEnv(key, value string) *Spec {
	if s.Env == nil {
		s.Env = map[string]string{}
	}
	s.Env[key] = value
	return s
}

// AddLabel adds a user label. The dev.vessel. namespace is reserved for
// internal use and rejected.
func (s *Spec) AddLabel(key, value string) error {
	if isReservedLabel(key) {
		return &ConfigError{Reason: fmt.Sprintf("label %q uses the reserved %s namespace", key, labelNamespace)}
	}
	if s.Labels == nil {
		s.Labels = map[string]string{}
	}
	s.Labels[key] = value
	return nil
}

// AddCopyFile stages the host file or directory at src to dest inside the
// container after creation.
func (s *Spec) AddCopyFile(src, dest string) *Spec {
	s.CopyFiles = append(s.CopyFiles, CopyFile{SourcePath: src, DestPath: dest})
	return s
}

func (s *Spec) validate() error {
	if s.Image == nil {
		return &ConfigError{Reason: "image is required"}
	}
	for key := range s.Labels {
		if isReservedLabel(key) {
			return &ConfigError{Reason: fmt.Sprintf("label %q uses the reserved %s namespace", key, labelNamespace)}
		}
	}
	return nil
}

// createRequest is the fully assembled engine create call. Its canonical
// serialization is the fingerprint input, so every semantically relevant spec
// field must flow into it.
type createRequest struct {
	Config     *container.Config         `json:"config"`
	Host       *container.HostConfig     `json:"host"`
	Networking *network.NetworkingConfig `json:"networking,omitempty"`
}

// buildExtras carries request inputs that are resolved against the live
// engine (link targets, port-forwarder host entry) so that the builder itself
// stays a pure function of its arguments.
type buildExtras struct {
	links           []string
	networkOverride string
	extraHosts      []string
}

// buildCreateRequest assembles the engine create request from the spec, the
// resolved image reference and the internal label contract. Caller-supplied
// labels are merged in; internal reserved labels always win.
func buildCreateRequest(spec *Spec, imageRef string, extras buildExtras) *createRequest {
	exposed := nat.PortSet{}
	bindings := nat.PortMap{}
	for _, port := range spec.ExposedPorts {
		exposed[port] = struct{}{}
		// Publish to an ephemeral host port unless a fixed binding exists.
		if _, fixed := spec.PortBindings[port]; !fixed {
			bindings[port] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: "0"}}
		}
	}
	for port, pb := range spec.PortBindings {
		exposed[port] = struct{}{}
		bindings[port] = pb
	}

	env := make([]string, 0, len(spec.Env))
	for _, key := range sortedKeys(spec.Env) {
		env = append(env, key+"="+spec.Env[key])
	}

	labels := map[string]string{}
	for k, v := range spec.Labels {
		labels[k] = v
	}
	labels[LabelManaged] = "true"

	networkMode := spec.NetworkMode
	if extras.networkOverride != "" {
		networkMode = extras.networkOverride
	}

	cfg := &container.Config{
		Image:        imageRef,
		Env:          env,
		ExposedPorts: exposed,
		WorkingDir:   spec.WorkingDir,
		Cmd:          spec.Cmd,
		Labels:       labels,
	}

	hostCfg := &container.HostConfig{
		PortBindings: bindings,
		Binds:        spec.Binds,
		VolumesFrom:  spec.VolumesFrom,
		Tmpfs:        spec.Tmpfs,
		ExtraHosts:   append(append([]string{}, spec.ExtraHosts...), extras.extraHosts...),
		Links:        extras.links,
		Privileged:   spec.Privileged,
		NetworkMode:  container.NetworkMode(networkMode),
	}
	if spec.ShmSize > 0 {
		hostCfg.ShmSize = spec.ShmSize
	}

	var netCfg *network.NetworkingConfig
	if networkMode != "" && networkMode != "default" && networkMode != "bridge" &&
		networkMode != "none" && networkMode != "host" {
		netCfg = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				networkMode: {Aliases: spec.NetworkAliases},
			},
		}
	}

	return &createRequest{Config: cfg, Host: hostCfg, Networking: netCfg}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
