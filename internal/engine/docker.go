// Package engine implements the container engine interface on top of the
// Docker API.
package engine

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
)

// Docker drives the Docker control API. It satisfies lifecycle.Engine.
type Docker struct {
	client *client.Client
}

// NewDocker creates an engine from the environment (DOCKER_HOST etc.).
func NewDocker() (*Docker, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}
	return &Docker{client: cli}, nil
}

// NewDockerWithClient creates an engine with a custom client (for testing).
func NewDockerWithClient(cli *client.Client) *Docker {
	return &Docker{client: cli}
}

// DaemonHost returns the host on which published container ports are
// reachable.
func (d *Docker) DaemonHost() string {
	u, err := url.Parse(d.client.DaemonHost())
	if err != nil {
		return "localhost"
	}
	switch u.Scheme {
	case "unix", "npipe":
		return "localhost"
	default:
		if h := u.Hostname(); h != "" {
			return h
		}
		return "localhost"
	}
}

func (d *Docker) CreateContainer(ctx context.Context, cfg *container.Config, hostCfg *container.HostConfig, netCfg *network.NetworkingConfig, name string) (string, error) {
	resp, err := d.client.ContainerCreate(ctx, cfg, hostCfg, netCfg, nil, name)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	return resp.ID, nil
}

func (d *Docker) StartContainer(ctx context.Context, id string) error {
	if err := d.client.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container %s: %w", id, err)
	}
	return nil
}

func (d *Docker) StopContainer(ctx context.Context, id string) error {
	timeout := 30 // seconds
	err := d.client.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("failed to stop container %s: %w", id, err)
	}
	return nil
}

func (d *Docker) RemoveContainer(ctx context.Context, id string, force bool) error {
	err := d.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: force, RemoveVolumes: true})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

func (d *Docker) InspectContainer(ctx context.Context, id string) (container.InspectResponse, error) {
	resp, err := d.client.ContainerInspect(ctx, id)
	if err != nil {
		return resp, fmt.Errorf("failed to inspect container %s: %w", id, err)
	}
	return resp, nil
}

func (d *Docker) ListContainers(ctx context.Context, status string, labels map[string]string, limit int) ([]container.Summary, error) {
	args := filters.NewArgs()
	for key, value := range labels {
		args.Add("label", key+"="+value)
	}
	opts := container.ListOptions{All: true, Filters: args, Limit: limit}
	if status != "" {
		args.Add("status", status)
		opts.All = false
	}
	summaries, err := d.client.ContainerList(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	return summaries, nil
}

func (d *Docker) ConnectNetwork(ctx context.Context, networkID, containerID string) error {
	err := d.client.NetworkConnect(ctx, networkID, containerID, &network.EndpointSettings{})
	if err != nil {
		return fmt.Errorf("failed to connect container %s to network %s: %w", containerID, networkID, err)
	}
	return nil
}

func (d *Docker) ContainerLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	logs, err := d.client.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get logs for container %s: %w", id, err)
	}
	return logs, nil
}

// CopyToContainer stages the host file or directory at srcPath to destPath
// inside the container, preserving file modes.
func (d *Docker) CopyToContainer(ctx context.Context, id, srcPath, destPath string) error {
	archive, err := tarPath(srcPath, filepath.Base(destPath))
	if err != nil {
		return fmt.Errorf("failed to archive %s: %w", srcPath, err)
	}
	destDir := filepath.ToSlash(filepath.Dir(destPath))
	err = d.client.CopyToContainer(ctx, id, destDir, archive, container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("failed to copy %s into container %s: %w", srcPath, id, err)
	}
	return nil
}

func (d *Docker) Exec(ctx context.Context, id string, cmd []string) (int, string, error) {
	execResp, err := d.client.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return 0, "", fmt.Errorf("failed to create exec in container %s: %w", id, err)
	}

	attach, err := d.client.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return 0, "", fmt.Errorf("failed to attach exec in container %s: %w", id, err)
	}
	defer attach.Close()

	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, attach.Reader); err != nil {
		return 0, "", fmt.Errorf("failed to read exec output: %w", err)
	}

	inspect, err := d.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return 0, "", fmt.Errorf("failed to inspect exec: %w", err)
	}
	return inspect.ExitCode, buf.String(), nil
}

func (d *Docker) ImageExists(ctx context.Context, ref string) (bool, error) {
	_, err := d.client.ImageInspect(ctx, ref)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect image %s: %w", ref, err)
	}
	return true, nil
}

func (d *Docker) PullImage(ctx context.Context, ref string) error {
	reader, err := d.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	// The pull only completes once the response stream is drained.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to read pull response for image %s: %w", ref, err)
	}
	return nil
}

// tarPath packs the file or directory at path into an in-memory tar archive
// rooted at name.
func tarPath(path, name string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		err = filepath.Walk(path, func(entry string, entryInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			rel, err := filepath.Rel(path, entry)
			if err != nil {
				return err
			}
			entryName := name
			if rel != "." {
				entryName = filepath.ToSlash(filepath.Join(name, rel))
			}
			return writeTarEntry(tw, entry, entryName, entryInfo)
		})
	} else {
		err = writeTarEntry(tw, path, name, info)
	}
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}

func writeTarEntry(tw *tar.Writer, path, name string, info os.FileInfo) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}
