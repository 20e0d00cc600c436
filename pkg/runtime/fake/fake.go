// Package fake provides a function-backed runtime.Client for tests. Each
// method delegates to the corresponding Func field when set and otherwise
// returns zero values, so tests only stub the calls they care about. Every
// call is recorded for assertions on what the code under test did.
package fake

import (
	"context"
	"io"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Client is a fake implementation of runtime.Client.
type Client struct {
	ContainerCreateFunc func(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStartFunc  func(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStopFunc   func(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemoveFunc func(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspectFunc func(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerListFunc    func(ctx context.Context, options container.ListOptions) ([]container.Summary, error)

	ContainerExecCreateFunc  func(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecStartFunc   func(ctx context.Context, execID string, options container.ExecStartOptions) error
	ContainerExecAttachFunc  func(ctx context.Context, execID string, options container.ExecStartOptions) (types.HijackedResponse, error)
	ContainerExecInspectFunc func(ctx context.Context, execID string) (container.ExecInspect, error)

	CopyToContainerFunc   func(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error
	CopyFromContainerFunc func(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)

	ImagePullFunc    func(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ImageInspectFunc func(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)

	NetworkCreateFunc  func(ctx context.Context, name string, options network.CreateOptions) (network.CreateResponse, error)
	NetworkInspectFunc func(ctx context.Context, networkID string, options network.InspectOptions) (network.Inspect, error)
	NetworkListFunc    func(ctx context.Context, options network.ListOptions) ([]network.Summary, error)
	NetworkRemoveFunc  func(ctx context.Context, networkID string) error

	mu    sync.Mutex
	calls []string
}

func (c *Client) record(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, method)
}

// Calls returns the method names invoked on the fake, in call order.
func (c *Client) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.calls...)
}

// CallCount returns how many times the named method was invoked.
func (c *Client) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0

	for _, call := range c.calls {
		if call == method {
			count++
		}
	}

	return count
}

// ContainerCreate implements runtime.Client.
func (c *Client) ContainerCreate(
	ctx context.Context,
	config *container.Config,
	hostConfig *container.HostConfig,
	networkingConfig *network.NetworkingConfig,
	platform *ocispec.Platform,
	containerName string,
) (container.CreateResponse, error) {
	c.record("ContainerCreate")

	if c.ContainerCreateFunc != nil {
		return c.ContainerCreateFunc(ctx, config, hostConfig, networkingConfig, platform, containerName)
	}

	return container.CreateResponse{}, nil
}

// ContainerStart implements runtime.Client.
func (c *Client) ContainerStart(
	ctx context.Context,
	containerID string,
	options container.StartOptions,
) error {
	c.record("ContainerStart")

	if c.ContainerStartFunc != nil {
		return c.ContainerStartFunc(ctx, containerID, options)
	}

	return nil
}

// ContainerStop implements runtime.Client.
func (c *Client) ContainerStop(
	ctx context.Context,
	containerID string,
	options container.StopOptions,
) error {
	c.record("ContainerStop")

	if c.ContainerStopFunc != nil {
		return c.ContainerStopFunc(ctx, containerID, options)
	}

	return nil
}

// ContainerRemove implements runtime.Client.
func (c *Client) ContainerRemove(
	ctx context.Context,
	containerID string,
	options container.RemoveOptions,
) error {
	c.record("ContainerRemove")

	if c.ContainerRemoveFunc != nil {
		return c.ContainerRemoveFunc(ctx, containerID, options)
	}

	return nil
}

// ContainerInspect implements runtime.Client.
func (c *Client) ContainerInspect(
	ctx context.Context,
	containerID string,
) (container.InspectResponse, error) {
	c.record("ContainerInspect")

	if c.ContainerInspectFunc != nil {
		return c.ContainerInspectFunc(ctx, containerID)
	}

	return container.InspectResponse{}, nil
}

// ContainerList implements runtime.Client.
func (c *Client) ContainerList(
	ctx context.Context,
	options container.ListOptions,
) ([]container.Summary, error) {
	c.record("ContainerList")

	if c.ContainerListFunc != nil {
		return c.ContainerListFunc(ctx, options)
	}

	return nil, nil
}

// ContainerExecCreate implements runtime.Client.
func (c *Client) ContainerExecCreate(
	ctx context.Context,
	containerID string,
	options container.ExecOptions,
) (container.ExecCreateResponse, error) {
	c.record("ContainerExecCreate")

	if c.ContainerExecCreateFunc != nil {
		return c.ContainerExecCreateFunc(ctx, containerID, options)
	}

	return container.ExecCreateResponse{}, nil
}

// ContainerExecStart implements runtime.Client.
func (c *Client) ContainerExecStart(
	ctx context.Context,
	execID string,
	options container.ExecStartOptions,
) error {
	c.record("ContainerExecStart")

	if c.ContainerExecStartFunc != nil {
		return c.ContainerExecStartFunc(ctx, execID, options)
	}

	return nil
}

// ContainerExecAttach implements runtime.Client.
func (c *Client) ContainerExecAttach(
	ctx context.Context,
	execID string,
	options container.ExecStartOptions,
) (types.HijackedResponse, error) {
	c.record("ContainerExecAttach")

	if c.ContainerExecAttachFunc != nil {
		return c.ContainerExecAttachFunc(ctx, execID, options)
	}

	return types.HijackedResponse{}, nil
}

// ContainerExecInspect implements runtime.Client.
func (c *Client) ContainerExecInspect(
	ctx context.Context,
	execID string,
) (container.ExecInspect, error) {
	c.record("ContainerExecInspect")

	if c.ContainerExecInspectFunc != nil {
		return c.ContainerExecInspectFunc(ctx, execID)
	}

	return container.ExecInspect{}, nil
}

// CopyToContainer implements runtime.Client.
func (c *Client) CopyToContainer(
	ctx context.Context,
	containerID, dstPath string,
	content io.Reader,
	options container.CopyToContainerOptions,
) error {
	c.record("CopyToContainer")

	if c.CopyToContainerFunc != nil {
		return c.CopyToContainerFunc(ctx, containerID, dstPath, content, options)
	}

	return nil
}

// CopyFromContainer implements runtime.Client.
func (c *Client) CopyFromContainer(
	ctx context.Context,
	containerID, srcPath string,
) (io.ReadCloser, container.PathStat, error) {
	c.record("CopyFromContainer")

	if c.CopyFromContainerFunc != nil {
		return c.CopyFromContainerFunc(ctx, containerID, srcPath)
	}

	return io.NopCloser(&emptyReader{}), container.PathStat{}, nil
}

// ImagePull implements runtime.Client.
func (c *Client) ImagePull(
	ctx context.Context,
	refStr string,
	options image.PullOptions,
) (io.ReadCloser, error) {
	c.record("ImagePull")

	if c.ImagePullFunc != nil {
		return c.ImagePullFunc(ctx, refStr, options)
	}

	return io.NopCloser(&emptyReader{}), nil
}

// ImageInspect implements runtime.Client.
func (c *Client) ImageInspect(
	ctx context.Context,
	imageID string,
	opts ...client.ImageInspectOption,
) (image.InspectResponse, error) {
	c.record("ImageInspect")

	if c.ImageInspectFunc != nil {
		return c.ImageInspectFunc(ctx, imageID, opts...)
	}

	return image.InspectResponse{}, nil
}

// NetworkCreate implements runtime.Client.
func (c *Client) NetworkCreate(
	ctx context.Context,
	name string,
	options network.CreateOptions,
) (network.CreateResponse, error) {
	c.record("NetworkCreate")

	if c.NetworkCreateFunc != nil {
		return c.NetworkCreateFunc(ctx, name, options)
	}

	return network.CreateResponse{}, nil
}

// NetworkInspect implements runtime.Client.
func (c *Client) NetworkInspect(
	ctx context.Context,
	networkID string,
	options network.InspectOptions,
) (network.Inspect, error) {
	c.record("NetworkInspect")

	if c.NetworkInspectFunc != nil {
		return c.NetworkInspectFunc(ctx, networkID, options)
	}

	return network.Inspect{}, nil
}

// NetworkList implements runtime.Client.
func (c *Client) NetworkList(
	ctx context.Context,
	options network.ListOptions,
) ([]network.Summary, error) {
	c.record("NetworkList")

	if c.NetworkListFunc != nil {
		return c.NetworkListFunc(ctx, options)
	}

	return nil, nil
}

// NetworkRemove implements runtime.Client.
func (c *Client) NetworkRemove(ctx context.Context, networkID string) error {
	c.record("NetworkRemove")

	if c.NetworkRemoveFunc != nil {
		return c.NetworkRemoveFunc(ctx, networkID)
	}

	return nil
}

type emptyReader struct{}

func (*emptyReader) Read(_ []byte) (int, error) {
	return 0, io.EOF
}
