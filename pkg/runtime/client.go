// Package runtime exposes the narrow container-runtime surface the cluster
// model drives, backed by the Docker Engine API.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// ErrClientNil indicates a component was constructed without a runtime client.
var ErrClientNil = errors.New("runtime client cannot be nil")

// Client is the subset of the Docker Engine API the cluster model consumes.
// *client.Client satisfies it; tests substitute fakes.
type Client interface {
	ContainerCreate(
		ctx context.Context,
		config *container.Config,
		hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig,
		platform *ocispec.Platform,
		containerName string,
	) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)

	ContainerExecCreate(
		ctx context.Context,
		containerID string,
		options container.ExecOptions,
	) (container.ExecCreateResponse, error)
	ContainerExecStart(ctx context.Context, execID string, options container.ExecStartOptions) error
	ContainerExecAttach(
		ctx context.Context,
		execID string,
		options container.ExecStartOptions,
	) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)

	CopyToContainer(
		ctx context.Context,
		containerID, dstPath string,
		content io.Reader,
		options container.CopyToContainerOptions,
	) error
	CopyFromContainer(
		ctx context.Context,
		containerID, srcPath string,
	) (io.ReadCloser, container.PathStat, error)

	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ImageInspect(
		ctx context.Context,
		imageID string,
		opts ...client.ImageInspectOption,
	) (image.InspectResponse, error)

	NetworkCreate(
		ctx context.Context,
		name string,
		options network.CreateOptions,
	) (network.CreateResponse, error)
	NetworkInspect(
		ctx context.Context,
		networkID string,
		options network.InspectOptions,
	) (network.Inspect, error)
	NetworkList(ctx context.Context, options network.ListOptions) ([]network.Summary, error)
	NetworkRemove(ctx context.Context, networkID string) error
}

// Connect creates a Docker client from the environment with API version
// negotiation, so one binary works against daemons of different ages.
func Connect() (Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return cli, nil
}
