package cluster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	"github.com/siderolabs/go-retry/retry"

	v1alpha1 "github.com/flotilla-dev/flotilla/pkg/apis/topology/v1alpha1"
	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/utils/notify"
)

const (
	// executeShell runs every node command so pipes and redirects work.
	executeShell = "/bin/sh"
	// defaultExecUser is the user commands run as when none is given.
	defaultExecUser = "root"

	nodeStartTimeout      = 30 * time.Second
	nodeStartPollInterval = 500 * time.Millisecond
	stopTimeoutSeconds    = 30

	// localtimeBind keeps container clocks in step with the host.
	localtimeBind = "/etc/localtime:/etc/localtime"
)

var (
	errNotYetRunning = errors.New("container not yet running")
	errNoIPAssigned  = errors.New("container has no IP address yet")
)

// NodeConfig carries every topology-defined field a node is built from.
type NodeConfig struct {
	// Name is the node's short name, unique within the cluster.
	Name string
	// Group is the name of the node group the node belongs to.
	Group string
	// Image is the fully resolved image reference the node runs.
	Image string
	// Network is the cluster network the node attaches to.
	Network string
	// Ports lists port specs in "host:container/proto" or "container/proto"
	// form.
	Ports []string
	// Volumes lists host paths mounted into the container.
	Volumes []v1alpha1.VolumeMount
	// Devices lists host device paths exposed to the container.
	Devices []string
	// Env carries KEY=value pairs for the container.
	Env []string
	// Labels are attached to the container for later discovery.
	Labels map[string]string
}

// Node is one cluster member backed by a single container. The container
// identity and IP address are assigned exactly once during Create/Start and
// cleared by Remove. Lifecycle transitions on one node must be serialized by
// the caller; read accessors and Execute are safe to call concurrently.
type Node struct {
	client runtime.Client
	writer io.Writer
	config NodeConfig

	mu          sync.RWMutex
	containerID string
	ipAddress   string
	hostPorts   map[int]int
}

// NewNode creates a node handle with no backing container yet.
func NewNode(cli runtime.Client, writer io.Writer, config NodeConfig) (*Node, error) {
	if cli == nil {
		return nil, runtime.ErrClientNil
	}

	return &Node{client: cli, writer: writer, config: config}, nil
}

// Name returns the node's short name.
func (n *Node) Name() string {
	return n.config.Name
}

// Group returns the name of the node group the node belongs to.
func (n *Node) Group() string {
	return n.config.Group
}

// Image returns the fully resolved image reference the node runs.
func (n *Node) Image() string {
	return n.config.Image
}

// FQDN returns the node's hostname on the cluster network.
func (n *Node) FQDN() string {
	return n.config.Name + "." + n.config.Network
}

// ContainerID returns the backing container's ID, or "" before Create.
func (n *Node) ContainerID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.containerID
}

// IPAddress returns the node's IP on the cluster network, or "" before Start.
func (n *Node) IPAddress() string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	return n.ipAddress
}

// HostPort returns the host port published for the given container port.
func (n *Node) HostPort(containerPort int) (int, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	hostPort, ok := n.hostPorts[containerPort]

	return hostPort, ok
}

// Create requests the node's container from the runtime without starting it.
// Calling Create on a node that already has a container fails with
// ErrNodeAlreadyCreated; callers that need a replacement must Remove first.
func (n *Node) Create(ctx context.Context) error {
	if n.ContainerID() != "" {
		return fmt.Errorf("%w: %s", ErrNodeAlreadyCreated, n.config.Name)
	}

	exposedPorts, portBindings, err := nat.ParsePortSpecs(n.config.Ports)
	if err != nil {
		return fmt.Errorf("failed to parse port specs for node %s: %w", n.config.Name, err)
	}

	resp, err := n.client.ContainerCreate(
		ctx,
		&container.Config{
			Image:        n.config.Image,
			Hostname:     n.FQDN(),
			Env:          n.config.Env,
			ExposedPorts: exposedPorts,
			Labels:       n.config.Labels,
		},
		n.hostConfig(portBindings),
		// Attaching at create time gives the node DNS resolution under its
		// short-name alias as soon as it starts.
		&network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				n.config.Network: {Aliases: []string{n.config.Name}},
			},
		},
		nil,
		n.FQDN(),
	)
	if err != nil {
		if cerrdefs.IsConflict(err) {
			return fmt.Errorf(
				"%w: container name '%s' already in use", ErrNodeAlreadyCreated, n.FQDN(),
			)
		}

		return fmt.Errorf("failed to create container for node %s: %w", n.config.Name, err)
	}

	n.mu.Lock()
	n.containerID = resp.ID
	n.mu.Unlock()

	notify.Activityf(n.writer, "created node '%s'", n.FQDN())

	return nil
}

// hostConfig builds the container host settings. Cluster nodes behave like
// hosts rather than single-process containers: full capabilities, no seccomp
// profile, host clock.
func (n *Node) hostConfig(portBindings nat.PortMap) *container.HostConfig {
	binds := []string{localtimeBind}
	for _, volume := range n.config.Volumes {
		bind := volume.HostPath + ":" + volume.ContainerPath
		if volume.ReadOnly {
			bind += ":ro"
		}

		binds = append(binds, bind)
	}

	devices := make([]container.DeviceMapping, 0, len(n.config.Devices))
	for _, device := range n.config.Devices {
		devices = append(devices, container.DeviceMapping{
			PathOnHost:        device,
			PathInContainer:   device,
			CgroupPermissions: "rwm",
		})
	}

	return &container.HostConfig{
		CapAdd:       []string{"ALL"},
		SecurityOpt:  []string{"seccomp=unconfined"},
		Binds:        binds,
		PortBindings: portBindings,
		Resources: container.Resources{
			Devices: devices,
		},
	}
}

// Start starts the node's container and blocks until the runtime reports it
// running with an IP address on the cluster network. Dependents may use the
// IP as soon as Start returns. Runtime-assigned host ports are recorded here.
func (n *Node) Start(ctx context.Context) error {
	containerID := n.ContainerID()
	if containerID == "" {
		return fmt.Errorf("%w: %s", ErrNodeNotCreated, n.config.Name)
	}

	err := n.client.ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		return fmt.Errorf("failed to start node %s: %w", n.config.Name, err)
	}

	var (
		ipAddress string
		hostPorts map[int]int
	)

	err = retry.Constant(nodeStartTimeout, retry.WithUnits(nodeStartPollInterval)).
		RetryWithContext(ctx, func(ctx context.Context) error {
			inspect, inspectErr := n.client.ContainerInspect(ctx, containerID)
			if inspectErr != nil {
				return inspectErr
			}

			if inspect.State == nil || !inspect.State.Running {
				return retry.ExpectedError(errNotYetRunning)
			}

			endpoint := endpointOn(inspect, n.config.Network)
			if endpoint == nil || endpoint.IPAddress == "" {
				return retry.ExpectedError(errNoIPAssigned)
			}

			ipAddress = endpoint.IPAddress
			hostPorts = publishedPorts(inspect)

			return nil
		})
	if err != nil {
		return fmt.Errorf("node %s did not become ready: %w", n.config.Name, err)
	}

	n.mu.Lock()
	n.ipAddress = ipAddress
	n.hostPorts = hostPorts
	n.mu.Unlock()

	notify.Activityf(n.writer, "node '%s' running with IP %s", n.FQDN(), ipAddress)

	return nil
}

// ExecOptions adjust how a command runs on a node.
type ExecOptions struct {
	// User the command runs as. Defaults to root.
	User string
	// Quiet captures output without mirroring it to the node's writer.
	Quiet bool
	// Detach starts the command and returns immediately with a pending
	// result. Completion is never awaited.
	Detach bool
}

// Execute runs command through the node's shell so pipes and redirects work.
// A non-zero exit code is data in the Result, not an error; only
// runtime-level failures return one.
func (n *Node) Execute(ctx context.Context, command string, opts ExecOptions) (Result, error) {
	containerID := n.ContainerID()
	if containerID == "" {
		return Result{}, fmt.Errorf("%w: %s", ErrNodeNotCreated, n.config.Name)
	}

	user := opts.User
	if user == "" {
		user = defaultExecUser
	}

	execConfig := container.ExecOptions{
		User: user,
		Cmd:  []string{executeShell, "-c", command},
	}

	if opts.Detach {
		return n.executeDetached(ctx, containerID, execConfig)
	}

	execConfig.AttachStdout = true
	execConfig.AttachStderr = true

	createResp, err := n.client.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return Result{}, n.execError(err)
	}

	attach, err := n.client.ContainerExecAttach(ctx, createResp.ID, container.ExecStartOptions{})
	if err != nil {
		return Result{}, n.execError(err)
	}
	defer attach.Close()

	var buf bytes.Buffer

	output := io.Writer(&buf)
	if !opts.Quiet && n.writer != nil {
		output = io.MultiWriter(&buf, n.writer)
	}

	_, err = stdcopy.StdCopy(output, output, attach.Reader)
	if err != nil {
		return Result{}, fmt.Errorf(
			"%w: read output on %s: %w", ErrExecFailed, n.config.Name, err,
		)
	}

	inspectResp, err := n.client.ContainerExecInspect(ctx, createResp.ID)
	if err != nil {
		return Result{}, n.execError(err)
	}

	exitCode := inspectResp.ExitCode

	return Result{ExitCode: &exitCode, Output: buf.String()}, nil
}

func (n *Node) executeDetached(
	ctx context.Context,
	containerID string,
	execConfig container.ExecOptions,
) (Result, error) {
	execConfig.Detach = true

	createResp, err := n.client.ContainerExecCreate(ctx, containerID, execConfig)
	if err != nil {
		return Result{}, n.execError(err)
	}

	err = n.client.ContainerExecStart(ctx, createResp.ID, container.ExecStartOptions{Detach: true})
	if err != nil {
		return Result{}, n.execError(err)
	}

	return Result{}, nil
}

// execError maps runtime exec failures onto the node error taxonomy. The
// daemon reports exec against a stopped container as a conflict.
func (n *Node) execError(err error) error {
	if cerrdefs.IsConflict(err) {
		return fmt.Errorf("%w: %s", ErrNodeNotRunning, n.config.Name)
	}

	return fmt.Errorf("%w: %s: %w", ErrExecFailed, n.config.Name, err)
}

// Stop stops the node's container. Stopping a node that is not running or no
// longer exists is a no-op.
func (n *Node) Stop(ctx context.Context) error {
	containerID := n.ContainerID()
	if containerID == "" {
		return nil
	}

	timeout := stopTimeoutSeconds

	err := n.client.ContainerStop(ctx, containerID, container.StopOptions{Timeout: &timeout})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}

		return fmt.Errorf("failed to stop node %s: %w", n.config.Name, err)
	}

	return nil
}

// Remove deletes the node's stopped container and clears its identity and
// IP, after which Create may be called again. Removing a running node fails
// with ErrNodeNotStopped.
func (n *Node) Remove(ctx context.Context) error {
	containerID := n.ContainerID()
	if containerID == "" {
		return nil
	}

	inspect, err := n.client.ContainerInspect(ctx, containerID)
	if err == nil && inspect.State != nil && inspect.State.Running {
		return fmt.Errorf("%w: %s", ErrNodeNotStopped, n.config.Name)
	}

	err = n.client.ContainerRemove(ctx, containerID, container.RemoveOptions{RemoveVolumes: true})
	if err != nil && !cerrdefs.IsNotFound(err) {
		return fmt.Errorf("failed to remove node %s: %w", n.config.Name, err)
	}

	n.mu.Lock()
	n.containerID = ""
	n.ipAddress = ""
	n.hostPorts = nil
	n.mu.Unlock()

	return nil
}

// adopt binds the node to an existing container found via discovery.
func (n *Node) adopt(containerID, ipAddress string) {
	n.mu.Lock()
	n.containerID = containerID
	n.ipAddress = ipAddress
	n.mu.Unlock()
}

func endpointOn(
	inspect container.InspectResponse,
	networkName string,
) *network.EndpointSettings {
	if inspect.NetworkSettings == nil {
		return nil
	}

	return inspect.NetworkSettings.Networks[networkName]
}

// publishedPorts maps container ports onto the host ports the runtime bound
// for them.
func publishedPorts(inspect container.InspectResponse) map[int]int {
	if inspect.NetworkSettings == nil || len(inspect.NetworkSettings.Ports) == 0 {
		return nil
	}

	ports := make(map[int]int)

	for port, bindings := range inspect.NetworkSettings.Ports {
		if len(bindings) == 0 {
			continue
		}

		hostPort, err := strconv.Atoi(bindings[0].HostPort)
		if err != nil {
			continue
		}

		ports[port.Int()] = hostPort
	}

	return ports
}
