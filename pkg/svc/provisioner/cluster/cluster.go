package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/jinzhu/copier"

	v1alpha1 "github.com/flotilla-dev/flotilla/pkg/apis/topology/v1alpha1"
	"github.com/flotilla-dev/flotilla/pkg/cli/parallel"
	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/image"
	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/network"
	"github.com/flotilla-dev/flotilla/pkg/utils/notify"
	"github.com/flotilla-dev/flotilla/pkg/utils/timer"
)

// State tracks a cluster's lifecycle.
type State int

// Cluster lifecycle states.
const (
	// StateUnbuilt means no runtime resources exist yet.
	StateUnbuilt State = iota
	// StateNetworkReady means the cluster network exists but nodes do not.
	StateNetworkReady
	// StateNodesRunning means every node is running with a resolved IP.
	StateNodesRunning
	// StateTornDown means all nodes and (if unused) the network are gone.
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateNetworkReady:
		return "network-ready"
	case StateNodesRunning:
		return "running"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// Config carries the cluster-wide settings fixed at construction time.
type Config struct {
	// Name is the cluster's name, used for labels and discovery.
	Name string
	// Network is the name of the cluster network.
	Network string
	// Namespace qualifies unqualified image references.
	Namespace string
	// Registry is the registry host for unqualified image references.
	Registry string
	// OperatingSystem is the image tag variant for untagged references.
	OperatingSystem string
	// AlwaysPull forces image pulls even when images are present locally.
	AlwaysPull bool
}

// Cluster owns an ordered set of node groups sharing one network. Lifecycle
// methods must be serialized by the caller; Execute and the read accessors
// are safe to call concurrently once the cluster is running.
type Cluster struct {
	client   runtime.Client
	writer   io.Writer
	config   Config
	networks *network.Manager
	images   *image.Resolver
	executor *parallel.Executor
	timer    timer.Timer

	groupOrder []string
	groups     map[string]*NodeGroup

	mu    sync.Mutex
	state State
}

// NewFromTopology validates the topology and builds a cluster from it. No
// runtime resources are touched until Start.
func NewFromTopology(
	cli runtime.Client,
	writer io.Writer,
	topology *v1alpha1.Topology,
	tmr timer.Timer,
) (*Cluster, error) {
	if cli == nil {
		return nil, runtime.ErrClientNil
	}

	err := topology.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}

	config := Config{
		Name:            topology.Spec.Name,
		Network:         topology.Spec.Network,
		Namespace:       topology.Spec.Namespace,
		Registry:        topology.Spec.Registry,
		OperatingSystem: topology.Spec.OperatingSystem,
		AlwaysPull:      topology.Spec.AlwaysPull,
	}

	if config.Name == "" {
		config.Name = v1alpha1.GenerateClusterName()
	}

	if config.Network == "" {
		config.Network = v1alpha1.DefaultNetworkName
	}

	clstr, err := newCluster(cli, writer, config, tmr)
	if err != nil {
		return nil, err
	}

	for _, groupSpec := range topology.Spec.NodeGroups {
		nodes := make([]*Node, 0, len(groupSpec.Nodes))

		for _, nodeName := range groupSpec.Nodes {
			nodeConfig, stampErr := stampNodeConfig(config, groupSpec, nodeName)
			if stampErr != nil {
				return nil, stampErr
			}

			node, nodeErr := NewNode(cli, writer, nodeConfig)
			if nodeErr != nil {
				return nil, nodeErr
			}

			nodes = append(nodes, node)
		}

		clstr.addGroup(NewNodeGroup(groupSpec.Name, nodes, clstr.executor))
	}

	return clstr, nil
}

func newCluster(
	cli runtime.Client,
	writer io.Writer,
	config Config,
	tmr timer.Timer,
) (*Cluster, error) {
	networks, err := network.NewManager(cli, writer)
	if err != nil {
		return nil, err
	}

	images, err := image.NewResolver(cli, writer)
	if err != nil {
		return nil, err
	}

	if tmr == nil {
		tmr = timer.New()
	}

	return &Cluster{
		client:   cli,
		writer:   writer,
		config:   config,
		networks: networks,
		images:   images,
		executor: parallel.NewExecutor(0),
		timer:    tmr,
		groups:   make(map[string]*NodeGroup),
	}, nil
}

// stampNodeConfig instantiates one node's config from its group's template.
// Slices are deep-copied so nodes never alias each other's state.
func stampNodeConfig(
	config Config,
	groupSpec v1alpha1.NodeGroupSpec,
	nodeName string,
) (NodeConfig, error) {
	var nodeConfig NodeConfig

	err := copier.CopyWithOption(&nodeConfig, &groupSpec, copier.Option{DeepCopy: true})
	if err != nil {
		return NodeConfig{}, fmt.Errorf("failed to stamp node %s from group template: %w", nodeName, err)
	}

	spec := v1alpha1.TopologySpec{
		Namespace:       config.Namespace,
		Registry:        config.Registry,
		OperatingSystem: config.OperatingSystem,
	}

	nodeConfig.Name = nodeName
	nodeConfig.Group = groupSpec.Name
	nodeConfig.Image = spec.ResolveImage(groupSpec.Image)
	nodeConfig.Network = config.Network
	nodeConfig.Labels = nodeLabels(config.Name, groupSpec.Name)

	return nodeConfig, nil
}

func (c *Cluster) addGroup(group *NodeGroup) {
	c.groupOrder = append(c.groupOrder, group.Name())
	c.groups[group.Name()] = group
}

// Name returns the cluster's name.
func (c *Cluster) Name() string {
	return c.config.Name
}

// Network returns the cluster network's name.
func (c *Cluster) Network() string {
	return c.config.Network
}

// State returns the cluster's lifecycle state.
func (c *Cluster) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// NodeGroups returns the cluster's groups in declaration order.
func (c *Cluster) NodeGroups() []*NodeGroup {
	groups := make([]*NodeGroup, 0, len(c.groupOrder))
	for _, name := range c.groupOrder {
		groups = append(groups, c.groups[name])
	}

	return groups
}

// NodeGroup returns the named group.
func (c *Cluster) NodeGroup(name string) (*NodeGroup, bool) {
	group, ok := c.groups[name]

	return group, ok
}

// Nodes returns every node of every group, in group order.
func (c *Cluster) Nodes() []*Node {
	var nodes []*Node
	for _, name := range c.groupOrder {
		nodes = append(nodes, c.groups[name].Nodes()...)
	}

	return nodes
}

// Node returns the named node from any group.
func (c *Cluster) Node(name string) (*Node, error) {
	for _, group := range c.groups {
		if node, ok := group.Node(name); ok {
			return node, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
}

// Start brings the whole cluster up: network, images, then every node with
// bounded concurrency. It returns only when every node is running with a
// resolved IP, or with an aggregate error naming each node that failed.
// Nodes that did start are left running for inspection; call Teardown to
// clean up after a partial failure.
func (c *Cluster) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateNodesRunning {
		c.mu.Unlock()

		return fmt.Errorf("%w: %s", ErrClusterAlreadyStarted, c.config.Name)
	}
	c.mu.Unlock()

	c.timer.Start()

	nodes := c.Nodes()

	notify.Titlef(
		c.writer, "⚓", "Starting cluster '%s' (%d nodes) on network '%s'...",
		c.config.Name, len(nodes), c.config.Network,
	)

	handle, err := c.networks.Ensure(ctx, c.config.Network)
	if err != nil {
		return err
	}

	c.setState(StateNetworkReady)

	err = c.checkHostnames(ctx, handle, nodes)
	if err != nil {
		return err
	}

	err = c.ensureImages(ctx, nodes)
	if err != nil {
		return err
	}

	c.timer.NewStage()

	var (
		mu       sync.Mutex
		nodeErrs []NodeError
	)

	tasks := make([]parallel.Task, 0, len(nodes))

	for _, node := range nodes {
		tasks = append(tasks, func(ctx context.Context) error {
			taskErr := node.Create(ctx)
			if taskErr == nil {
				taskErr = node.Start(ctx)
			}

			if taskErr != nil {
				mu.Lock()
				nodeErrs = append(nodeErrs, NodeError{Node: node.Name(), Err: taskErr})
				mu.Unlock()
			}

			return nil
		})
	}

	c.executor.ExecuteAll(ctx, tasks...)

	err = newAggregate("start", nodeErrs)
	if err != nil {
		return err
	}

	c.setState(StateNodesRunning)

	notify.SuccessWithTimerf(
		c.writer, c.timer, "cluster '%s' started with %d node(s)", c.config.Name, len(nodes),
	)

	return nil
}

// checkHostnames fails fast when a container with one of the cluster's
// hostnames is already attached to the network.
func (c *Cluster) checkHostnames(
	ctx context.Context,
	handle network.Handle,
	nodes []*Node,
) error {
	inspect, err := c.client.NetworkInspect(ctx, handle.ID, dockernetwork.InspectOptions{})
	if err != nil {
		return fmt.Errorf("%w: inspect %s: %w", network.ErrNetwork, handle.Name, err)
	}

	attached := make(map[string]struct{}, len(inspect.Containers))
	for _, endpoint := range inspect.Containers {
		attached[endpoint.Name] = struct{}{}
	}

	var duplicates []string

	for _, node := range nodes {
		if _, exists := attached[node.FQDN()]; exists {
			duplicates = append(duplicates, node.FQDN())
		}
	}

	if len(duplicates) > 0 {
		sort.Strings(duplicates)

		return fmt.Errorf("%w: %v", ErrDuplicateHostname, duplicates)
	}

	return nil
}

// ensureImages pulls each distinct image once before node creation fans out.
func (c *Cluster) ensureImages(ctx context.Context, nodes []*Node) error {
	seen := make(map[string]struct{})

	for _, node := range nodes {
		ref := node.config.Image
		if _, done := seen[ref]; done {
			continue
		}

		seen[ref] = struct{}{}

		err := c.images.Ensure(ctx, ref, c.config.AlwaysPull)
		if err != nil {
			return err
		}
	}

	return nil
}

// Execute runs command on every node of every group, keyed by group name
// then node name. Group results are collected even when other groups fail;
// the aggregate error names every failed node across the cluster.
func (c *Cluster) Execute(
	ctx context.Context,
	command string,
	opts ExecOptions,
) (map[string]map[string]Result, error) {
	results := make(map[string]map[string]Result, len(c.groupOrder))

	var nodeErrs []NodeError

	for _, name := range c.groupOrder {
		groupResults, err := c.groups[name].Execute(ctx, command, opts)
		results[name] = groupResults

		var aggregate *AggregateError
		if errors.As(err, &aggregate) {
			nodeErrs = append(nodeErrs, aggregate.Nodes...)
		}
	}

	return results, newAggregate("execute", nodeErrs)
}

// Teardown stops and removes every node, then removes the cluster network if
// nothing else references it. Individual node failures are collected and
// reported after every node has been attempted; they never abort the rest of
// the teardown. Tearing down a cluster with no surviving nodes succeeds.
func (c *Cluster) Teardown(ctx context.Context) error {
	c.timer.Start()

	nodes := c.Nodes()

	notify.Titlef(c.writer, "🔥", "Tearing down cluster '%s'...", c.config.Name)

	var (
		mu       sync.Mutex
		nodeErrs []NodeError
	)

	tasks := make([]parallel.Task, 0, len(nodes))

	for _, node := range nodes {
		tasks = append(tasks, func(ctx context.Context) error {
			taskErr := node.Stop(ctx)
			if taskErr == nil {
				taskErr = node.Remove(ctx)
			}

			if taskErr != nil {
				mu.Lock()
				nodeErrs = append(nodeErrs, NodeError{Node: node.Name(), Err: taskErr})
				mu.Unlock()
			}

			return nil
		})
	}

	c.executor.ExecuteAll(ctx, tasks...)

	networkErr := c.networks.RemoveIfUnused(ctx, c.config.Network)

	err := errors.Join(newAggregate("teardown", nodeErrs), networkErr)
	if err != nil {
		return err
	}

	c.setState(StateTornDown)

	notify.SuccessWithTimerf(c.writer, c.timer, "cluster '%s' torn down", c.config.Name)

	return nil
}

func (c *Cluster) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}
