package cluster

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/flotilla-dev/flotilla/pkg/runtime"
)

// ListClusters returns the names of clusters that still have at least one
// labelled container, sorted alphabetically.
func ListClusters(ctx context.Context, cli runtime.Client) ([]string, error) {
	containers, err := labelledContainers(ctx, cli, "")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})

	var names []string

	for _, summary := range containers {
		name := summary.Labels[LabelCluster]
		if name == "" {
			continue
		}

		if _, done := seen[name]; done {
			continue
		}

		seen[name] = struct{}{}
		names = append(names, name)
	}

	sort.Strings(names)

	return names, nil
}

// ListContainers returns every flotilla-managed container, optionally
// restricted to one cluster, sorted by container name.
func ListContainers(
	ctx context.Context,
	cli runtime.Client,
	clusterName string,
) ([]container.Summary, error) {
	containers, err := labelledContainers(ctx, cli, clusterName)
	if err != nil {
		return nil, err
	}

	sort.Slice(containers, func(i, j int) bool {
		return containerName(containers[i]) < containerName(containers[j])
	})

	return containers, nil
}

// Discover rebuilds a cluster handle from the labelled containers of an
// existing cluster, so it can be executed against or torn down by a process
// other than the one that started it.
func Discover(
	ctx context.Context,
	cli runtime.Client,
	writer io.Writer,
	clusterName string,
) (*Cluster, error) {
	containers, err := labelledContainers(ctx, cli, clusterName)
	if err != nil {
		return nil, err
	}

	if len(containers) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrClusterNotFound, clusterName)
	}

	networkName := networkOf(containers[0])

	clstr, err := newCluster(cli, writer, Config{Name: clusterName, Network: networkName}, nil)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]container.Summary)

	var groupOrder []string

	for _, summary := range containers {
		groupName := summary.Labels[LabelNodeGroup]
		if _, seen := grouped[groupName]; !seen {
			groupOrder = append(groupOrder, groupName)
		}

		grouped[groupName] = append(grouped[groupName], summary)
	}

	sort.Strings(groupOrder)

	running := false

	for _, groupName := range groupOrder {
		summaries := grouped[groupName]
		sort.Slice(summaries, func(i, j int) bool {
			return containerName(summaries[i]) < containerName(summaries[j])
		})

		nodes := make([]*Node, 0, len(summaries))

		for _, summary := range summaries {
			node, nodeErr := adoptNode(cli, writer, summary, groupName, networkName)
			if nodeErr != nil {
				return nil, nodeErr
			}

			nodes = append(nodes, node)

			if summary.State == "running" {
				running = true
			}
		}

		clstr.addGroup(NewNodeGroup(groupName, nodes, clstr.executor))
	}

	if running {
		clstr.setState(StateNodesRunning)
	} else {
		clstr.setState(StateNetworkReady)
	}

	return clstr, nil
}

// FindNode locates a labelled node container by its hostname (name.network)
// and returns a node handle bound to it.
func FindNode(
	ctx context.Context,
	cli runtime.Client,
	writer io.Writer,
	hostname string,
) (*Node, error) {
	containers, err := labelledContainers(ctx, cli, "")
	if err != nil {
		return nil, err
	}

	for _, summary := range containers {
		if containerName(summary) != hostname {
			continue
		}

		_, networkName, _ := strings.Cut(hostname, ".")
		if networkName == "" {
			networkName = networkOf(summary)
		}

		return adoptNode(cli, writer, summary, summary.Labels[LabelNodeGroup], networkName)
	}

	return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, hostname)
}

func adoptNode(
	cli runtime.Client,
	writer io.Writer,
	summary container.Summary,
	groupName, networkName string,
) (*Node, error) {
	name := containerName(summary)
	shortName := strings.TrimSuffix(name, "."+networkName)

	node, err := NewNode(cli, writer, NodeConfig{
		Name:    shortName,
		Group:   groupName,
		Image:   summary.Image,
		Network: networkName,
		Labels:  summary.Labels,
	})
	if err != nil {
		return nil, err
	}

	node.adopt(summary.ID, ipOf(summary, networkName))

	return node, nil
}

func labelledContainers(
	ctx context.Context,
	cli runtime.Client,
	clusterName string,
) ([]container.Summary, error) {
	filterArgs := filters.NewArgs()

	if clusterName == "" {
		filterArgs.Add("label", LabelCluster)
	} else {
		filterArgs.Add("label", LabelCluster+"="+clusterName)
	}

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	return containers, nil
}

// containerName returns the summary's primary name without the leading slash.
func containerName(summary container.Summary) string {
	if len(summary.Names) == 0 {
		return ""
	}

	return strings.TrimPrefix(summary.Names[0], "/")
}

// networkOf returns the name of the first network the container is attached
// to, preferring non-default networks.
func networkOf(summary container.Summary) string {
	if summary.NetworkSettings == nil {
		return ""
	}

	var fallback string

	for name := range summary.NetworkSettings.Networks {
		if name != "bridge" {
			return name
		}

		fallback = name
	}

	return fallback
}

func ipOf(summary container.Summary, networkName string) string {
	if summary.NetworkSettings == nil {
		return ""
	}

	endpoint := summary.NetworkSettings.Networks[networkName]
	if endpoint == nil {
		return ""
	}

	return endpoint.IPAddress
}
