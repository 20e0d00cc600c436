package cluster

// Labels attached to every node container, used to find flotilla-managed
// containers again after the process that created them has exited.
const (
	// LabelCluster carries the owning cluster's name.
	LabelCluster = "io.flotilla.cluster"
	// LabelNodeGroup carries the node group's name.
	LabelNodeGroup = "io.flotilla.node-group"
)

func nodeLabels(clusterName, groupName string) map[string]string {
	return map[string]string{
		LabelCluster:   clusterName,
		LabelNodeGroup: groupName,
	}
}
