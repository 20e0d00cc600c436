package v1alpha1

// DefaultNetworkName is the network clusters run on when the topology does
// not name one.
const DefaultNetworkName = "cluster"
