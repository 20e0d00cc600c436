package v1alpha1

import "errors"

// Validation errors.
var (
	// ErrNoNodeGroups indicates a topology without any node group.
	ErrNoNodeGroups = errors.New("topology must declare at least one node group")
	// ErrMissingNamespace indicates a topology without an image namespace.
	ErrMissingNamespace = errors.New("topology must declare an image namespace")
	// ErrMissingGroupName indicates a node group without a name.
	ErrMissingGroupName = errors.New("node group must have a name")
	// ErrMissingImage indicates a node group without an image.
	ErrMissingImage = errors.New("node group must declare an image")
	// ErrNoNodes indicates a node group without any node.
	ErrNoNodes = errors.New("node group must declare at least one node")
	// ErrDuplicateNodeName indicates the same node name appearing more than
	// once across the whole topology.
	ErrDuplicateNodeName = errors.New("node names must be unique across the topology")
	// ErrDuplicateGroupName indicates two node groups sharing a name.
	ErrDuplicateGroupName = errors.New("node group names must be unique")
	// ErrInvalidPortSpec indicates an unparseable port spec.
	ErrInvalidPortSpec = errors.New("invalid port spec")
	// ErrInvalidVolume indicates a volume mount with a relative or empty path.
	ErrInvalidVolume = errors.New("volume mount paths must be absolute")
	// ErrWrongKind indicates a document whose kind or apiVersion does not
	// match this API.
	ErrWrongKind = errors.New("document is not a flotilla topology")
)
