package v1alpha1

import "math/rand/v2"

// Cluster name vocabulary: an adjective paired with a star cluster.
var (
	nameAdjectives = []string{
		"angular", "astronomical", "bright", "celestial", "colorful", "cosmic",
		"distant", "dynamical", "efficient", "electromagnetic", "empirical",
		"galactic", "gaseous", "gravitational", "hierarchical", "intergalactic",
		"interstellar", "kinetic", "linear", "magnetic", "molecular", "nuclear",
		"optical", "orbital", "photometric", "planetary", "robust", "rotational",
		"solar", "spectral", "spherical", "terrestrial", "tidal", "visible",
	}

	nameClusters = []string{
		"antlia", "bullet", "centaurus", "coathanger", "coma", "fornax",
		"hyades", "hydra", "norma", "pandora", "phoenix", "pleiades",
		"praesepe", "ptolemy", "pyxis", "reticulum", "beehive", "hercules",
		"virgo",
	}
)

// GenerateClusterName returns a random cluster name of the form
// "adjective_cluster", used when a topology does not name its cluster.
func GenerateClusterName() string {
	adjective := nameAdjectives[rand.IntN(len(nameAdjectives))]
	cluster := nameClusters[rand.IntN(len(nameClusters))]

	return adjective + "_" + cluster
}
