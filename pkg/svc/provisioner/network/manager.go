// Package network manages the isolated bridge network every cluster runs on.
// The runtime daemon is the source of truth: every decision re-queries it
// rather than trusting cached state.
package network

import (
	"context"
	"errors"
	"fmt"
	"io"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/filters"
	dockernetwork "github.com/docker/docker/api/types/network"

	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/utils/notify"
)

const (
	// DriverBridge is the network driver used for cluster networks.
	DriverBridge = "bridge"
	// LabelNetwork marks networks created by flotilla.
	LabelNetwork = "io.flotilla.network"
)

// ErrNetwork wraps network create, inspect and remove failures.
var ErrNetwork = errors.New("network operation failed")

// Handle identifies the cluster network selected or created by Ensure.
type Handle struct {
	ID   string
	Name string
}

// Manager creates, reuses and removes cluster networks.
type Manager struct {
	client runtime.Client
	writer io.Writer
}

// NewManager creates a network manager that reports activity to writer.
func NewManager(cli runtime.Client, writer io.Writer) (*Manager, error) {
	if cli == nil {
		return nil, runtime.ErrClientNil
	}

	return &Manager{client: cli, writer: writer}, nil
}

// Ensure returns a handle to the network with the given name, creating a
// bridge network when none exists. Repeated calls for the same name are
// idempotent and resolve to the same network. When the daemon reports several
// networks with the same name (a known daemon quirk), the candidate with
// attached containers wins, then the most recently created.
func (m *Manager) Ensure(ctx context.Context, name string) (Handle, error) {
	candidates, err := m.listByName(ctx, name)
	if err != nil {
		return Handle{}, err
	}

	switch len(candidates) {
	case 0:
		return m.create(ctx, name)
	case 1:
		return Handle{ID: candidates[0].ID, Name: name}, nil
	default:
		notify.Warningf(
			m.writer,
			"found %d networks named '%s', selecting deterministically",
			len(candidates), name,
		)

		chosen, selectErr := m.selectDuplicate(ctx, candidates)
		if selectErr != nil {
			return Handle{}, selectErr
		}

		return Handle{ID: chosen, Name: name}, nil
	}
}

// RemoveIfUnused removes the named network when no container endpoint still
// references it. A missing network is a no-op.
func (m *Manager) RemoveIfUnused(ctx context.Context, name string) error {
	inspect, err := m.client.NetworkInspect(ctx, name, dockernetwork.InspectOptions{})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}

		return fmt.Errorf("%w: inspect %s: %w", ErrNetwork, name, err)
	}

	if len(inspect.Containers) != 0 {
		notify.Activityf(
			m.writer,
			"network '%s' still has %d attached container(s), keeping it",
			name, len(inspect.Containers),
		)

		return nil
	}

	err = m.client.NetworkRemove(ctx, inspect.ID)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil
		}

		return fmt.Errorf("%w: remove %s: %w", ErrNetwork, name, err)
	}

	notify.Activityf(m.writer, "removed network '%s'", name)

	return nil
}

// listByName returns the networks whose name matches exactly. The daemon's
// name filter matches substrings, so results are filtered again here.
func (m *Manager) listByName(
	ctx context.Context,
	name string,
) ([]dockernetwork.Summary, error) {
	filterArgs := filters.NewArgs()
	filterArgs.Add("name", name)

	networks, err := m.client.NetworkList(ctx, dockernetwork.ListOptions{Filters: filterArgs})
	if err != nil {
		return nil, fmt.Errorf("%w: list networks: %w", ErrNetwork, err)
	}

	var exact []dockernetwork.Summary

	for _, candidate := range networks {
		if candidate.Name == name {
			exact = append(exact, candidate)
		}
	}

	return exact, nil
}

func (m *Manager) create(ctx context.Context, name string) (Handle, error) {
	resp, err := m.client.NetworkCreate(ctx, name, dockernetwork.CreateOptions{
		Driver: DriverBridge,
		Labels: map[string]string{LabelNetwork: name},
	})
	if err != nil {
		// A concurrent creator winning the race counts as success.
		if cerrdefs.IsConflict(err) {
			candidates, listErr := m.listByName(ctx, name)
			if listErr == nil && len(candidates) > 0 {
				return Handle{ID: candidates[0].ID, Name: name}, nil
			}
		}

		return Handle{}, fmt.Errorf("%w: create %s: %w", ErrNetwork, name, err)
	}

	notify.Activityf(m.writer, "created network '%s'", name)

	return Handle{ID: resp.ID, Name: name}, nil
}

// selectDuplicate picks among same-named networks: the one containers are
// attached to, else the most recently created. List results do not carry
// endpoint data, so each candidate is inspected by ID.
func (m *Manager) selectDuplicate(
	ctx context.Context,
	candidates []dockernetwork.Summary,
) (string, error) {
	chosen := candidates[0]
	chosenEndpoints, err := m.endpointCount(ctx, chosen.ID)
	if err != nil {
		return "", err
	}

	for _, candidate := range candidates[1:] {
		endpoints, countErr := m.endpointCount(ctx, candidate.ID)
		if countErr != nil {
			return "", countErr
		}

		switch {
		case endpoints > chosenEndpoints:
			chosen, chosenEndpoints = candidate, endpoints
		case endpoints == chosenEndpoints && candidate.Created.After(chosen.Created):
			chosen = candidate
		}
	}

	return chosen.ID, nil
}

func (m *Manager) endpointCount(ctx context.Context, networkID string) (int, error) {
	inspect, err := m.client.NetworkInspect(ctx, networkID, dockernetwork.InspectOptions{})
	if err != nil {
		return 0, fmt.Errorf("%w: inspect %s: %w", ErrNetwork, networkID, err)
	}

	return len(inspect.Containers), nil
}
