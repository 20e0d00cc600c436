package network_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	dockernetwork "github.com/docker/docker/api/types/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/runtime/fake"
	"github.com/flotilla-dev/flotilla/pkg/svc/provisioner/network"
)

func TestNewManagerRequiresClient(t *testing.T) {
	t.Parallel()

	_, err := network.NewManager(nil, io.Discard)

	assert.ErrorIs(t, err, runtime.ErrClientNil)
}

func TestEnsureCreatesWhenAbsent(t *testing.T) {
	t.Parallel()

	cli := &fake.Client{
		NetworkCreateFunc: func(_ context.Context, _ string, options dockernetwork.CreateOptions) (dockernetwork.CreateResponse, error) {
			assert.Equal(t, network.DriverBridge, options.Driver)

			return dockernetwork.CreateResponse{ID: "net-1"}, nil
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	handle, err := manager.Ensure(context.Background(), "testnet")

	require.NoError(t, err)
	assert.Equal(t, network.Handle{ID: "net-1", Name: "testnet"}, handle)
}

func TestEnsureReusesExistingNetwork(t *testing.T) {
	t.Parallel()

	cli := &fake.Client{
		NetworkListFunc: func(_ context.Context, _ dockernetwork.ListOptions) ([]dockernetwork.Summary, error) {
			return []dockernetwork.Summary{{Name: "testnet", ID: "net-1"}}, nil
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	first, err := manager.Ensure(context.Background(), "testnet")
	require.NoError(t, err)

	second, err := manager.Ensure(context.Background(), "testnet")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 0, cli.CallCount("NetworkCreate"))
}

func TestEnsureIgnoresSubstringMatches(t *testing.T) {
	t.Parallel()

	cli := &fake.Client{
		NetworkListFunc: func(_ context.Context, _ dockernetwork.ListOptions) ([]dockernetwork.Summary, error) {
			// The daemon's name filter matches substrings.
			return []dockernetwork.Summary{{Name: "testnet-extra", ID: "net-9"}}, nil
		},
		NetworkCreateFunc: func(_ context.Context, _ string, _ dockernetwork.CreateOptions) (dockernetwork.CreateResponse, error) {
			return dockernetwork.CreateResponse{ID: "net-1"}, nil
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	handle, err := manager.Ensure(context.Background(), "testnet")

	require.NoError(t, err)
	assert.Equal(t, "net-1", handle.ID)
}

func TestEnsurePrefersAttachedDuplicate(t *testing.T) {
	t.Parallel()

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	cli := &fake.Client{
		NetworkListFunc: func(_ context.Context, _ dockernetwork.ListOptions) ([]dockernetwork.Summary, error) {
			return []dockernetwork.Summary{
				{Name: "testnet", ID: "net-old", Created: older},
				{Name: "testnet", ID: "net-new", Created: newer},
			}, nil
		},
		NetworkInspectFunc: func(_ context.Context, networkID string, _ dockernetwork.InspectOptions) (dockernetwork.Inspect, error) {
			if networkID == "net-old" {
				return dockernetwork.Inspect{
					ID: networkID,
					Containers: map[string]dockernetwork.EndpointResource{
						"c1": {Name: "node-1.testnet"},
					},
				}, nil
			}

			return dockernetwork.Inspect{ID: networkID}, nil
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	handle, err := manager.Ensure(context.Background(), "testnet")

	require.NoError(t, err)
	assert.Equal(t, "net-old", handle.ID)
}

func TestEnsurePrefersNewestWhenNoneAttached(t *testing.T) {
	t.Parallel()

	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	cli := &fake.Client{
		NetworkListFunc: func(_ context.Context, _ dockernetwork.ListOptions) ([]dockernetwork.Summary, error) {
			return []dockernetwork.Summary{
				{Name: "testnet", ID: "net-old", Created: older},
				{Name: "testnet", ID: "net-new", Created: newer},
			}, nil
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	handle, err := manager.Ensure(context.Background(), "testnet")

	require.NoError(t, err)
	assert.Equal(t, "net-new", handle.ID)
}

func TestEnsureTreatsCreateRaceAsSuccess(t *testing.T) {
	t.Parallel()

	listCalls := 0

	cli := &fake.Client{
		NetworkListFunc: func(_ context.Context, _ dockernetwork.ListOptions) ([]dockernetwork.Summary, error) {
			listCalls++
			if listCalls == 1 {
				return nil, nil
			}

			// Second list happens after the lost create race.
			return []dockernetwork.Summary{{Name: "testnet", ID: "net-1"}}, nil
		},
		NetworkCreateFunc: func(_ context.Context, _ string, _ dockernetwork.CreateOptions) (dockernetwork.CreateResponse, error) {
			return dockernetwork.CreateResponse{}, fmt.Errorf("network already exists: %w", cerrdefs.ErrConflict)
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	handle, err := manager.Ensure(context.Background(), "testnet")

	require.NoError(t, err)
	assert.Equal(t, "net-1", handle.ID)
}

func TestRemoveIfUnusedRemovesEmptyNetwork(t *testing.T) {
	t.Parallel()

	cli := &fake.Client{
		NetworkInspectFunc: func(_ context.Context, _ string, _ dockernetwork.InspectOptions) (dockernetwork.Inspect, error) {
			return dockernetwork.Inspect{ID: "net-1", Name: "testnet"}, nil
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	err = manager.RemoveIfUnused(context.Background(), "testnet")

	require.NoError(t, err)
	assert.Equal(t, 1, cli.CallCount("NetworkRemove"))
}

func TestRemoveIfUnusedKeepsAttachedNetwork(t *testing.T) {
	t.Parallel()

	cli := &fake.Client{
		NetworkInspectFunc: func(_ context.Context, _ string, _ dockernetwork.InspectOptions) (dockernetwork.Inspect, error) {
			return dockernetwork.Inspect{
				ID: "net-1",
				Containers: map[string]dockernetwork.EndpointResource{
					"c1": {Name: "other.testnet"},
				},
			}, nil
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	err = manager.RemoveIfUnused(context.Background(), "testnet")

	require.NoError(t, err)
	assert.Equal(t, 0, cli.CallCount("NetworkRemove"))
}

func TestRemoveIfUnusedMissingNetworkIsNoOp(t *testing.T) {
	t.Parallel()

	cli := &fake.Client{
		NetworkInspectFunc: func(_ context.Context, _ string, _ dockernetwork.InspectOptions) (dockernetwork.Inspect, error) {
			return dockernetwork.Inspect{}, fmt.Errorf("no such network: %w", cerrdefs.ErrNotFound)
		},
	}

	manager, err := network.NewManager(cli, io.Discard)
	require.NoError(t, err)

	assert.NoError(t, manager.RemoveIfUnused(context.Background(), "testnet"))
}
