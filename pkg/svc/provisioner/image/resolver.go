// Package image ensures the container images a topology references are
// available on the local runtime before any node is created.
package image

import (
	"context"
	"errors"
	"fmt"
	"io"

	cerrdefs "github.com/containerd/errdefs"
	dockerimage "github.com/docker/docker/api/types/image"

	"github.com/flotilla-dev/flotilla/pkg/runtime"
	"github.com/flotilla-dev/flotilla/pkg/utils/notify"
)

var (
	// ErrImageNotFound is returned when the registry reports the reference
	// does not exist.
	ErrImageNotFound = errors.New("image not found")
	// ErrRegistryUnavailable is returned for authentication or network
	// failures while pulling.
	ErrRegistryUnavailable = errors.New("registry unavailable")
)

// Resolver makes container images available on the local runtime.
type Resolver struct {
	client runtime.Client
	writer io.Writer
}

// NewResolver creates an image resolver that reports pull activity to writer.
func NewResolver(cli runtime.Client, writer io.Writer) (*Resolver, error) {
	if cli == nil {
		return nil, runtime.ErrClientNil
	}

	return &Resolver{client: cli, writer: writer}, nil
}

// Ensure makes ref available locally. With alwaysPull it pulls
// unconditionally, otherwise only when the image is absent. Failed pulls are
// not retried; the caller aborts the corresponding node's startup.
func (r *Resolver) Ensure(ctx context.Context, ref string, alwaysPull bool) error {
	if !alwaysPull {
		_, err := r.client.ImageInspect(ctx, ref)
		if err == nil {
			return nil
		}

		if !cerrdefs.IsNotFound(err) {
			return fmt.Errorf("failed to inspect image %s: %w", ref, err)
		}
	}

	notify.Activityf(r.writer, "pulling image '%s'", ref)

	reader, err := r.client.ImagePull(ctx, ref, dockerimage.PullOptions{})
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrImageNotFound, ref)
		}

		return fmt.Errorf("%w: pull %s: %w", ErrRegistryUnavailable, ref, err)
	}

	// The pull only completes once the response stream is fully consumed.
	_, copyErr := io.Copy(io.Discard, reader)
	closeErr := reader.Close()

	if copyErr != nil {
		return fmt.Errorf("%w: pull %s: %w", ErrRegistryUnavailable, ref, copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close pull response for %s: %w", ref, closeErr)
	}

	return nil
}
