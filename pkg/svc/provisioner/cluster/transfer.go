package cluster

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
)

// PutFile copies a local file or directory tree into the node at
// containerPath. Parent directories inside the container must already exist.
func (n *Node) PutFile(ctx context.Context, localPath, containerPath string) error {
	containerID := n.ContainerID()
	if containerID == "" {
		return fmt.Errorf("%w: %s", ErrNodeNotCreated, n.config.Name)
	}

	archive, err := tarPath(localPath, path.Base(containerPath))
	if err != nil {
		return fmt.Errorf("%w: archive %s: %w", ErrFileTransfer, localPath, err)
	}

	err = n.client.CopyToContainer(
		ctx, containerID, path.Dir(containerPath), archive, container.CopyToContainerOptions{},
	)
	if err != nil {
		return fmt.Errorf(
			"%w: put %s to %s:%s: %w",
			ErrFileTransfer, localPath, n.config.Name, containerPath, err,
		)
	}

	return nil
}

// GetFile copies a file or directory tree out of the node at containerPath
// to localPath. When localPath is an existing directory, the tree lands
// inside it under its container name; otherwise it lands at localPath itself.
func (n *Node) GetFile(ctx context.Context, containerPath, localPath string) error {
	containerID := n.ContainerID()
	if containerID == "" {
		return fmt.Errorf("%w: %s", ErrNodeNotCreated, n.config.Name)
	}

	reader, _, err := n.client.CopyFromContainer(ctx, containerID, containerPath)
	if err != nil {
		return fmt.Errorf(
			"%w: get %s:%s: %w", ErrFileTransfer, n.config.Name, containerPath, err,
		)
	}

	defer func() { _ = reader.Close() }()

	err = untarTo(reader, localPath)
	if err != nil {
		return fmt.Errorf("%w: extract to %s: %w", ErrFileTransfer, localPath, err)
	}

	return nil
}

// tarPath archives the file or directory at src into an in-memory tar
// stream, rebasing entry names onto base.
func tarPath(src, base string) (io.Reader, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	tarWriter := tar.NewWriter(&buf)

	if info.IsDir() {
		err = tarDirectory(tarWriter, src, base)
	} else {
		err = tarRegularFile(tarWriter, src, base, info)
	}

	if err != nil {
		return nil, err
	}

	err = tarWriter.Close()
	if err != nil {
		return nil, err
	}

	return &buf, nil
}

func tarDirectory(tarWriter *tar.Writer, src, base string) error {
	return filepath.Walk(src, func(filePath string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(src, filePath)
		if err != nil {
			return err
		}

		name := base
		if rel != "." {
			name = path.Join(base, filepath.ToSlash(rel))
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}

		header.Name = name

		err = tarWriter.WriteHeader(header)
		if err != nil {
			return err
		}

		if !info.Mode().IsRegular() {
			return nil
		}

		return copyFileInto(tarWriter, filePath)
	})
}

func tarRegularFile(tarWriter *tar.Writer, src, base string, info os.FileInfo) error {
	header := &tar.Header{
		Name:    base,
		Mode:    int64(info.Mode().Perm()),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}

	err := tarWriter.WriteHeader(header)
	if err != nil {
		return err
	}

	return copyFileInto(tarWriter, src)
}

func copyFileInto(tarWriter *tar.Writer, filePath string) error {
	file, err := os.Open(filePath) //nolint:gosec // Paths come from the caller's own arguments.
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(tarWriter, file)
	closeErr := file.Close()

	if copyErr != nil {
		return copyErr
	}

	return closeErr
}

// untarTo extracts a tar stream to dst. When dst is an existing directory
// entries keep their archive names inside it; otherwise the archive's root
// entry is rebased onto dst.
func untarTo(reader io.Reader, dst string) error {
	tarReader := tar.NewReader(reader)

	dstInfo, statErr := os.Stat(dst)
	intoDir := statErr == nil && dstInfo.IsDir()

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return err
		}

		cleaned := path.Clean(header.Name)
		if cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
			return fmt.Errorf("tar entry '%s' escapes destination", header.Name)
		}

		target := extractTarget(cleaned, dst, intoDir)

		err = extractEntry(tarReader, header, target)
		if err != nil {
			return err
		}
	}

	return nil
}

func extractTarget(name, dst string, intoDir bool) string {
	if intoDir {
		return filepath.Join(dst, filepath.FromSlash(name))
	}

	// Rebase the archive's root entry onto dst.
	parts := strings.SplitN(name, "/", 2)
	if len(parts) == 1 {
		return dst
	}

	return filepath.Join(dst, filepath.FromSlash(parts[1]))
}

func extractEntry(tarReader *tar.Reader, header *tar.Header, target string) error {
	switch header.Typeflag {
	case tar.TypeDir:
		return os.MkdirAll(target, 0o755)
	case tar.TypeReg:
		err := os.MkdirAll(filepath.Dir(target), 0o755)
		if err != nil {
			return err
		}

		file, err := os.OpenFile( //nolint:gosec // Target is confined to dst above.
			target,
			os.O_CREATE|os.O_WRONLY|os.O_TRUNC,
			os.FileMode(header.Mode).Perm(),
		)
		if err != nil {
			return err
		}

		_, copyErr := io.Copy(file, tarReader) //nolint:gosec // Transfers are operator-driven.
		closeErr := file.Close()

		if copyErr != nil {
			return copyErr
		}

		return closeErr
	default:
		// Symlinks and special files are skipped; transfers deal in regular trees.
		return nil
	}
}
