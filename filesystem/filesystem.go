package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
)

var (
	ErrFileNotFound      = fmt.Errorf("filesystem: file not found")
	ErrDirectoryNotFound = fmt.Errorf("filesystem: directory not found")
	ErrInvalidPath       = fmt.Errorf("filesystem: invalid path")
	ErrOutsideRoot       = fmt.Errorf("filesystem: path outside root")
)

// Filesystem is a read-only view of a directory tree. Every method takes an endpoint, a
// slash separated path relative to the root, and rejects endpoints that leave the root.
type Filesystem interface {
	Root() string

	Resolve(endpoint string) (string, error)
	Canonical(endpoint string) (string, error)

	ReadFile(endpoint string) ([]byte, error)
	ListDirectory(endpoint string) ([]os.FileInfo, error)

	IsFile(endpoint string) (bool, error)
	IsDirectory(endpoint string) (bool, error)
}

type localFileSystem struct {
	root string
}

func NewLocalFileSystem(root string) (Filesystem, error) {
	if root == "" {
		return nil, ErrInvalidPath
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("filesystem: resolving root %s: %w", root, err)
	}

	// A root that does not exist yet is kept as is; nothing below it can be served.
	if evaluated, err := filepath.EvalSymlinks(abs); err == nil {
		abs = evaluated
	} else if !notFound(err) {
		return nil, fmt.Errorf("filesystem: resolving root %s: %w", root, err)
	}

	return &localFileSystem{root: abs}, nil
}

func (filesystem *localFileSystem) Root() string {
	return filesystem.root
}

// Resolve maps endpoint to an absolute path below the root. An existing path is also
// checked after following symlinks, so a link may not lead out of the root.
func (filesystem *localFileSystem) Resolve(endpoint string) (string, error) {
	if strings.IndexByte(endpoint, 0) >= 0 {
		return "", ErrInvalidPath
	}

	full := filepath.Join(filesystem.root, filepath.FromSlash(endpoint))
	if !filesystem.contains(full) {
		return "", ErrOutsideRoot
	}

	evaluated, err := filepath.EvalSymlinks(full)
	if err != nil {
		if notFound(err) {
			return full, nil
		}

		return "", err
	}
	if !filesystem.contains(evaluated) {
		return "", ErrOutsideRoot
	}

	return full, nil
}

func (filesystem *localFileSystem) contains(full string) bool {
	rel, err := filepath.Rel(filesystem.root, full)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Canonical returns the cleaned endpoint, always starting with a slash.
func (filesystem *localFileSystem) Canonical(endpoint string) (string, error) {
	full, err := filesystem.Resolve(endpoint)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(filesystem.root, full)
	if err != nil {
		return "", ErrOutsideRoot
	}

	return path.Join("/", filepath.ToSlash(rel)), nil
}

func (filesystem *localFileSystem) ReadFile(endpoint string) ([]byte, error) {
	isFile, err := filesystem.IsFile(endpoint)
	if err != nil {
		return nil, err
	}
	if !isFile {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, endpoint)
	}

	full, err := filesystem.Resolve(endpoint)
	if err != nil {
		return nil, err
	}

	return os.ReadFile(full)
}

// ListDirectory returns the directory entries sorted by name.
func (filesystem *localFileSystem) ListDirectory(endpoint string) ([]os.FileInfo, error) {
	isDirectory, err := filesystem.IsDirectory(endpoint)
	if err != nil {
		return nil, err
	}
	if !isDirectory {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotFound, endpoint)
	}

	full, err := filesystem.Resolve(endpoint)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, err
	}

	infos := make([]os.FileInfo, 0, len(entries))
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}

	return infos, nil
}

func (filesystem *localFileSystem) IsFile(endpoint string) (bool, error) {
	info, err := filesystem.stat(endpoint)
	if err != nil || info == nil {
		return false, err
	}

	return info.Mode().IsRegular(), nil
}

func (filesystem *localFileSystem) IsDirectory(endpoint string) (bool, error) {
	info, err := filesystem.stat(endpoint)
	if err != nil || info == nil {
		return false, err
	}

	return info.IsDir(), nil
}

// stat returns nil info without an error when the endpoint does not exist, including
// paths that continue below a regular file.
func (filesystem *localFileSystem) stat(endpoint string) (os.FileInfo, error) {
	full, err := filesystem.Resolve(endpoint)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if notFound(err) {
			return nil, nil
		}

		return nil, err
	}

	return info, nil
}

func notFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

func GetFileExtension(p string) string {
	return path.Ext(p)
}

// ContentType guesses the media type from the file extension. It returns an empty string
// when the extension is unknown.
func ContentType(p string) string {
	return mime.TypeByExtension(GetFileExtension(p))
}
