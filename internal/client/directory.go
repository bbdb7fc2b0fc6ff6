package client

import (
	"context"
	"io"
	"io/fs"
	"os"

	"emperror.dev/errors"

	"assetrepo/internal/repository"
)

// DirectoryClient reads a repository laid out as a directory tree. Each
// asset is "<artifact>.json" with the artifact beside it; the asset id is
// the artifact's slash-separated path below the root.
type DirectoryClient struct {
	fileRepo
	root string
}

var _ repository.ReadableClient = (*DirectoryClient)(nil)

func NewDirectoryClient(root string, opts ...Option) *DirectoryClient {
	o := buildOptions(opts)
	c := &DirectoryClient{root: root}
	c.fileRepo = fileRepo{
		source: root,
		logger: o.logger,
		opts:   o.decode(),
		ignore: o.ignore,
		open: func() (fs.FS, io.Closer, error) {
			return os.DirFS(root), io.NopCloser(nil), nil
		},
	}
	return c
}

// CheckRepositoryStatus fails unless the root is an existing directory.
func (c *DirectoryClient) CheckRepositoryStatus(ctx context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return errors.WrapWithDetails(err, "repository directory is not accessible", "path", c.root)
	}
	if !info.IsDir() {
		return errors.NewWithDetails("repository path is not a directory", "path", c.root)
	}
	return nil
}
