package client

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"

	"emperror.dev/errors"

	"assetrepo/internal/repository"
)

// ZipClient reads a repository packed into one zip archive, with the same
// layout as DirectoryClient. The archive is opened on every call.
type ZipClient struct {
	fileRepo
	path string
}

var _ repository.ReadableClient = (*ZipClient)(nil)

func NewZipClient(path string, opts ...Option) *ZipClient {
	o := buildOptions(opts)
	c := &ZipClient{path: path}
	c.fileRepo = fileRepo{
		source: path,
		logger: o.logger,
		opts:   o.decode(),
		ignore: o.ignore,
		open: func() (fs.FS, io.Closer, error) {
			zr, err := zip.OpenReader(path)
			if err != nil {
				return nil, nil, errors.WrapWithDetails(err, "opening repository archive", "path", path)
			}
			return zr, zr, nil
		},
	}
	return c
}

// CheckRepositoryStatus fails unless the file exists and is a zip archive.
func (c *ZipClient) CheckRepositoryStatus(ctx context.Context) error {
	_, closer, err := c.open()
	if err != nil {
		return err
	}
	return closer.Close()
}
