package client

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"emperror.dev/errors"

	"assetrepo/internal/cache"
	"assetrepo/internal/filter"
	"assetrepo/internal/jsonbind"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

// SingleFileClient keeps a whole repository in one JSON array. An asset's
// id is its 1-based position; deleted assets leave a null slot so other ids
// never move. Every mutation rewrites the file.
type SingleFileClient struct {
	path   string
	mu     sync.Mutex
	cache  *cache.FileData[[]any]
	logger repository.Logger
	opts   jsonbind.Options
}

var _ repository.Client = (*SingleFileClient)(nil)

// Fields a single-file repository does not store.
var singleFileExcluded = jsonbind.EncodeOptions{
	Indent: true,
	Exclude: func(shape, field string) bool {
		return shape == model.ShapeAsset && (field == "_id" || field == "attachments")
	},
}

func NewSingleFileClient(path string, opts ...Option) *SingleFileClient {
	o := buildOptions(opts)
	c := &SingleFileClient{path: path, logger: o.logger, opts: o.decode()}
	c.cache = cache.NewFileData(path, &c.mu, c.load)
	return c
}

func (c *SingleFileClient) load(path string) ([]any, error) {
	c.logger.Debug("reading repository file", "path", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "reading repository file", "path", path)
	}
	doc, err := jsonbind.ParseDocument(data)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "parsing repository file", "path", path)
	}
	items, ok := doc.([]any)
	if !ok {
		return nil, errors.NewWithDetails("repository file is not a JSON array", "path", path)
	}
	return items, nil
}

// CheckRepositoryStatus fails unless the file holds a JSON array.
func (c *SingleFileClient) CheckRepositoryStatus(ctx context.Context) error {
	_, err := c.cache.Get()
	return err
}

func (c *SingleFileClient) GetAllAssets(ctx context.Context) ([]*model.Asset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.cache.GetLocked()
	if err != nil {
		return nil, err
	}
	assets := make([]*model.Asset, 0, len(items))
	var skipped []*repository.BadVersionError
	for i, item := range items {
		if item == nil {
			continue
		}
		a, err := c.decode(item, i)
		if err != nil {
			var bv *repository.BadVersionError
			if errors.As(err, &bv) {
				skipped = append(skipped, bv)
				continue
			}
			return nil, err
		}
		assets = append(assets, a)
	}
	repository.LogSkipped(c.logger, c.path, skipped)
	return assets, nil
}

func (c *SingleFileClient) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.cache.GetLocked()
	if err != nil {
		return nil, err
	}
	i, err := slot(items, id)
	if err != nil {
		return nil, err
	}
	return c.decode(items[i], i)
}

func (c *SingleFileClient) GetAssets(ctx context.Context, types []model.ResourceType, productIDs []string, visibility model.Visibility, productVersions []string) ([]*model.Asset, error) {
	return repository.GetAssets(ctx, c, types, productIDs, visibility, productVersions)
}

func (c *SingleFileClient) GetAssetsWithUnboundedMaxVersion(ctx context.Context, types []model.ResourceType, productIDs []string, visibility model.Visibility) ([]*model.Asset, error) {
	return repository.GetAssetsWithUnboundedMaxVersion(ctx, c, types, productIDs, visibility)
}

func (c *SingleFileClient) GetFilteredAssets(ctx context.Context, filters filter.Filters) ([]*model.Asset, error) {
	return repository.GetFilteredAssets(ctx, c, filters)
}

func (c *SingleFileClient) FindAssets(ctx context.Context, search string, types []model.ResourceType) ([]*model.Asset, error) {
	return repository.FindAssets(ctx, c, search, types)
}

func (c *SingleFileClient) GetAttachment(ctx context.Context, asset *model.Asset, attachment *model.Attachment) (io.ReadCloser, error) {
	return nil, unsupported("GetAttachment")
}

// AddAsset appends the asset. A missing file is created.
func (c *SingleFileClient) AddAsset(ctx context.Context, asset *model.Asset) (*model.Asset, error) {
	if asset == nil {
		return nil, repository.NewClientFailure(nil, "asset is required")
	}
	if asset.ID != "" {
		return nil, repository.NewClientFailure(repository.ErrAssetHasID, "cannot add asset", "id", asset.ID)
	}
	encoded, err := model.Assets.Encode(asset, singleFileExcluded)
	if err != nil {
		return nil, errors.WrapIf(err, "encoding asset")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.cache.GetLocked()
	if errors.Is(err, fs.ErrNotExist) {
		items, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	next := append(slices.Clone(items), encoded)
	added, err := c.decode(encoded, len(next)-1)
	if err != nil {
		return nil, err
	}
	if err := c.rewrite(next); err != nil {
		return nil, err
	}
	c.logger.Info("asset added", "path", c.path, "id", added.ID)
	return added, nil
}

// UpdateAsset is not supported: assets in a single-file repository are
// immutable once added.
func (c *SingleFileClient) UpdateAsset(ctx context.Context, asset *model.Asset) (*model.Asset, error) {
	return nil, unsupported("UpdateAsset")
}

// DeleteAssetAndAttachments replaces the asset's slot with null.
func (c *SingleFileClient) DeleteAssetAndAttachments(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.cache.GetLocked()
	if err != nil {
		return err
	}
	i, err := slot(items, id)
	if err != nil {
		return err
	}
	next := slices.Clone(items)
	next[i] = nil
	if err := c.rewrite(next); err != nil {
		return err
	}
	c.logger.Info("asset deleted", "path", c.path, "id", id)
	return nil
}

func (c *SingleFileClient) AddAttachment(ctx context.Context, assetID string, summary *model.AttachmentSummary) (*model.Attachment, error) {
	return nil, unsupported("AddAttachment")
}

func (c *SingleFileClient) UpdateAttachment(ctx context.Context, assetID string, summary *model.AttachmentSummary) (*model.Attachment, error) {
	return nil, unsupported("UpdateAttachment")
}

func (c *SingleFileClient) DeleteAttachment(ctx context.Context, assetID, attachmentID string) error {
	return unsupported("DeleteAttachment")
}

// UpdateState does nothing; single-file assets have no workflow.
func (c *SingleFileClient) UpdateState(ctx context.Context, assetID string, action model.StateAction) error {
	return nil
}

func (c *SingleFileClient) decode(item any, index int) (*model.Asset, error) {
	id := strconv.Itoa(index + 1)
	raw, ok := item.(map[string]any)
	if !ok {
		return nil, errors.NewWithDetails("repository entry is not an object", "path", c.path, "id", id)
	}
	a, err := model.Assets.Decode(raw, c.opts)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "decoding asset", "path", c.path, "id", id)
	}
	a.ID = id
	return a.Normalize(), nil
}

// rewrite replaces the file with items, pretty-printed. Must hold c.mu.
func (c *SingleFileClient) rewrite(items []any) error {
	data, err := jsonbind.MarshalDocument(items, true)
	if err != nil {
		return errors.WrapIf(err, "encoding repository")
	}
	data = append(data, '\n')

	if err := writeFileAtomic(c.path, data); err != nil {
		return err
	}
	c.cache.InvalidateLocked()
	return nil
}

func slot(items []any, id string) (int, error) {
	n, err := strconv.Atoi(id)
	if err != nil || n < 1 || n > len(items) || items[n-1] == nil {
		return 0, errors.WithDetails(errors.WithStack(repository.ErrAssetNotFound), "id", id)
	}
	return n - 1, nil
}

func unsupported(op string) error {
	return repository.NewClientFailure(repository.ErrUnsupported, op+" is not supported by single-file repositories")
}

// writeFileAtomic writes data to a temp file beside path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.WrapWithDetails(err, "creating temp file", "dir", dir)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, bytes.NewReader(data)); err != nil {
		tmpFile.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.WrapWithDetails(err, "renaming temp file", "path", path)
	}

	success = true
	return nil
}
