// Package repository defines the contracts shared by every asset repository
// backend and the default query helpers built on top of them.
package repository

import (
	"context"
	"io"

	"assetrepo/internal/filter"
	"assetrepo/internal/model"
)

// ReadableClient reads assets and attachments from a repository.
type ReadableClient interface {
	// CheckRepositoryStatus returns an error when the repository cannot be
	// reached or is not in a usable shape.
	CheckRepositoryStatus(ctx context.Context) error

	// GetAllAssets lists every asset. Attachments are not populated.
	// Assets with an unsupported schema version are skipped.
	GetAllAssets(ctx context.Context) ([]*model.Asset, error)

	// GetAsset returns one asset with its attachments.
	GetAsset(ctx context.Context, id string) (*model.Asset, error)

	// GetAssets returns assets matching all the non-empty arguments.
	GetAssets(ctx context.Context, types []model.ResourceType, productIDs []string, visibility model.Visibility, productVersions []string) ([]*model.Asset, error)

	// GetAssetsWithUnboundedMaxVersion is GetAssets restricted to assets
	// that have no maximum product version.
	GetAssetsWithUnboundedMaxVersion(ctx context.Context, types []model.ResourceType, productIDs []string, visibility model.Visibility) ([]*model.Asset, error)

	GetFilteredAssets(ctx context.Context, filters filter.Filters) ([]*model.Asset, error)

	// FindAssets searches names and descriptions of assets of the given
	// types (all types when empty).
	FindAssets(ctx context.Context, search string, types []model.ResourceType) ([]*model.Asset, error)

	// GetAttachment opens the content of an attachment. The caller closes it.
	GetAttachment(ctx context.Context, asset *model.Asset, attachment *model.Attachment) (io.ReadCloser, error)
}

// WriteableClient mutates a repository.
type WriteableClient interface {
	// AddAsset stores a new asset and returns it as the repository now
	// holds it. The asset must not have an id.
	AddAsset(ctx context.Context, asset *model.Asset) (*model.Asset, error)
	UpdateAsset(ctx context.Context, asset *model.Asset) (*model.Asset, error)
	DeleteAssetAndAttachments(ctx context.Context, id string) error

	AddAttachment(ctx context.Context, assetID string, summary *model.AttachmentSummary) (*model.Attachment, error)
	// UpdateAttachment replaces the attachment with the summary's name.
	UpdateAttachment(ctx context.Context, assetID string, summary *model.AttachmentSummary) (*model.Attachment, error)
	DeleteAttachment(ctx context.Context, assetID, attachmentID string) error

	UpdateState(ctx context.Context, assetID string, action model.StateAction) error
}

// Client is a repository that can be both read and written.
type Client interface {
	ReadableClient
	WriteableClient
}

// AssetLister is the one operation the default query helpers need.
type AssetLister interface {
	GetAllAssets(ctx context.Context) ([]*model.Asset, error)
}

// GetAssets implements ReadableClient.GetAssets by filtering the full list.
func GetAssets(ctx context.Context, l AssetLister, types []model.ResourceType, productIDs []string, visibility model.Visibility, productVersions []string) ([]*model.Asset, error) {
	return GetFilteredAssets(ctx, l, filter.ForQuery(types, productIDs, visibility, productVersions))
}

func GetAssetsWithUnboundedMaxVersion(ctx context.Context, l AssetLister, types []model.ResourceType, productIDs []string, visibility model.Visibility) ([]*model.Asset, error) {
	return GetFilteredAssets(ctx, l, filter.ForQuery(types, productIDs, visibility, nil).WithUnboundedMaxVersion())
}

func GetFilteredAssets(ctx context.Context, l AssetLister, filters filter.Filters) ([]*model.Asset, error) {
	all, err := l.GetAllAssets(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Assets(all, filters), nil
}

func FindAssets(ctx context.Context, l AssetLister, search string, types []model.ResourceType) ([]*model.Asset, error) {
	all, err := l.GetAllAssets(ctx)
	if err != nil {
		return nil, err
	}
	return filter.Find(all, search, types), nil
}
