package client

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"emperror.dev/errors"
	"golang.org/x/text/language"

	"assetrepo/internal/filter"
	"assetrepo/internal/jsonbind"
	"assetrepo/internal/manifest"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

const (
	metadataSuffix = ".json"
	licensePrefix  = "#licenses/"
)

// licenseHeaders names the manifest headers that point at license files,
// per archive kind.
type licenseHeaders struct {
	manifestPath string
	agreement    string
	information  string
}

var archiveLicenses = map[string]licenseHeaders{
	".jar": {manifestPath: manifest.JarPath, agreement: "License-Agreement", information: "License-Information"},
	".esa": {manifestPath: manifest.EsaPath, agreement: "IBM-License-Agreement", information: "IBM-License-Information"},
}

// fileRepo reads assets laid out as "<artifact>.json" metadata next to
// "<artifact>" inside a file system. The asset id is the artifact path.
// Each call opens the file system afresh and closes it before returning.
type fileRepo struct {
	source string
	open   func() (fs.FS, io.Closer, error)
	logger repository.Logger
	opts   jsonbind.Options
	ignore []string
}

func (r *fileRepo) GetAllAssets(ctx context.Context) ([]*model.Asset, error) {
	fsys, closer, err := r.open()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	ignored, err := loadIgnore(fsys, r.ignore)
	if err != nil {
		return nil, errors.WithDetails(err, "source", r.source)
	}

	var ids []string
	err = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if ignored.Match(p) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() && strings.HasSuffix(p, metadataSuffix) {
			ids = append(ids, strings.TrimSuffix(p, metadataSuffix))
		}
		return nil
	})
	if err != nil {
		return nil, errors.WrapWithDetails(err, "scanning repository", "source", r.source)
	}
	sort.Strings(ids)
	r.logger.Debug("scanned repository", "source", r.source, "assets", len(ids))

	assets := make([]*model.Asset, 0, len(ids))
	var skipped []*repository.BadVersionError
	for _, id := range ids {
		a, err := r.readAsset(fsys, id)
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
	repository.LogSkipped(r.logger, r.source, skipped)
	return assets, nil
}

// GetAsset returns the asset with the attachments found next to it: the
// artifact itself and, for jar and esa artifacts, the bundled licenses.
func (r *fileRepo) GetAsset(ctx context.Context, id string) (*model.Asset, error) {
	fsys, closer, err := r.open()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	ignored, err := loadIgnore(fsys, r.ignore)
	if err != nil {
		return nil, errors.WithDetails(err, "source", r.source)
	}
	if ignored.Match(id) {
		return nil, errors.WithDetails(errors.WithStack(repository.ErrAssetNotFound), "id", id)
	}

	a, err := r.readAsset(fsys, id)
	if err != nil {
		return nil, err
	}

	info, err := fs.Stat(fsys, id)
	if err != nil || info.IsDir() {
		return a, nil
	}
	a.Attachments = append(a.Attachments, &model.Attachment{
		ID:       id,
		AssetID:  id,
		Name:     path.Base(id),
		Type:     model.AttachmentTypeContent,
		LinkType: model.LinkTypeDirect,
		URL:      id,
		Size:     info.Size(),
	})

	headers, ok := archiveLicenses[strings.ToLower(path.Ext(id))]
	if !ok {
		return a, nil
	}
	archive, archiveCloser, err := openArchive(fsys, id)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "reading artifact", "id", id)
	}
	defer archiveCloser.Close()
	licenses, err := licenseAttachments(id, archive, headers)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "reading licenses", "id", id)
	}
	a.Attachments = append(a.Attachments, licenses...)
	return a, nil
}

func (r *fileRepo) GetAssets(ctx context.Context, types []model.ResourceType, productIDs []string, visibility model.Visibility, productVersions []string) ([]*model.Asset, error) {
	return repository.GetAssets(ctx, r, types, productIDs, visibility, productVersions)
}

func (r *fileRepo) GetAssetsWithUnboundedMaxVersion(ctx context.Context, types []model.ResourceType, productIDs []string, visibility model.Visibility) ([]*model.Asset, error) {
	return repository.GetAssetsWithUnboundedMaxVersion(ctx, r, types, productIDs, visibility)
}

func (r *fileRepo) GetFilteredAssets(ctx context.Context, filters filter.Filters) ([]*model.Asset, error) {
	return repository.GetFilteredAssets(ctx, r, filters)
}

func (r *fileRepo) FindAssets(ctx context.Context, search string, types []model.ResourceType) ([]*model.Asset, error) {
	return repository.FindAssets(ctx, r, search, types)
}

// GetAttachment opens the artifact, or a license file inside it. The
// returned reader holds the whole content in memory.
func (r *fileRepo) GetAttachment(ctx context.Context, asset *model.Asset, attachment *model.Attachment) (io.ReadCloser, error) {
	if asset == nil || attachment == nil {
		return nil, repository.NewClientFailure(nil, "asset and attachment are required")
	}
	fsys, closer, err := r.open()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	artifact, license, isLicense := strings.Cut(attachment.ID, licensePrefix)
	if !isLicense {
		data, err := fs.ReadFile(fsys, attachment.ID)
		if err != nil {
			return nil, notFound(err, "attachment", attachment.ID)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	archive, archiveCloser, err := openArchive(fsys, artifact)
	if err != nil {
		return nil, notFound(err, "attachment", attachment.ID)
	}
	defer archiveCloser.Close()
	for _, f := range archive.File {
		if f.FileInfo().IsDir() || path.Base(f.Name) != license {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.WrapWithDetails(err, "opening license", "id", attachment.ID)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, errors.WrapWithDetails(err, "reading license", "id", attachment.ID)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil, errors.WithDetails(errors.WithStack(repository.ErrAssetNotFound), "attachment", attachment.ID)
}

func (r *fileRepo) readAsset(fsys fs.FS, id string) (*model.Asset, error) {
	if !fs.ValidPath(id) || id == "." {
		return nil, errors.WithDetails(errors.WithStack(repository.ErrAssetNotFound), "id", id)
	}
	data, err := fs.ReadFile(fsys, id+metadataSuffix)
	if err != nil {
		return nil, notFound(err, "id", id)
	}
	a, err := model.Assets.Unmarshal(data, r.opts)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "decoding asset", "id", id)
	}
	a.ID = id
	return a.Normalize(), nil
}

func notFound(err error, key, value string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.WithDetails(errors.Wrap(repository.ErrAssetNotFound, err.Error()), key, value)
	}
	return errors.WrapWithDetails(err, "reading repository", key, value)
}

// openArchive reads the jar or esa at name as a zip. Entries of an outer
// zip cannot be read at random, so they are buffered. The caller closes the
// returned closer once done with the reader.
func openArchive(fsys fs.FS, name string) (*zip.Reader, io.Closer, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, err
	}
	if ra, ok := f.(io.ReaderAt); ok {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		zr, err := zip.NewReader(ra, info.Size())
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		return zr, f, nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, nil, err
	}
	return zr, io.NopCloser(nil), nil
}

// licenseAttachments lists the license files an archive's manifest points
// at. A header value is an entry-name prefix; each "<prefix>_<locale>"
// entry is one localized license.
func licenseAttachments(assetID string, archive *zip.Reader, headers licenseHeaders) ([]*model.Attachment, error) {
	mf, err := archive.Open(headers.manifestPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer mf.Close()
	m, err := manifest.Parse(mf)
	if err != nil {
		return nil, err
	}

	var out []*model.Attachment
	for _, h := range []struct {
		header string
		typ    model.AttachmentType
	}{
		{headers.agreement, model.AttachmentTypeLicenseAgreement},
		{headers.information, model.AttachmentTypeLicenseInformation},
	} {
		prefix := m.Main.Get(h.header)
		if prefix == "" {
			continue
		}
		for _, f := range archive.File {
			suffix, ok := strings.CutPrefix(f.Name, prefix+"_")
			if !ok || f.FileInfo().IsDir() || suffix == "" {
				continue
			}
			name := path.Base(f.Name)
			out = append(out, &model.Attachment{
				ID:       assetID + licensePrefix + name,
				AssetID:  assetID,
				Name:     name,
				Type:     h.typ,
				LinkType: model.LinkTypeDirect,
				URL:      assetID + licensePrefix + name,
				Size:     int64(f.UncompressedSize64),
				Locale:   licenseLocale(suffix),
			})
		}
	}
	return out, nil
}

// licenseLocale reads the locale from a license file suffix such as
// "en", "zh_TW" or "pt_BR". Unknown suffixes give language.Und.
func licenseLocale(suffix string) language.Tag {
	suffix = strings.TrimSuffix(suffix, path.Ext(suffix))
	tag, err := jsonbind.ParseLocale(suffix)
	if err != nil {
		return language.Und
	}
	return tag
}
