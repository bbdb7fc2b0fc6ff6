package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetrepo/internal/jsonbind"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

func newAsset(name string) *model.Asset {
	return &model.Asset{
		Name: name,
		Type: model.ResourceTypeFeature,
		WlpInformation: &model.WlpInformation{
			WlpInformationVersion: model.CurrentWlpInformationVersion,
			Visibility:            model.VisibilityPublic,
		},
	}
}

func TestSingleFileIdsArePositional(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.json")
	c := NewSingleFileClient(path)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		a, err := c.AddAsset(ctx, newAsset(name))
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)

	require.NoError(t, c.DeleteAssetAndAttachments(ctx, "2"))

	assets, err := c.GetAllAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "1", assets[0].ID)
	assert.Equal(t, "3", assets[1].ID)
	assert.Equal(t, "third", assets[1].Name)

	_, err = c.GetAsset(ctx, "2")
	assert.ErrorIs(t, err, repository.ErrAssetNotFound)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc, err := jsonbind.ParseDocument(data)
	require.NoError(t, err)
	items, ok := doc.([]any)
	require.True(t, ok)
	require.Len(t, items, 3)
	assert.Nil(t, items[1])
	first := items[0].(map[string]any)
	assert.NotContains(t, first, "_id")
	assert.Equal(t, "first", first["name"])

	a, err := c.AddAsset(ctx, newAsset("fourth"))
	require.NoError(t, err)
	assert.Equal(t, "4", a.ID)
}

func TestSingleFileGetAsset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name":"one","type":"com.ibm.websphere.Feature"},
		null,
		{"name":"future","wlpInformation":{"wlpInformationVersion":"3.0"}},
		{"name":"four","type":"com.ibm.websphere.Tool","description":"a handy tool"}
	]`), 0644))
	c := NewSingleFileClient(path)
	ctx := context.Background()

	require.NoError(t, c.CheckRepositoryStatus(ctx))

	a, err := c.GetAsset(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, "four", a.Name)
	assert.NotNil(t, a.WlpInformation)

	for _, id := range []string{"0", "2", "5", "abc", ""} {
		_, err := c.GetAsset(ctx, id)
		assert.ErrorIs(t, err, repository.ErrAssetNotFound, "id %q", id)
	}
	_, err = c.GetAsset(ctx, "3")
	assert.True(t, repository.IsBadVersion(err))

	assets, err := c.GetAllAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "four"}, names(assets))

	assets, err = c.FindAssets(ctx, "HANDY", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"four"}, names(assets))

	assets, err = c.GetAssets(ctx, []model.ResourceType{model.ResourceTypeFeature}, nil, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, names(assets))
}

func TestSingleFileAddAssetBadVersionLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.json")
	c := NewSingleFileClient(path)
	ctx := context.Background()

	_, err := c.AddAsset(ctx, newAsset("kept"))
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	future := newAsset("future")
	future.WlpInformation.WlpInformationVersion = "3.0"
	added, err := c.AddAsset(ctx, future)
	require.Error(t, err)
	assert.True(t, repository.IsBadVersion(err))
	assert.Nil(t, added)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	assets, err := c.GetAllAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "kept", assets[0].Name)
}

func TestSingleFileReloadsOnExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"one"}]`), 0644))
	c := NewSingleFileClient(path)
	ctx := context.Background()

	assets, err := c.GetAllAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one"}, names(assets))

	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"one"},{"name":"two"}]`), 0644))
	assets, err = c.GetAllAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, names(assets))
}

func TestSingleFileStatus(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	assert.Error(t, NewSingleFileClient(filepath.Join(dir, "missing.json")).CheckRepositoryStatus(ctx))

	object := filepath.Join(dir, "object.json")
	require.NoError(t, os.WriteFile(object, []byte(`{"name":"not a list"}`), 0644))
	err := NewSingleFileClient(object).CheckRepositoryStatus(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a JSON array")

	_, err = NewSingleFileClient(object).AddAsset(ctx, newAsset("x"))
	assert.Error(t, err)
}

func TestSingleFileRejections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repo.json")
	c := NewSingleFileClient(path)
	ctx := context.Background()

	withID := newAsset("has id")
	withID.ID = "7"
	_, err := c.AddAsset(ctx, withID)
	assert.ErrorIs(t, err, repository.ErrAssetHasID)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "rejected add must not create the file")

	added, err := c.AddAsset(ctx, newAsset("kept"))
	require.NoError(t, err)

	unsupported := []error{}
	_, err = c.UpdateAsset(ctx, added)
	unsupported = append(unsupported, err)
	_, err = c.GetAttachment(ctx, added, &model.Attachment{ID: "a"})
	unsupported = append(unsupported, err)
	_, err = c.AddAttachment(ctx, added.ID, &model.AttachmentSummary{Name: "a"})
	unsupported = append(unsupported, err)
	_, err = c.UpdateAttachment(ctx, added.ID, &model.AttachmentSummary{Name: "a"})
	unsupported = append(unsupported, err)
	unsupported = append(unsupported, c.DeleteAttachment(ctx, added.ID, "a"))
	for i, err := range unsupported {
		assert.True(t, repository.IsClientFailure(err), "call %d", i)
		assert.ErrorIs(t, err, repository.ErrUnsupported, "call %d", i)
	}

	assert.NoError(t, c.UpdateState(ctx, added.ID, model.StateActionPublish))
	_, err = c.AddAsset(ctx, nil)
	assert.True(t, repository.IsClientFailure(err))
}
