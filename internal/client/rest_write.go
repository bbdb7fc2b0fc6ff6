package client

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"

	"emperror.dev/errors"

	"assetrepo/internal/jsonbind"
	"assetrepo/internal/model"
	"assetrepo/internal/repository"
)

// multipartBoundary is the boundary repositories expect on attachment uploads.
const multipartBoundary = "---------------------------287032381131322"

const jsonContentType = "application/json"

// Fields the server owns; never sent on create or update.
var serverOwnedAssetFields = jsonbind.EncodeOptions{
	Exclude: func(shape, field string) bool {
		return shape == model.ShapeAsset && (field == "_id" || field == "attachments")
	},
}

// AddAsset creates the asset and returns it as stored by the server.
func (c *RESTClient) AddAsset(ctx context.Context, asset *model.Asset) (*model.Asset, error) {
	if asset == nil {
		return nil, repository.NewClientFailure(nil, "asset is required")
	}
	if asset.ID != "" {
		return nil, repository.NewClientFailure(repository.ErrAssetHasID, "cannot add asset", "id", asset.ID)
	}
	body, err := model.Assets.MarshalWith(asset, serverOwnedAssetFields)
	if err != nil {
		return nil, errors.WrapIf(err, "encoding asset")
	}
	resp, err := c.do(ctx, http.MethodPost, c.endpoint("assets"), nil, bytes.NewReader(body), jsonContentType)
	if err != nil {
		return nil, err
	}
	created, err := c.decodeAssetResponse(resp)
	if err != nil {
		return nil, err
	}
	c.logger.Info("asset added", "id", created.ID, "name", created.Name)
	return c.GetAsset(ctx, created.ID)
}

// UpdateAsset replaces the stored asset with the given id.
func (c *RESTClient) UpdateAsset(ctx context.Context, asset *model.Asset) (*model.Asset, error) {
	if asset == nil || asset.ID == "" {
		return nil, repository.NewClientFailure(nil, "cannot update an asset without an id")
	}
	body, err := model.Assets.MarshalWith(asset, serverOwnedAssetFields)
	if err != nil {
		return nil, errors.WrapIf(err, "encoding asset")
	}
	resp, err := c.do(ctx, http.MethodPut, c.endpoint("assets", asset.ID), nil, bytes.NewReader(body), jsonContentType)
	if err != nil {
		return nil, err
	}
	drain(resp)
	c.logger.Info("asset updated", "id", asset.ID)
	return c.GetAsset(ctx, asset.ID)
}

// DeleteAssetAndAttachments removes every attachment and then the asset.
// Assets with an unsupported schema version can still be deleted.
func (c *RESTClient) DeleteAssetAndAttachments(ctx context.Context, id string) error {
	asset, err := c.getAssetUnverified(ctx, id)
	if err != nil {
		return err
	}
	for _, att := range asset.Attachments {
		if err := c.DeleteAttachment(ctx, id, att.ID); err != nil {
			return err
		}
	}
	resp, err := c.do(ctx, http.MethodDelete, c.endpoint("assets", id), nil, nil, "")
	if err != nil {
		return err
	}
	drain(resp)
	c.logger.Info("asset deleted", "id", id, "attachments", len(asset.Attachments))
	return nil
}

// AddAttachment uploads a file, or registers a link when summary.URL is set.
func (c *RESTClient) AddAttachment(ctx context.Context, assetID string, summary *model.AttachmentSummary) (*model.Attachment, error) {
	att, err := attachmentFromSummary(summary)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("name", att.Name)
	u := c.endpoint("assets", assetID, "attachments")

	var resp *http.Response
	if summary.URL != "" {
		att.URL = summary.URL
		if att.LinkType == "" {
			att.LinkType = model.LinkTypeWebPage
		}
		body, err := model.Attachments.Marshal(att)
		if err != nil {
			return nil, errors.WrapIf(err, "encoding attachment")
		}
		resp, err = c.do(ctx, http.MethodPost, u, query, bytes.NewReader(body), jsonContentType)
		if err != nil {
			return nil, err
		}
	} else {
		resp, err = c.uploadAttachment(ctx, u, query, att, summary.Path)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading attachment response")
	}
	created, err := model.Attachments.Unmarshal(data, c.opts)
	if err != nil {
		return nil, errors.WrapIfWithDetails(err, "decoding attachment", "asset", assetID)
	}
	c.logger.Info("attachment added", "asset", assetID, "id", created.ID, "name", created.Name)
	return created, nil
}

func (c *RESTClient) uploadAttachment(ctx context.Context, u *url.URL, query url.Values, att *model.Attachment, path string) (*http.Response, error) {
	if path == "" {
		return nil, repository.NewClientFailure(nil, "attachment needs a file or a url", "name", att.Name)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithDetails(err, "opening attachment", "path", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.WrapWithDetails(err, "stat attachment", "path", path)
	}
	if att.Size == 0 {
		att.Size = info.Size()
	}
	meta, err := model.Attachments.Marshal(att)
	if err != nil {
		f.Close()
		return nil, errors.WrapIf(err, "encoding attachment")
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	if err := mw.SetBoundary(multipartBoundary); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "setting multipart boundary")
	}
	go func() {
		defer f.Close()
		err := writeAttachmentParts(mw, meta, att, f)
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	resp, err := c.do(ctx, http.MethodPost, u, query, pr, mw.FormDataContentType())
	if err != nil {
		// Unblocks the writer when the transport never drained the pipe.
		pr.CloseWithError(err)
		return nil, err
	}
	return resp, nil
}

func writeAttachmentParts(mw *multipart.Writer, meta []byte, att *model.Attachment, content io.Reader) error {
	infoHeader := textproto.MIMEHeader{}
	infoHeader.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": "attachmentInfo"}))
	infoHeader.Set("Content-Type", jsonContentType)
	w, err := mw.CreatePart(infoHeader)
	if err != nil {
		return err
	}
	if _, err := w.Write(meta); err != nil {
		return err
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     att.Name,
		"filename": att.Name,
	}))
	fileHeader.Set("Content-Type", uploadContentType(att))
	w, err = mw.CreatePart(fileHeader)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, content)
	return err
}

func uploadContentType(att *model.Attachment) string {
	if att.ContentType != "" {
		return att.ContentType
	}
	switch att.Type {
	case model.AttachmentTypeLicense, model.AttachmentTypeLicenseAgreement, model.AttachmentTypeLicenseInformation:
		return "text/plain"
	case model.AttachmentTypeThumbnail, model.AttachmentTypeIllustration:
		if t := mime.TypeByExtension(filepath.Ext(att.Name)); t != "" {
			return t
		}
		return "image/png"
	}
	return "application/octet-stream"
}

// UpdateAttachment deletes the attachment with the summary's resolved name,
// if any, and uploads the replacement.
func (c *RESTClient) UpdateAttachment(ctx context.Context, assetID string, summary *model.AttachmentSummary) (*model.Attachment, error) {
	att, err := attachmentFromSummary(summary)
	if err != nil {
		return nil, err
	}
	asset, err := c.GetAsset(ctx, assetID)
	if err != nil {
		return nil, err
	}
	if existing := asset.AttachmentByName(att.Name); existing != nil {
		if err := c.DeleteAttachment(ctx, assetID, existing.ID); err != nil {
			return nil, err
		}
	}
	return c.AddAttachment(ctx, assetID, summary)
}

func (c *RESTClient) DeleteAttachment(ctx context.Context, assetID, attachmentID string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.endpoint("assets", assetID, "attachments", attachmentID), nil, nil, "")
	if err != nil {
		return err
	}
	drain(resp)
	c.logger.Debug("attachment deleted", "asset", assetID, "id", attachmentID)
	return nil
}

// UpdateState asks the server to apply action to the asset.
func (c *RESTClient) UpdateState(ctx context.Context, assetID string, action model.StateAction) error {
	body, err := jsonbind.MarshalDocument(map[string]any{"action": action.Value()}, false)
	if err != nil {
		return errors.WrapIf(err, "encoding state action")
	}
	resp, err := c.do(ctx, http.MethodPut, c.endpoint("assets", assetID, "state"), nil, bytes.NewReader(body), jsonContentType)
	if err != nil {
		return err
	}
	drain(resp)
	c.logger.Info("asset state updated", "id", assetID, "action", action.Value())
	return nil
}

func (c *RESTClient) decodeAssetResponse(resp *http.Response) (*model.Asset, error) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading asset response")
	}
	a, err := model.Assets.Unmarshal(data, c.opts)
	if err != nil {
		return nil, errors.WrapIf(err, "decoding asset response")
	}
	if a.ID == "" {
		return nil, &repository.RequestFailureError{
			StatusCode: resp.StatusCode,
			Message:    "response did not include an asset id",
			URL:        redact(*resp.Request.URL),
		}
	}
	return a, nil
}

// attachmentFromSummary copies the summary's metadata template and checks
// the fields every upload needs.
func attachmentFromSummary(summary *model.AttachmentSummary) (*model.Attachment, error) {
	if summary == nil {
		return nil, repository.NewClientFailure(nil, "attachment summary is required")
	}
	att := &model.Attachment{}
	if summary.Attachment != nil {
		copied := *summary.Attachment
		att = &copied
	}
	if att.Name == "" {
		att.Name = summary.Name
	}
	if att.Name == "" {
		return nil, repository.NewClientFailure(nil, "attachment name is required")
	}
	if att.Type == "" {
		return nil, repository.NewClientFailure(repository.ErrMissingAttachmentType, "cannot add attachment", "name", att.Name)
	}
	return att, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
