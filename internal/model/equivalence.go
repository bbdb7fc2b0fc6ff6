package model

import (
	"bytes"

	"assetrepo/internal/jsonbind"
)

// Fields assigned by a repository rather than by the author of an asset.
var (
	assetServerFields = map[string]bool{
		"_id": true, "createdOn": true, "lastUpdatedOn": true, "state": true, "attachments": true,
	}
	attachmentServerFields = map[string]bool{
		"_id": true, "assetId": true, "gridFSId": true, "uploadOn": true,
	}
)

// Equivalent reports whether a and other carry the same authored content,
// ignoring ids, timestamps and state. Attachments are compared pairwise in
// order with Attachment.Equivalent.
func (a *Asset) Equivalent(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	exclude := func(shape, field string) bool {
		return shape == ShapeAsset && assetServerFields[field]
	}
	if !sameEncoding(Assets, a, other, exclude) {
		return false
	}
	if len(a.Attachments) != len(other.Attachments) {
		return false
	}
	for i := range a.Attachments {
		if !a.Attachments[i].Equivalent(other.Attachments[i]) {
			return false
		}
	}
	return true
}

// Equivalent reports whether two attachments describe the same resource.
// Ids and upload dates are ignored; URLs are ignored when neither attachment
// has a link type, since repositories hand out their own URLs for stored
// content.
func (att *Attachment) Equivalent(other *Attachment) bool {
	if att == nil || other == nil {
		return att == other
	}
	ignoreURL := att.LinkType == "" && other.LinkType == ""
	exclude := func(shape, field string) bool {
		if shape != ShapeAttachment {
			return false
		}
		return attachmentServerFields[field] || (ignoreURL && field == "url")
	}
	return sameEncoding(Attachments, att, other, exclude)
}

func sameEncoding[T any](c jsonbind.Codec[T], x, y *T, exclude func(shape, field string) bool) bool {
	opts := jsonbind.EncodeOptions{Exclude: exclude}
	xb, err := c.MarshalWith(x, opts)
	if err != nil {
		return false
	}
	yb, err := c.MarshalWith(y, opts)
	if err != nil {
		return false
	}
	return bytes.Equal(xb, yb)
}
