package app

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"assetrepo/internal/jsonbind"
	"assetrepo/internal/model"
)

// Output formats accepted by the Render functions.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// RenderAssets writes assets to w as a JSON array or a YAML sequence, using
// the same field names the repositories store.
func RenderAssets(w io.Writer, format string, assets []*model.Asset) error {
	return render(w, format, model.Assets, assets, true)
}

func RenderAsset(w io.Writer, format string, asset *model.Asset) error {
	return render(w, format, model.Assets, []*model.Asset{asset}, false)
}

func RenderAttachment(w io.Writer, format string, att *model.Attachment) error {
	return render(w, format, model.Attachments, []*model.Attachment{att}, false)
}

func render[T any](w io.Writer, format string, codec jsonbind.Codec[T], vs []*T, list bool) error {
	docs := make([]any, 0, len(vs))
	for _, v := range vs {
		doc, err := codec.Encode(v, jsonbind.EncodeOptions{})
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	var doc any = docs
	if !list {
		doc = docs[0]
	}

	switch format {
	case FormatJSON, "":
		data, err := jsonbind.MarshalDocument(doc, true)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plain(doc)); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// plain replaces json.Number values so YAML writes them as numbers rather
// than quoted strings.
func plain(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = plain(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	}
	return v
}
