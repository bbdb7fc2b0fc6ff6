package app

import (
	"bytes"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"assetrepo/internal/model"
)

func testAsset() *model.Asset {
	return (&model.Asset{
		ID:   "id-1",
		Name: "JSON processing",
		Type: model.ResourceTypeFeature,
		WlpInformation: &model.WlpInformation{
			MainAttachmentSize: 2048,
			Visibility:         model.VisibilityPublic,
		},
	}).Normalize()
}

func TestRenderAssets(t *testing.T) {
	tests := []struct {
		name   string
		format string
		want   []string
	}{
		{
			name:   "json",
			format: FormatJSON,
			want:   []string{`"_id": "id-1"`, `"type": "com.ibm.websphere.Feature"`, `"mainAttachmentSize": 2048`},
		},
		{
			name:   "default is json",
			format: "",
			want:   []string{`"name": "JSON processing"`},
		},
		{
			name:   "yaml",
			format: FormatYAML,
			want:   []string{"_id: id-1", "type: com.ibm.websphere.Feature", "mainAttachmentSize: 2048"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := RenderAssets(&buf, tt.format, []*model.Asset{testAsset()}); err != nil {
				t.Fatalf("RenderAssets() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("RenderAssets() output missing %q:\n%s", w, buf.String())
				}
			}
		})
	}
}

func TestRenderAsset_YAMLNumbers(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderAsset(&buf, FormatYAML, testAsset()); err != nil {
		t.Fatalf("RenderAsset() error = %v", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not yaml: %v", err)
	}
	wlp, ok := doc["wlpInformation"].(map[string]any)
	if !ok {
		t.Fatalf("wlpInformation missing from %v", doc)
	}
	if size, ok := wlp["mainAttachmentSize"].(int); !ok || size != 2048 {
		t.Errorf("mainAttachmentSize = %#v, want int 2048", wlp["mainAttachmentSize"])
	}
}

func TestRenderAttachment(t *testing.T) {
	var buf bytes.Buffer
	att := &model.Attachment{ID: "att-1", Name: "readme.txt", Type: model.AttachmentTypeDocumentation, Size: 7}
	if err := RenderAttachment(&buf, FormatJSON, att); err != nil {
		t.Fatalf("RenderAttachment() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"name": "readme.txt"`) {
		t.Errorf("RenderAttachment() = %s", buf.String())
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	if err := RenderAssets(&bytes.Buffer{}, "xml", nil); err == nil {
		t.Error("RenderAssets() with unknown format error = nil, want error")
	}
}
