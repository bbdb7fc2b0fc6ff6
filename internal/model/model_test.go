package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"assetrepo/internal/jsonbind"
)

func sampleAsset() *Asset {
	return &Asset{
		ID:               "abc123",
		Name:             "JSON processing",
		Description:      "Adds JSON-P support",
		ShortDescription: "JSON-P",
		Type:             ResourceTypeFeature,
		CreatedBy:        &User{Name: "dev", Email: "dev@example.com"},
		CreatedOn:        time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		LastUpdatedOn:    time.Date(2024, 2, 1, 8, 0, 0, 500, time.UTC),
		Provider:         &Provider{Name: "Example", URL: "https://example.com"},
		State:            StatePublished,
		LicenseType:      LicenseTypeIPLA,
		Featured:         true,
		Version:          "1.0.0",
		WlpInformation: &WlpInformation{
			WlpInformationVersion: CurrentWlpInformationVersion,
			AppliesTo:             "com.ibm.websphere.appserver; productVersion=8.5.5.4",
			AppliesToFilterInfo: []*AppliesToFilterInfo{{
				ProductID:     "com.ibm.websphere.appserver",
				MinVersion:    &FilterVersion{Value: "8.5.5.4", Inclusive: true, Label: "8.5.5.4"},
				HasMaxVersion: "false",
				Editions:      []string{"BASE", "ND"},
			}},
			ProvideFeature: []string{"com.ibm.websphere.appserver.jsonp-1.0"},
			RequireFeatureWithTolerates: []*RequireFeatureWithTolerates{
				{Feature: "com.ibm.websphere.appserver.javaeePlatform-7.0", Tolerates: []string{"8.0"}},
			},
			ShortName:          "jsonp-1.0",
			LowerCaseShortName: "jsonp-1.0",
			VanityRelativeURL:  "jsonp-1.0",
			Visibility:         VisibilityPublic,
			DisplayPolicy:      DisplayPolicyVisible,
			DownloadPolicy:     DownloadPolicyAll,
			MainAttachmentSize: 12345,
			IsRestartRequired:  true,
		},
		Attachments: []*Attachment{{
			ID:          "att1",
			AssetID:     "abc123",
			Name:        "LA_en",
			Type:        AttachmentTypeLicenseAgreement,
			LinkType:    LinkTypeDirect,
			URL:         "https://example.com/att1",
			Size:        42,
			Locale:      language.MustParse("en-US"),
			ContentType: "text/plain",
			UploadOn:    time.Date(2024, 1, 15, 10, 31, 0, 0, time.UTC),
			WlpInformation: &AttachmentInfo{
				CRC:          2345,
				ImageDetails: &ImageDetails{Width: 10, Height: 20},
			},
		}},
	}
}

func TestAssetRoundTrip(t *testing.T) {
	in := sampleAsset()
	data, err := Assets.Marshal(in)
	require.NoError(t, err)

	out, err := Assets.Unmarshal(data, jsonbind.Options{StrictUnknownFields: true})
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestAssetWireForm(t *testing.T) {
	data, err := Assets.Marshal(sampleAsset())
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))

	assert.Equal(t, "com.ibm.websphere.Feature", m["type"])
	assert.Equal(t, "published", m["state"])
	assert.Equal(t, "2024-02-01T08:00:00.0000005Z", m["lastUpdatedOn"])

	wlp := m["wlpInformation"].(map[string]any)
	assert.Equal(t, "PUBLIC", wlp["visibility"])
	assert.NotContains(t, wlp, "requireFeatureWithTolerates")

	wlp2 := m["wlpInformation2"].(map[string]any)
	assert.Contains(t, wlp2, "requireFeatureWithTolerates")
	assert.NotContains(t, wlp2, "visibility")

	att := m["attachments"].([]any)[0].(map[string]any)
	assert.Equal(t, "en_US", att["locale"])
	assert.Equal(t, "LICENSE_AGREEMENT", att["type"])
}

func TestInstallVisibilityUsesSiblingKey(t *testing.T) {
	in := &Asset{Name: "installer only", WlpInformation: &WlpInformation{Visibility: VisibilityInstall}}
	data, err := Assets.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"installer only","wlpInformation":{},"wlpInformation2":{"visibility":"INSTALL"}}`, string(data))

	out, err := Assets.Unmarshal(data, jsonbind.Options{StrictUnknownFields: true})
	require.NoError(t, err)
	assert.Equal(t, VisibilityInstall, out.WlpInformation.Visibility)
}

func TestStateParsing(t *testing.T) {
	out, err := Assets.Unmarshal([]byte(`{"state":"awaiting_approval","type":"com.ibm.websphere.OpenSourceIntegration"}`), jsonbind.Options{})
	require.NoError(t, err)
	assert.Equal(t, StateAwaitingApproval, out.State)
	assert.Equal(t, ResourceTypeOpenSource, out.Type)

	out, err = Assets.Unmarshal([]byte(`{"type":"FEATURE"}`), jsonbind.Options{})
	require.NoError(t, err)
	assert.Equal(t, ResourceTypeFeature, out.Type)
}

func TestValidateWlpInformationVersion(t *testing.T) {
	tests := []struct {
		version string
		wantErr bool
	}{
		{version: ""},
		{version: "1.0"},
		{version: "1.5"},
		{version: "1.0.2"},
		{version: "1.0.0.1"},
		{version: "1.0.0-SNAPSHOT"},
		{version: "1.1-beta"},
		{version: "2.0.0-SNAPSHOT", wantErr: true},
		{version: "-1.0", wantErr: true},
		{version: "2.0", wantErr: true},
		{version: "3.0", wantErr: true},
		{version: "0.9", wantErr: true},
		{version: "banana", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			err := ValidateWlpInformationVersion(tt.version)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateWlpInformationVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
			if err == nil {
				return
			}
			var bv *jsonbind.BadVersionError
			require.ErrorAs(t, err, &bv)
			assert.Equal(t, tt.version, bv.BadVersion)
			assert.Equal(t, MinWlpInformationVersion, bv.MinVersion)
			assert.Equal(t, MaxWlpInformationVersion, bv.MaxVersion)
		})
	}
}

func TestBadVersionSkippedInLists(t *testing.T) {
	data := []byte(`[
		{"name":"Valid","wlpInformation":{"wlpInformationVersion":"1.0"}},
		{"name":"Invalid","wlpInformation":{"wlpInformationVersion":"3.0"}},
		{"name":"AlsoValid"}
	]`)
	assets, err := Assets.UnmarshalList(data, jsonbind.Options{})
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "Valid", assets[0].Name)
	assert.Equal(t, "AlsoValid", assets[1].Name)

	_, err = Assets.Unmarshal([]byte(`{"name":"Invalid","wlpInformation":{"wlpInformationVersion":"3.0"}}`), jsonbind.Options{})
	assert.True(t, jsonbind.IsBadVersion(err))
}

func TestNormalize(t *testing.T) {
	a := (&Asset{}).Normalize()
	require.NotNil(t, a.WlpInformation)
	assert.NotNil(t, a.WlpInformation.AppliesToFilterInfo)
	assert.Empty(t, a.WlpInformation.AppliesToFilterInfo)

	info := []*AppliesToFilterInfo{{ProductID: "p"}}
	b := (&Asset{WlpInformation: &WlpInformation{AppliesToFilterInfo: info}}).Normalize()
	assert.Equal(t, info, b.WlpInformation.AppliesToFilterInfo)
}

func TestAttachmentEquivalent(t *testing.T) {
	base := func(url string, link AttachmentLinkType) *Attachment {
		return &Attachment{Name: "TestAttachment.txt", Type: AttachmentTypeContent, Size: 10, URL: url, LinkType: link}
	}
	withIDs := func(a *Attachment, id string) *Attachment {
		a.ID = id
		a.AssetID = "asset"
		a.UploadOn = time.Now().UTC()
		return a
	}

	tests := []struct {
		name string
		a, b *Attachment
		want bool
	}{
		{name: "same content different ids", a: withIDs(base("", ""), "1"), b: withIDs(base("", ""), "2"), want: true},
		{name: "same url", a: withIDs(base("http://url", LinkTypeWebPage), "1"), b: withIDs(base("http://url", LinkTypeWebPage), "2"), want: true},
		{name: "no link types ignore urls", a: base("apple", ""), b: base("pear", ""), want: true},
		{name: "one link type set", a: base("apple", LinkTypeWebPage), b: base("pear", ""), want: false},
		{name: "other link type set", a: base("apple", ""), b: base("pear", LinkTypeWebPage), want: false},
		{name: "different urls with link type", a: base("apple", LinkTypeDirect), b: base("pear", LinkTypeDirect), want: false},
		{name: "different size", a: base("", ""), b: &Attachment{Name: "TestAttachment.txt", Type: AttachmentTypeContent, Size: 11}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equivalent(tt.b); got != tt.want {
				t.Errorf("Equivalent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssetEquivalent(t *testing.T) {
	a := sampleAsset()
	b := sampleAsset()
	b.ID = "other"
	b.State = StateDraft
	b.LastUpdatedOn = time.Now()
	b.Attachments[0].ID = "att2"
	assert.True(t, a.Equivalent(b))

	b.Description = "changed"
	assert.False(t, a.Equivalent(b))

	c := sampleAsset()
	c.Attachments = nil
	assert.False(t, a.Equivalent(c))
}

func TestFilterableAttributeValues(t *testing.T) {
	a := sampleAsset()
	a.WlpInformation.AppliesToFilterInfo = append(a.WlpInformation.AppliesToFilterInfo,
		&AppliesToFilterInfo{ProductID: "com.ibm.websphere.other", HasMaxVersion: "true"})

	tests := []struct {
		attr FilterableAttribute
		want []string
	}{
		{FilterType, []string{"com.ibm.websphere.Feature"}},
		{FilterProductID, []string{"com.ibm.websphere.appserver", "com.ibm.websphere.other"}},
		{FilterVisibility, []string{"PUBLIC"}},
		{FilterSymbolicName, []string{"com.ibm.websphere.appserver.jsonp-1.0"}},
		{FilterProductMinVersion, []string{"8.5.5.4"}},
		{FilterProductHasMaxVersion, []string{"false", "true"}},
		{FilterShortName, []string{"jsonp-1.0"}},
		{FilterLowerCaseShortName, []string{"jsonp-1.0"}},
		{FilterVanityURL, []string{"jsonp-1.0"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.attr), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.attr.Values(a))
		})
	}

	assert.Empty(t, FilterShortName.Values(&Asset{}))
	assert.Empty(t, FilterType.Values(&Asset{}))
	assert.Len(t, FilterableAttributes(), 9)
}

func TestParseHelpers(t *testing.T) {
	rt, err := ParseResourceType("com.ibm.websphere.ProductSample")
	require.NoError(t, err)
	assert.Equal(t, ResourceTypeProductSample, rt)

	rt, err = ParseResourceType("addon")
	require.NoError(t, err)
	assert.Equal(t, ResourceTypeAddon, rt)

	_, err = ParseResourceType("nope")
	assert.Error(t, err)

	action, err := ParseStateAction("need_more_info")
	require.NoError(t, err)
	assert.Equal(t, StateActionNeedMoreInfo, action)
	assert.Equal(t, "need_more_info", action.Value())

	attr, err := ParseFilterableAttribute("short_name")
	require.NoError(t, err)
	assert.Equal(t, FilterShortName, attr)
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		action  StateAction
		from    State
		want    State
		wantErr bool
	}{
		{StateActionPublish, StateDraft, StateAwaitingApproval, false},
		{StateActionApprove, StateAwaitingApproval, StatePublished, false},
		{StateActionCancel, StateAwaitingApproval, StateDraft, false},
		{StateActionNeedMoreInfo, StateAwaitingApproval, StateNeedMoreInfo, false},
		{StateActionPublish, StateNeedMoreInfo, StateAwaitingApproval, false},
		{StateActionUnpublish, StatePublished, StateDraft, false},
		{StateActionApprove, StateDraft, "", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.action)+"/"+string(tt.from), func(t *testing.T) {
			got, err := tt.action.Next(tt.from)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Next() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Next() = %v, want %v", got, tt.want)
			}
		})
	}
}
