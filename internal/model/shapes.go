package model

import (
	"time"

	"golang.org/x/text/language"

	"assetrepo/internal/jsonbind"
)

// Shape names used in the registry.
const (
	ShapeAsset          = "Asset"
	ShapeWlpInformation = "WlpInformation"
	ShapeAttachment     = "Attachment"
)

var registry = newRegistry()

var (
	// Assets encodes and decodes assets.
	Assets = jsonbind.NewCodec[Asset](registry, ShapeAsset)
	// Attachments encodes and decodes attachments.
	Attachments = jsonbind.NewCodec[Attachment](registry, ShapeAttachment)
)

// Registry returns the registry holding every model shape.
func Registry() *jsonbind.Registry { return registry }

func newRegistry() *jsonbind.Registry {
	r := jsonbind.NewRegistry()
	r.RegisterEnum(resourceTypes.enum())
	r.RegisterEnum(states.enum())
	r.RegisterEnum(stateActions.enum())
	r.RegisterEnum(visibilities.enum())
	r.RegisterEnum(attachmentTypes.enum())
	r.RegisterEnum(linkTypes.enum())
	r.RegisterEnum(licenseTypes.enum())
	r.RegisterEnum(displayPolicies.enum())
	r.RegisterEnum(downloadPolicies.enum())

	r.RegisterShape(assetShape())
	r.RegisterShape(userShape())
	r.RegisterShape(providerShape())
	r.RegisterShape(wlpInformationShape())
	r.RegisterShape(requireFeatureShape())
	r.RegisterShape(appliesToShape())
	r.RegisterShape(filterVersionShape())
	r.RegisterShape(attachmentShape())
	r.RegisterShape(attachmentInfoShape())
	r.RegisterShape(imageDetailsShape())
	return r
}

func assetShape() jsonbind.Shape {
	return jsonbind.Shape{
		Name: ShapeAsset,
		New:  func() any { return &Asset{} },
		Fields: []jsonbind.Field{
			jsonbind.String("_id", func(a *Asset) string { return a.ID }, func(a *Asset, v string) { a.ID = v }),
			jsonbind.String("name", func(a *Asset) string { return a.Name }, func(a *Asset, v string) { a.Name = v }),
			jsonbind.String("description", func(a *Asset) string { return a.Description }, func(a *Asset, v string) { a.Description = v }),
			jsonbind.String("shortDescription", func(a *Asset) string { return a.ShortDescription }, func(a *Asset, v string) { a.ShortDescription = v }),
			jsonbind.Enum("type", resourceTypes.name, func(a *Asset) ResourceType { return a.Type }, func(a *Asset, v ResourceType) { a.Type = v }),
			jsonbind.Object("createdBy", "User", func(a *Asset) *User { return a.CreatedBy }, func(a *Asset, v *User) { a.CreatedBy = v }),
			jsonbind.Time("createdOn", func(a *Asset) time.Time { return a.CreatedOn }, func(a *Asset, v time.Time) { a.CreatedOn = v }),
			jsonbind.Time("lastUpdatedOn", func(a *Asset) time.Time { return a.LastUpdatedOn }, func(a *Asset, v time.Time) { a.LastUpdatedOn = v }),
			jsonbind.Object("provider", "Provider", func(a *Asset) *Provider { return a.Provider }, func(a *Asset, v *Provider) { a.Provider = v }),
			jsonbind.Enum("state", states.name, func(a *Asset) State { return a.State }, func(a *Asset, v State) { a.State = v }),
			jsonbind.Enum("licenseType", licenseTypes.name, func(a *Asset) LicenseType { return a.LicenseType }, func(a *Asset, v LicenseType) { a.LicenseType = v }),
			jsonbind.Bool("featured", func(a *Asset) bool { return a.Featured }, func(a *Asset, v bool) { a.Featured = v }),
			jsonbind.String("marketplaceId", func(a *Asset) string { return a.MarketplaceID }, func(a *Asset, v string) { a.MarketplaceID = v }),
			jsonbind.String("marketplaceName", func(a *Asset) string { return a.MarketplaceName }, func(a *Asset, v string) { a.MarketplaceName = v }),
			jsonbind.String("version", func(a *Asset) string { return a.Version }, func(a *Asset, v string) { a.Version = v }),
			jsonbind.Object("wlpInformation", ShapeWlpInformation, func(a *Asset) *WlpInformation { return a.WlpInformation }, func(a *Asset, v *WlpInformation) { a.WlpInformation = v }),
			jsonbind.ObjectList("attachments", ShapeAttachment, func(a *Asset) []*Attachment { return a.Attachments }, func(a *Asset, v []*Attachment) { a.Attachments = v }),
		},
		Versioned: &jsonbind.Versioned{
			Path:     "wlpInformation.wlpInformationVersion",
			Validate: ValidateWlpInformationVersion,
		},
	}
}

func userShape() jsonbind.Shape {
	return jsonbind.Shape{
		Name: "User",
		New:  func() any { return &User{} },
		Fields: []jsonbind.Field{
			jsonbind.String("name", func(u *User) string { return u.Name }, func(u *User, v string) { u.Name = v }),
			jsonbind.String("email", func(u *User) string { return u.Email }, func(u *User, v string) { u.Email = v }),
		},
	}
}

func providerShape() jsonbind.Shape {
	return jsonbind.Shape{
		Name: "Provider",
		New:  func() any { return &Provider{} },
		Fields: []jsonbind.Field{
			jsonbind.String("name", func(p *Provider) string { return p.Name }, func(p *Provider, v string) { p.Name = v }),
			jsonbind.String("url", func(p *Provider) string { return p.URL }, func(p *Provider, v string) { p.URL = v }),
		},
	}
}

// wlpInformationBreaking moves fields that older readers reject into the
// "wlpInformation2" sibling. Visibility only moves for INSTALL, the one value
// those readers cannot parse.
var wlpInformationBreaking = &jsonbind.Breaking{
	Fields: []string{"visibility", "requireFeatureWithTolerates"},
	Moves: func(field string, value any) bool {
		if field == "visibility" {
			return value == string(VisibilityInstall)
		}
		return true
	},
}

func wlpInformationShape() jsonbind.Shape {
	type W = WlpInformation
	return jsonbind.Shape{
		Name: ShapeWlpInformation,
		New:  func() any { return &W{} },
		Fields: []jsonbind.Field{
			jsonbind.String("wlpInformationVersion", func(w *W) string { return w.WlpInformationVersion }, func(w *W, v string) { w.WlpInformationVersion = v }),
			jsonbind.String("appliesTo", func(w *W) string { return w.AppliesTo }, func(w *W, v string) { w.AppliesTo = v }),
			jsonbind.ObjectList("appliesToFilterInfo", "AppliesToFilterInfo", func(w *W) []*AppliesToFilterInfo { return w.AppliesToFilterInfo }, func(w *W, v []*AppliesToFilterInfo) { w.AppliesToFilterInfo = v }),
			jsonbind.StringList("provideFeature", func(w *W) []string { return w.ProvideFeature }, func(w *W, v []string) { w.ProvideFeature = v }),
			jsonbind.StringList("requireFeature", func(w *W) []string { return w.RequireFeature }, func(w *W, v []string) { w.RequireFeature = v }),
			jsonbind.ObjectList("requireFeatureWithTolerates", "RequireFeatureWithTolerates", func(w *W) []*RequireFeatureWithTolerates { return w.RequireFeatureWithTolerates }, func(w *W, v []*RequireFeatureWithTolerates) { w.RequireFeatureWithTolerates = v }),
			jsonbind.String("shortName", func(w *W) string { return w.ShortName }, func(w *W, v string) { w.ShortName = v }),
			jsonbind.String("lowerCaseShortName", func(w *W) string { return w.LowerCaseShortName }, func(w *W, v string) { w.LowerCaseShortName = v }),
			jsonbind.String("vanityRelativeURL", func(w *W) string { return w.VanityRelativeURL }, func(w *W, v string) { w.VanityRelativeURL = v }),
			jsonbind.Enum("visibility", visibilities.name, func(w *W) Visibility { return w.Visibility }, func(w *W, v Visibility) { w.Visibility = v }),
			jsonbind.Enum("displayPolicy", displayPolicies.name, func(w *W) DisplayPolicy { return w.DisplayPolicy }, func(w *W, v DisplayPolicy) { w.DisplayPolicy = v }),
			jsonbind.Enum("webDisplayPolicy", displayPolicies.name, func(w *W) DisplayPolicy { return w.WebDisplayPolicy }, func(w *W, v DisplayPolicy) { w.WebDisplayPolicy = v }),
			jsonbind.Enum("downloadPolicy", downloadPolicies.name, func(w *W) DownloadPolicy { return w.DownloadPolicy }, func(w *W, v DownloadPolicy) { w.DownloadPolicy = v }),
			jsonbind.String("typeLabel", func(w *W) string { return w.TypeLabel }, func(w *W, v string) { w.TypeLabel = v }),
			jsonbind.Int64("mainAttachmentSize", func(w *W) int64 { return w.MainAttachmentSize }, func(w *W, v int64) { w.MainAttachmentSize = v }),
			jsonbind.String("mainAttachmentSHA256", func(w *W) string { return w.MainAttachmentSHA256 }, func(w *W, v string) { w.MainAttachmentSHA256 = v }),
			jsonbind.String("featuredWeight", func(w *W) string { return w.FeaturedWeight }, func(w *W, v string) { w.FeaturedWeight = v }),
			jsonbind.String("mavenCoordinates", func(w *W) string { return w.MavenCoordinates }, func(w *W, v string) { w.MavenCoordinates = v }),
			jsonbind.Bool("isRestartRequired", func(w *W) bool { return w.IsRestartRequired }, func(w *W, v bool) { w.IsRestartRequired = v }),
			jsonbind.String("singleton", func(w *W) string { return w.Singleton }, func(w *W, v string) { w.Singleton = v }),
			jsonbind.String("ibmInstallTo", func(w *W) string { return w.IBMInstallTo }, func(w *W, v string) { w.IBMInstallTo = v }),
		},
		Breaking: wlpInformationBreaking,
	}
}

func requireFeatureShape() jsonbind.Shape {
	type R = RequireFeatureWithTolerates
	return jsonbind.Shape{
		Name: "RequireFeatureWithTolerates",
		New:  func() any { return &R{} },
		Fields: []jsonbind.Field{
			jsonbind.String("feature", func(r *R) string { return r.Feature }, func(r *R, v string) { r.Feature = v }),
			jsonbind.StringList("tolerates", func(r *R) []string { return r.Tolerates }, func(r *R, v []string) { r.Tolerates = v }),
		},
	}
}

func appliesToShape() jsonbind.Shape {
	type A = AppliesToFilterInfo
	return jsonbind.Shape{
		Name: "AppliesToFilterInfo",
		New:  func() any { return &A{} },
		Fields: []jsonbind.Field{
			jsonbind.String("productId", func(a *A) string { return a.ProductID }, func(a *A, v string) { a.ProductID = v }),
			jsonbind.Object("minVersion", "FilterVersion", func(a *A) *FilterVersion { return a.MinVersion }, func(a *A, v *FilterVersion) { a.MinVersion = v }),
			jsonbind.Object("maxVersion", "FilterVersion", func(a *A) *FilterVersion { return a.MaxVersion }, func(a *A, v *FilterVersion) { a.MaxVersion = v }),
			jsonbind.String("hasMaxVersion", func(a *A) string { return a.HasMaxVersion }, func(a *A, v string) { a.HasMaxVersion = v }),
			jsonbind.StringList("editions", func(a *A) []string { return a.Editions }, func(a *A, v []string) { a.Editions = v }),
			jsonbind.String("installType", func(a *A) string { return a.InstallType }, func(a *A, v string) { a.InstallType = v }),
		},
	}
}

func filterVersionShape() jsonbind.Shape {
	type F = FilterVersion
	return jsonbind.Shape{
		Name: "FilterVersion",
		New:  func() any { return &F{} },
		Fields: []jsonbind.Field{
			jsonbind.String("value", func(f *F) string { return f.Value }, func(f *F, v string) { f.Value = v }),
			jsonbind.Bool("inclusive", func(f *F) bool { return f.Inclusive }, func(f *F, v bool) { f.Inclusive = v }),
			jsonbind.String("label", func(f *F) string { return f.Label }, func(f *F, v string) { f.Label = v }),
			jsonbind.String("compatibilityLabel", func(f *F) string { return f.CompatibilityLabel }, func(f *F, v string) { f.CompatibilityLabel = v }),
		},
	}
}

func attachmentShape() jsonbind.Shape {
	type A = Attachment
	return jsonbind.Shape{
		Name: ShapeAttachment,
		New:  func() any { return &A{} },
		Fields: []jsonbind.Field{
			jsonbind.String("_id", func(a *A) string { return a.ID }, func(a *A, v string) { a.ID = v }),
			jsonbind.String("assetId", func(a *A) string { return a.AssetID }, func(a *A, v string) { a.AssetID = v }),
			jsonbind.String("name", func(a *A) string { return a.Name }, func(a *A, v string) { a.Name = v }),
			jsonbind.Enum("type", attachmentTypes.name, func(a *A) AttachmentType { return a.Type }, func(a *A, v AttachmentType) { a.Type = v }),
			jsonbind.Enum("linkType", linkTypes.name, func(a *A) AttachmentLinkType { return a.LinkType }, func(a *A, v AttachmentLinkType) { a.LinkType = v }),
			jsonbind.String("url", func(a *A) string { return a.URL }, func(a *A, v string) { a.URL = v }),
			jsonbind.String("gridFSId", func(a *A) string { return a.GridFSID }, func(a *A, v string) { a.GridFSID = v }),
			jsonbind.Int64("size", func(a *A) int64 { return a.Size }, func(a *A, v int64) { a.Size = v }),
			jsonbind.Locale("locale", func(a *A) language.Tag { return a.Locale }, func(a *A, v language.Tag) { a.Locale = v }),
			jsonbind.String("contentType", func(a *A) string { return a.ContentType }, func(a *A, v string) { a.ContentType = v }),
			jsonbind.Time("uploadOn", func(a *A) time.Time { return a.UploadOn }, func(a *A, v time.Time) { a.UploadOn = v }),
			jsonbind.Object("wlpInformation", "AttachmentInfo", func(a *A) *AttachmentInfo { return a.WlpInformation }, func(a *A, v *AttachmentInfo) { a.WlpInformation = v }),
		},
	}
}

func attachmentInfoShape() jsonbind.Shape {
	type I = AttachmentInfo
	return jsonbind.Shape{
		Name: "AttachmentInfo",
		New:  func() any { return &I{} },
		Fields: []jsonbind.Field{
			jsonbind.Int64("crc", func(i *I) int64 { return i.CRC }, func(i *I, v int64) { i.CRC = v }),
			jsonbind.Object("imageDetails", "ImageDetails", func(i *I) *ImageDetails { return i.ImageDetails }, func(i *I, v *ImageDetails) { i.ImageDetails = v }),
		},
	}
}

func imageDetailsShape() jsonbind.Shape {
	type D = ImageDetails
	return jsonbind.Shape{
		Name: "ImageDetails",
		New:  func() any { return &D{} },
		Fields: []jsonbind.Field{
			jsonbind.Int32("width", func(d *D) int32 { return d.Width }, func(d *D, v int32) { d.Width = v }),
			jsonbind.Int32("height", func(d *D) int32 { return d.Height }, func(d *D, v int32) { d.Height = v }),
		},
	}
}
