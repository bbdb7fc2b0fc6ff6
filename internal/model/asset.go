// Package model holds the asset metadata types exchanged with repositories
// and their JSON field tables.
package model

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Asset is one repository item.
type Asset struct {
	ID               string
	Name             string
	Description      string
	ShortDescription string
	Type             ResourceType
	CreatedBy        *User
	CreatedOn        time.Time
	LastUpdatedOn    time.Time
	Provider         *Provider
	State            State
	LicenseType      LicenseType
	Featured         bool
	MarketplaceID    string
	MarketplaceName  string
	Version          string
	WlpInformation   *WlpInformation
	Attachments      []*Attachment
}

type User struct {
	Name  string
	Email string
}

type Provider struct {
	Name string
	URL  string
}

// WlpInformation is the classification block of an asset.
type WlpInformation struct {
	WlpInformationVersion       string
	AppliesTo                   string
	AppliesToFilterInfo         []*AppliesToFilterInfo
	ProvideFeature              []string
	RequireFeature              []string
	RequireFeatureWithTolerates []*RequireFeatureWithTolerates
	ShortName                   string
	LowerCaseShortName          string
	VanityRelativeURL           string
	Visibility                  Visibility
	DisplayPolicy               DisplayPolicy
	WebDisplayPolicy            DisplayPolicy
	DownloadPolicy              DownloadPolicy
	TypeLabel                   string
	MainAttachmentSize          int64
	MainAttachmentSHA256        string
	FeaturedWeight              string
	MavenCoordinates            string
	IsRestartRequired           bool
	Singleton                   string
	IBMInstallTo                string
}

// RequireFeatureWithTolerates is a feature dependency plus the alternative
// versions that also satisfy it.
type RequireFeatureWithTolerates struct {
	Feature   string
	Tolerates []string
}

// AppliesToFilterInfo records which product versions an asset applies to.
type AppliesToFilterInfo struct {
	ProductID     string
	MinVersion    *FilterVersion
	MaxVersion    *FilterVersion
	HasMaxVersion string
	Editions      []string
	InstallType   string
}

type FilterVersion struct {
	Value              string
	Inclusive          bool
	Label              string
	CompatibilityLabel string
}

// Attachment is a binary or text resource bound to an asset.
type Attachment struct {
	ID             string
	AssetID        string
	Name           string
	Type           AttachmentType
	LinkType       AttachmentLinkType
	URL            string
	GridFSID       string
	Size           int64
	Locale         language.Tag
	ContentType    string
	UploadOn       time.Time
	WlpInformation *AttachmentInfo
}

type AttachmentInfo struct {
	CRC          int64
	ImageDetails *ImageDetails
}

type ImageDetails struct {
	Width  int32
	Height int32
}

// AttachmentSummary describes an attachment to be uploaded: either a local
// file at Path or an external URL, plus the metadata to store with it.
type AttachmentSummary struct {
	Name       string
	Path       string
	URL        string
	Attachment *Attachment
}

// Normalize ensures the WlpInformation block and its applies-to list are
// present, and returns a.
func (a *Asset) Normalize() *Asset {
	if a.WlpInformation == nil {
		a.WlpInformation = &WlpInformation{}
	}
	if a.WlpInformation.AppliesToFilterInfo == nil {
		a.WlpInformation.AppliesToFilterInfo = []*AppliesToFilterInfo{}
	}
	return a
}

// SetShortName sets the short name and its lower-case form together.
func (w *WlpInformation) SetShortName(name string) {
	w.ShortName = name
	w.LowerCaseShortName = strings.ToLower(name)
}

// AttachmentByName returns the first attachment called name.
func (a *Asset) AttachmentByName(name string) *Attachment {
	for _, att := range a.Attachments {
		if att != nil && att.Name == name {
			return att
		}
	}
	return nil
}

// AttachmentByID returns the attachment with the given id.
func (a *Asset) AttachmentByID(id string) *Attachment {
	for _, att := range a.Attachments {
		if att != nil && att.ID == id {
			return att
		}
	}
	return nil
}
