package model

import (
	"fmt"
	"slices"
	"strings"

	"assetrepo/internal/jsonbind"
)

// enumTable lists the variants of one string-backed enum and, where the JSON
// form differs from the variant name, the wire value of each variant.
type enumTable[E ~string] struct {
	name     string
	variants []E
	wire     map[E]string
}

func (t enumTable[E]) value(e E) string {
	if w, ok := t.wire[e]; ok {
		return w
	}
	return string(e)
}

// parse accepts a variant name in any case or an exact wire value.
func (t enumTable[E]) parse(s string) (E, bool) {
	upper := E(strings.ToUpper(s))
	if slices.Contains(t.variants, upper) {
		return upper, true
	}
	for e, w := range t.wire {
		if w == s {
			return e, true
		}
	}
	return "", false
}

func (t enumTable[E]) mustParse(s string) (E, error) {
	e, ok := t.parse(s)
	if !ok {
		return "", fmt.Errorf("unknown %s %q", t.name, s)
	}
	return e, nil
}

func (t enumTable[E]) enum() jsonbind.EnumDef {
	variants := make([]string, len(t.variants))
	for i, v := range t.variants {
		variants[i] = string(v)
	}
	e := jsonbind.EnumDef{Name: t.name, Variants: variants}
	if len(t.wire) > 0 {
		e.Wire = func(v string) string { return t.value(E(v)) }
		e.Parse = func(s string) (string, bool) {
			v, ok := t.parse(s)
			return string(v), ok
		}
	}
	return e
}

// ResourceType is the kind of repository item.
type ResourceType string

const (
	ResourceTypeFeature       ResourceType = "FEATURE"
	ResourceTypeAddon         ResourceType = "ADDON"
	ResourceTypeProductSample ResourceType = "PRODUCTSAMPLE"
	ResourceTypeOpenSource    ResourceType = "OPENSOURCE"
	ResourceTypeInstall       ResourceType = "INSTALL"
	ResourceTypeIfix          ResourceType = "IFIX"
	ResourceTypeAdminScript   ResourceType = "ADMINSCRIPT"
	ResourceTypeConfigSnippet ResourceType = "CONFIGSNIPPET"
	ResourceTypeTool          ResourceType = "TOOL"
)

var resourceTypes = enumTable[ResourceType]{
	name: "ResourceType",
	variants: []ResourceType{
		ResourceTypeFeature, ResourceTypeAddon, ResourceTypeProductSample, ResourceTypeOpenSource,
		ResourceTypeInstall, ResourceTypeIfix, ResourceTypeAdminScript, ResourceTypeConfigSnippet,
		ResourceTypeTool,
	},
	wire: map[ResourceType]string{
		ResourceTypeFeature:       "com.ibm.websphere.Feature",
		ResourceTypeAddon:         "com.ibm.websphere.Addon",
		ResourceTypeProductSample: "com.ibm.websphere.ProductSample",
		ResourceTypeOpenSource:    "com.ibm.websphere.OpenSourceIntegration",
		ResourceTypeInstall:       "com.ibm.websphere.Install",
		ResourceTypeIfix:          "com.ibm.websphere.Ifix",
		ResourceTypeAdminScript:   "com.ibm.websphere.AdminScript",
		ResourceTypeConfigSnippet: "com.ibm.websphere.ConfigSnippet",
		ResourceTypeTool:          "com.ibm.websphere.Tool",
	},
}

// Value returns the wire form, e.g. "com.ibm.websphere.Feature".
func (t ResourceType) Value() string { return resourceTypes.value(t) }

// ParseResourceType accepts a variant name or a wire value.
func ParseResourceType(s string) (ResourceType, error) { return resourceTypes.mustParse(s) }

// ResourceTypes returns every resource type.
func ResourceTypes() []ResourceType { return slices.Clone(resourceTypes.variants) }

// State is the publication state of an asset.
type State string

const (
	StateDraft            State = "DRAFT"
	StateAwaitingApproval State = "AWAITING_APPROVAL"
	StateNeedMoreInfo     State = "NEED_MORE_INFO"
	StatePublished        State = "PUBLISHED"
)

var states = enumTable[State]{
	name:     "State",
	variants: []State{StateDraft, StateAwaitingApproval, StateNeedMoreInfo, StatePublished},
	wire: map[State]string{
		StateDraft:            "draft",
		StateAwaitingApproval: "awaiting_approval",
		StateNeedMoreInfo:     "need_more_info",
		StatePublished:        "published",
	},
}

func (s State) Value() string { return states.value(s) }

// StateAction is a transition requested of the repository.
type StateAction string

const (
	StateActionPublish      StateAction = "PUBLISH"
	StateActionApprove      StateAction = "APPROVE"
	StateActionCancel       StateAction = "CANCEL"
	StateActionNeedMoreInfo StateAction = "NEED_MORE_INFO"
	StateActionUnpublish    StateAction = "UNPUBLISH"
)

var stateActions = enumTable[StateAction]{
	name: "StateAction",
	variants: []StateAction{
		StateActionPublish, StateActionApprove, StateActionCancel, StateActionNeedMoreInfo, StateActionUnpublish,
	},
	wire: map[StateAction]string{
		StateActionPublish:      "publish",
		StateActionApprove:      "approve",
		StateActionCancel:       "cancel",
		StateActionNeedMoreInfo: "need_more_info",
		StateActionUnpublish:    "unpublish",
	},
}

func (a StateAction) Value() string { return stateActions.value(a) }

// ParseStateAction accepts "publish", "PUBLISH" and so on.
func ParseStateAction(s string) (StateAction, error) { return stateActions.mustParse(s) }

// Next returns the state an asset moves to when a is applied in state s.
func (a StateAction) Next(s State) (State, error) {
	switch {
	case a == StateActionPublish && (s == StateDraft || s == StateNeedMoreInfo || s == ""):
		return StateAwaitingApproval, nil
	case a == StateActionApprove && s == StateAwaitingApproval:
		return StatePublished, nil
	case a == StateActionCancel && s == StateAwaitingApproval:
		return StateDraft, nil
	case a == StateActionNeedMoreInfo && s == StateAwaitingApproval:
		return StateNeedMoreInfo, nil
	case a == StateActionUnpublish && s == StatePublished:
		return StateDraft, nil
	}
	return "", fmt.Errorf("action %s is not valid in state %s", a.Value(), s.Value())
}

// Visibility controls where an asset is shown.
type Visibility string

const (
	VisibilityPublic    Visibility = "PUBLIC"
	VisibilityPrivate   Visibility = "PRIVATE"
	VisibilityProtected Visibility = "PROTECTED"
	VisibilityInstall   Visibility = "INSTALL"
	VisibilityHidden    Visibility = "HIDDEN"
)

var visibilities = enumTable[Visibility]{
	name: "Visibility",
	variants: []Visibility{
		VisibilityPublic, VisibilityPrivate, VisibilityProtected, VisibilityInstall, VisibilityHidden,
	},
}

// ParseVisibility accepts a variant name in any case.
func ParseVisibility(s string) (Visibility, error) { return visibilities.mustParse(s) }

// AttachmentType classifies an attachment.
type AttachmentType string

const (
	AttachmentTypeContent            AttachmentType = "CONTENT"
	AttachmentTypeDocumentation      AttachmentType = "DOCUMENTATION"
	AttachmentTypeIllustration       AttachmentType = "ILLUSTRATION"
	AttachmentTypeThumbnail          AttachmentType = "THUMBNAIL"
	AttachmentTypeLicense            AttachmentType = "LICENSE"
	AttachmentTypeLicenseAgreement   AttachmentType = "LICENSE_AGREEMENT"
	AttachmentTypeLicenseInformation AttachmentType = "LICENSE_INFORMATION"
)

var attachmentTypes = enumTable[AttachmentType]{
	name: "AttachmentType",
	variants: []AttachmentType{
		AttachmentTypeContent, AttachmentTypeDocumentation, AttachmentTypeIllustration, AttachmentTypeThumbnail,
		AttachmentTypeLicense, AttachmentTypeLicenseAgreement, AttachmentTypeLicenseInformation,
	},
}

// ParseAttachmentType accepts a variant name in any case.
func ParseAttachmentType(s string) (AttachmentType, error) { return attachmentTypes.mustParse(s) }

// IsLicense reports whether t is one of the license types.
func (t AttachmentType) IsLicense() bool {
	return t == AttachmentTypeLicense || t == AttachmentTypeLicenseAgreement || t == AttachmentTypeLicenseInformation
}

// AttachmentLinkType says how an attachment URL is resolved.
type AttachmentLinkType string

const (
	LinkTypeDirect  AttachmentLinkType = "DIRECT"
	LinkTypeWebPage AttachmentLinkType = "WEB_PAGE"
)

var linkTypes = enumTable[AttachmentLinkType]{
	name:     "AttachmentLinkType",
	variants: []AttachmentLinkType{LinkTypeDirect, LinkTypeWebPage},
}

// LicenseType is the license an asset is offered under.
type LicenseType string

const (
	LicenseTypeIPLA        LicenseType = "IPLA"
	LicenseTypeILAN        LicenseType = "ILAN"
	LicenseTypeILAE        LicenseType = "ILAE"
	LicenseTypeILAR        LicenseType = "ILAR"
	LicenseTypeUnspecified LicenseType = "UNSPECIFIED"
)

var licenseTypes = enumTable[LicenseType]{
	name: "LicenseType",
	variants: []LicenseType{
		LicenseTypeIPLA, LicenseTypeILAN, LicenseTypeILAE, LicenseTypeILAR, LicenseTypeUnspecified,
	},
}

type DisplayPolicy string

const (
	DisplayPolicyVisible DisplayPolicy = "VISIBLE"
	DisplayPolicyHidden  DisplayPolicy = "HIDDEN"
)

var displayPolicies = enumTable[DisplayPolicy]{
	name:     "DisplayPolicy",
	variants: []DisplayPolicy{DisplayPolicyVisible, DisplayPolicyHidden},
}

type DownloadPolicy string

const (
	DownloadPolicyInstaller DownloadPolicy = "INSTALLER"
	DownloadPolicyAll       DownloadPolicy = "ALL"
)

var downloadPolicies = enumTable[DownloadPolicy]{
	name:     "DownloadPolicy",
	variants: []DownloadPolicy{DownloadPolicyInstaller, DownloadPolicyAll},
}
