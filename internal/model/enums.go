package model

import "strings"

// Release status
type ReleaseStatus string

const (
	StatusDraft            ReleaseStatus = "draft"
	StatusSubmitted        ReleaseStatus = "submitted"
	StatusUnderReview      ReleaseStatus = "under_review"
	StatusApprovalRequired ReleaseStatus = "approval_required"
	StatusCompleted        ReleaseStatus = "completed"
	StatusLive             ReleaseStatus = "live"
)

var ValidReleaseStatuses = []ReleaseStatus{
	StatusDraft, StatusSubmitted, StatusUnderReview,
	StatusApprovalRequired, StatusCompleted, StatusLive,
}

// ParseReleaseStatus converts a string into a known status.
func ParseReleaseStatus(value string) (ReleaseStatus, bool) {
	normalized := ReleaseStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range ValidReleaseStatuses {
		if s == normalized {
			return s, true
		}
	}
	return "", false
}

// ArtistOwned reports whether the artist still controls the release.
func (s ReleaseStatus) ArtistOwned() bool {
	return s == StatusDraft || s == StatusSubmitted
}

// Locked reports whether the release has left the artist's hands and is not
// mid-amendment. Change requests are only accepted in these statuses.
func (s ReleaseStatus) Locked() bool {
	switch s {
	case StatusUnderReview, StatusCompleted, StatusLive:
		return true
	}
	return false
}

// Actor roles
type Role string

const (
	RoleArtist              Role = "artist"
	RoleLabelAdmin          Role = "label_admin"
	RoleDistributionPartner Role = "distribution_partner"
	RoleCompanyAdmin        Role = "company_admin"
	RoleSuperAdmin          Role = "super_admin"
)

var ValidRoles = []Role{
	RoleArtist, RoleLabelAdmin, RoleDistributionPartner,
	RoleCompanyAdmin, RoleSuperAdmin,
}

// ParseRole converts a claim or header value into a known role.
func ParseRole(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	for _, r := range ValidRoles {
		if r == normalized {
			return r, true
		}
	}
	return "", false
}

// Amendment decisions
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
	DecisionEdit   Decision = "edit"
)

// Editable release fields
type Field string

const (
	FieldProjectName         Field = "projectName"
	FieldArtist              Field = "artist"
	FieldReleaseType         Field = "releaseType"
	FieldGenre               Field = "genre"
	FieldExpectedReleaseDate Field = "expectedReleaseDate"
	FieldTrackListing        Field = "trackListing"
	FieldCredits             Field = "credits"
	FieldISRC                Field = "isrc"
	FieldFeedback            Field = "feedback"
)

// Track fields compared by the amendment diff, in display order.
type TrackField string

const (
	TrackFieldTitle    TrackField = "title"
	TrackFieldDuration TrackField = "duration"
	TrackFieldISRC     TrackField = "isrc"
	TrackFieldBPM      TrackField = "bpm"
	TrackFieldSongKey  TrackField = "songKey"
)

var DiffTrackFields = []TrackField{
	TrackFieldTitle, TrackFieldDuration, TrackFieldISRC, TrackFieldBPM, TrackFieldSongKey,
}

// Revenue report status
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusApproved ReportStatus = "approved"
	ReportStatusRejected ReportStatus = "rejected"
)

// Review decisions for revenue reports and change requests
type ReviewDecision string

const (
	ReviewApprove ReviewDecision = "approve"
	ReviewReject  ReviewDecision = "reject"
)
