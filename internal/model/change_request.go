package model

import (
	"strconv"
	"strings"
	"time"
)

// Change request status
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "pending"
	ChangeRequestApproved ChangeRequestStatus = "approved"
	ChangeRequestRejected ChangeRequestStatus = "rejected"
)

// ParseChangeRequestStatus converts a query value into a known status.
func ParseChangeRequestStatus(value string) (ChangeRequestStatus, bool) {
	switch s := ChangeRequestStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case ChangeRequestPending, ChangeRequestApproved, ChangeRequestRejected:
		return s, true
	}
	return "", false
}

// ChangeRequest asks the reviewers to change one field of a release the
// requester can no longer edit directly.
type ChangeRequest struct {
	ID             string              `json:"id"`
	ReleaseID      string              `json:"releaseId"`
	ArtistID       string              `json:"artistId"`
	LabelID        string              `json:"labelId,omitempty"`
	Field          Field               `json:"field"`
	TrackIndex     *int                `json:"trackIndex,omitempty"`
	CurrentValue   string              `json:"currentValue"`
	RequestedValue string              `json:"requestedValue"`
	Reason         string              `json:"reason"`
	Urgency        int                 `json:"urgency"`
	ReleaseStatus  ReleaseStatus       `json:"releaseStatus"`
	Status         ChangeRequestStatus `json:"status"`
	RequestedBy    string              `json:"requestedBy"`
	RequesterRole  Role                `json:"requesterRole"`
	ReviewedBy     string              `json:"reviewedBy,omitempty"`
	ReviewNotes    string              `json:"reviewNotes,omitempty"`
	ReviewedAt     *time.Time          `json:"reviewedAt,omitempty"`
	Version        int64               `json:"version"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

// Clone returns a copy of the change request.
func (c *ChangeRequest) Clone() *ChangeRequest {
	if c == nil {
		return nil
	}
	cp := *c
	if c.TrackIndex != nil {
		i := *c.TrackIndex
		cp.TrackIndex = &i
	}
	if c.ReviewedAt != nil {
		t := *c.ReviewedAt
		cp.ReviewedAt = &t
	}
	return &cp
}

// FieldValue renders the release's current value of field. Track fields
// need a track index. ok is false for fields without a single value.
func (r *Release) FieldValue(field Field, trackIndex *int) (string, bool) {
	switch field {
	case FieldProjectName:
		return r.ProjectName, true
	case FieldArtist:
		return r.Artist, true
	case FieldReleaseType:
		return r.ReleaseType, true
	case FieldGenre:
		return r.Genre, true
	case FieldExpectedReleaseDate:
		return r.ExpectedReleaseDate, true
	case FieldISRC:
		if trackIndex == nil || *trackIndex < 0 || *trackIndex >= len(r.TrackListing) {
			return "", false
		}
		return r.TrackListing[*trackIndex].ISRC, true
	}
	return "", false
}

// ChangeRequestFields lists the fields a change request may target.
var ChangeRequestFields = []Field{
	FieldProjectName, FieldArtist, FieldReleaseType, FieldGenre,
	FieldExpectedReleaseDate, FieldTrackListing, FieldCredits, FieldISRC,
}

// CreateChangeRequest asks for a change to a locked release
type CreateChangeRequest struct {
	Field           Field  `json:"field" validate:"required"`
	TrackIndex      *int   `json:"trackIndex" validate:"omitempty,min=0"`
	CurrentValue    string `json:"currentValue" validate:"max=2000"`
	RequestedValue  string `json:"requestedValue" validate:"required,max=2000"`
	Reason          string `json:"reason" validate:"required,max=2000"`
	Urgency         int    `json:"urgency" validate:"omitempty,min=1,max=5"`
	ExpectedVersion int64  `json:"expectedVersion" validate:"omitempty,min=1"`
}

// ReviewChangeRequest carries a reviewer's decision on a change request
type ReviewChangeRequest struct {
	Notes           string `json:"notes" validate:"max=2000"`
	ExpectedVersion int64  `json:"expectedVersion" validate:"omitempty,min=1"`
}

// ChangeRequestListResponse wraps a change request listing
type ChangeRequestListResponse struct {
	ChangeRequests []*ChangeRequest `json:"changeRequests"`
}

// Target names the requested field, with its track position when set.
func (c *ChangeRequest) Target() string {
	if c.TrackIndex == nil {
		return string(c.Field)
	}
	return "trackListing[" + strconv.Itoa(*c.TrackIndex) + "]." + string(c.Field)
}
