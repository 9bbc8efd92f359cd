package model

import "time"

// Event kinds
const (
	EventReleaseCreated      = "release.created"
	EventReleaseUpdated      = "release.updated"
	EventReleaseTransitioned = "release.transitioned"
	EventAmendmentProposed   = "release.amendment_proposed"
	EventAmendmentResolved   = "release.amendment_resolved"
	EventChangeRequested     = "release.change_requested"
	EventChangeReviewed      = "release.change_reviewed"
	EventReportSubmitted     = "report.submitted"
	EventReportReviewed      = "report.reviewed"
)

// ReleaseEvent is emitted after a release mutation has been saved
type ReleaseEvent struct {
	Kind      string        `json:"kind"`
	ReleaseID string        `json:"releaseId"`
	ArtistID  string        `json:"artistId"`
	LabelID   string        `json:"labelId,omitempty"`
	From      ReleaseStatus `json:"from"`
	To        ReleaseStatus `json:"to"`
	Decision  Decision      `json:"decision,omitempty"`
	Role      Role          `json:"role"`
	UserID    string        `json:"userId"`
	Version   int64         `json:"version"`
	At        time.Time     `json:"at"`

	// Set on change request events
	ChangeRequestID string              `json:"changeRequestId,omitempty"`
	ChangeStatus    ChangeRequestStatus `json:"changeStatus,omitempty"`
}

// ReportEvent is emitted after a revenue report mutation has been saved
type ReportEvent struct {
	Kind     string       `json:"kind"`
	ReportID string       `json:"reportId"`
	ArtistID string       `json:"artistId"`
	Status   ReportStatus `json:"status"`
	Reason   string       `json:"reason,omitempty"`
	UserID   string       `json:"userId"`
	Version  int64        `json:"version"`
	At       time.Time    `json:"at"`
}

// ReleaseManifest is the export document written when a release goes live
type ReleaseManifest struct {
	ReleaseID           string    `json:"releaseId"`
	Version             int64     `json:"version"`
	ProjectName         string    `json:"projectName"`
	Artist              string    `json:"artist"`
	ReleaseType         string    `json:"releaseType"`
	Genre               string    `json:"genre"`
	ExpectedReleaseDate string    `json:"expectedReleaseDate"`
	TrackListing        []Track   `json:"trackListing"`
	Credits             []Credit  `json:"credits"`
	ExportedAt          time.Time `json:"exportedAt"`
}
