package model

// CreateReleaseRequest represents a new draft release
type CreateReleaseRequest struct {
	ProjectName         string   `json:"projectName" validate:"required,max=200"`
	Artist              string   `json:"artist" validate:"required,max=200"`
	ArtistID            string   `json:"artistId" validate:"omitempty"`
	ReleaseType         string   `json:"releaseType" validate:"omitempty,max=50"`
	Genre               string   `json:"genre" validate:"omitempty,max=100"`
	ExpectedReleaseDate string   `json:"expectedReleaseDate" validate:"omitempty,datetime=2006-01-02"`
	TrackListing        []Track  `json:"trackListing" validate:"omitempty"`
	Credits             []Credit `json:"credits" validate:"omitempty"`
}

// ISRCUpdate corrects the ISRC of one track position
type ISRCUpdate struct {
	TrackIndex int    `json:"trackIndex" validate:"min=0"`
	ISRC       string `json:"isrc" validate:"required"`
}

// UpdateReleaseRequest represents direct field edits. Nil fields are left
// untouched.
type UpdateReleaseRequest struct {
	ProjectName         *string      `json:"projectName,omitempty"`
	Artist              *string      `json:"artist,omitempty"`
	ReleaseType         *string      `json:"releaseType,omitempty"`
	Genre               *string      `json:"genre,omitempty"`
	ExpectedReleaseDate *string      `json:"expectedReleaseDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	TrackListing        []Track      `json:"trackListing,omitempty"`
	Credits             []Credit     `json:"credits,omitempty"`
	ISRCUpdates         []ISRCUpdate `json:"isrcUpdates,omitempty" validate:"omitempty,dive"`
	Feedback            *string      `json:"feedback,omitempty"`
	ExpectedVersion     int64        `json:"expectedVersion" validate:"omitempty,min=1"`
}

// TransitionRequest asks for a status change
type TransitionRequest struct {
	To              ReleaseStatus `json:"to" validate:"required"`
	Note            string        `json:"note" validate:"max=1000"`
	ExpectedVersion int64         `json:"expectedVersion" validate:"omitempty,min=1"`
}

// ProposeAmendmentRequest carries a partner's revision of a release
type ProposeAmendmentRequest struct {
	TrackListing    []Track  `json:"trackListing" validate:"required,min=1"`
	Credits         []Credit `json:"credits" validate:"omitempty"`
	Feedback        string   `json:"feedback" validate:"max=2000"`
	ExpectedVersion int64    `json:"expectedVersion" validate:"omitempty,min=1"`
}

// ResolveAmendmentRequest carries the artist's decision on an amendment
type ResolveAmendmentRequest struct {
	Decision        Decision `json:"decision" validate:"required,oneof=accept reject edit"`
	TrackListing    []Track  `json:"trackListing" validate:"omitempty"`
	Credits         []Credit `json:"credits" validate:"omitempty"`
	ExpectedVersion int64    `json:"expectedVersion" validate:"omitempty,min=1"`
}

// ReleaseListResponse wraps a release listing
type ReleaseListResponse struct {
	Releases []*Release `json:"releases"`
}

// ReleaseDetailResponse is a release with the transitions open to the caller
type ReleaseDetailResponse struct {
	*Release
	AllowedTransitions []ReleaseStatus `json:"allowedTransitions"`
}

// FieldDelta is one row of the amendment diff table.
type FieldDelta struct {
	TrackIndex    int        `json:"trackIndex"`
	Field         TrackField `json:"field"`
	OriginalValue string     `json:"originalValue"`
	ProposedValue string     `json:"proposedValue"`
	Changed       bool       `json:"changed"`
}

// AmendmentResponse is the diff view shown while approval is required
type AmendmentResponse struct {
	ReleaseID       string        `json:"releaseId"`
	Version         int64         `json:"version"`
	ReturnStatus    ReleaseStatus `json:"returnStatus"`
	ProposedBy      Role          `json:"proposedBy"`
	Feedback        string        `json:"feedback,omitempty"`
	Deltas          []FieldDelta  `json:"deltas"`
	Changes         []FieldDelta  `json:"changes"`
	CreditsChanged  bool          `json:"creditsChanged"`
	OriginalData    Snapshot      `json:"originalData"`
	ProposedChanges Snapshot      `json:"proposedChanges"`
}
