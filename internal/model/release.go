package model

import "time"

// Track is one position on a release's track listing.
type Track struct {
	Title    string `json:"title" validate:"required"`
	Duration string `json:"duration" validate:"required"`
	ISRC     string `json:"isrc" validate:"required"`
	BPM      string `json:"bpm,omitempty"`
	SongKey  string `json:"songKey,omitempty"`
	Explicit bool   `json:"explicit,omitempty"`
}

// Value returns the string value of a diffable field.
func (t Track) Value(field TrackField) string {
	switch field {
	case TrackFieldTitle:
		return t.Title
	case TrackFieldDuration:
		return t.Duration
	case TrackFieldISRC:
		return t.ISRC
	case TrackFieldBPM:
		return t.BPM
	case TrackFieldSongKey:
		return t.SongKey
	}
	return ""
}

// Credit attributes a contributor to the release.
type Credit struct {
	Role string `json:"role" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// Snapshot holds the amendable part of a release.
type Snapshot struct {
	TrackListing []Track  `json:"trackListing"`
	Credits      []Credit `json:"credits"`
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		TrackListing: cloneTracks(s.TrackListing),
		Credits:      cloneCredits(s.Credits),
	}
}

// TransitionRecord is one entry of a release's status history.
type TransitionRecord struct {
	From   ReleaseStatus `json:"from"`
	To     ReleaseStatus `json:"to"`
	Role   Role          `json:"role"`
	UserID string        `json:"userId"`
	Note   string        `json:"note,omitempty"`
	At     time.Time     `json:"at"`
}

// Release is the system of record the workflow operates on.
type Release struct {
	ID                  string             `json:"id"`
	Status              ReleaseStatus      `json:"status"`
	ArtistID            string             `json:"artistId"`
	LabelID             string             `json:"labelId,omitempty"`
	ProjectName         string             `json:"projectName"`
	Artist              string             `json:"artist"`
	ReleaseType         string             `json:"releaseType"`
	Genre               string             `json:"genre"`
	ExpectedReleaseDate string             `json:"expectedReleaseDate"`
	TrackListing        []Track            `json:"trackListing"`
	Credits             []Credit           `json:"credits"`
	OriginalData        *Snapshot          `json:"originalData,omitempty"`
	ProposedChanges     *Snapshot          `json:"proposedChanges,omitempty"`
	ProposedBy          Role               `json:"proposedBy,omitempty"`
	Feedback            string             `json:"feedback,omitempty"`
	History             []TransitionRecord `json:"history,omitempty"`
	Version             int64              `json:"version"`
	CreatedAt           time.Time          `json:"createdAt"`
	UpdatedAt           time.Time          `json:"updatedAt"`
	SubmittedAt         *time.Time         `json:"submittedAt,omitempty"`
}

// Snapshot captures the current amendable fields as an independent copy.
func (r *Release) Snapshot() Snapshot {
	return Snapshot{
		TrackListing: cloneTracks(r.TrackListing),
		Credits:      cloneCredits(r.Credits),
	}
}

// Apply installs a snapshot's fields into the release.
func (r *Release) Apply(s Snapshot) {
	c := s.Clone()
	r.TrackListing = c.TrackListing
	r.Credits = c.Credits
}

// HasPendingAmendment reports whether either amendment snapshot is set.
func (r *Release) HasPendingAmendment() bool {
	return r.OriginalData != nil || r.ProposedChanges != nil
}

// AmendedFrom returns the status held before the pending amendment, taken
// from the latest history record entering approval_required.
func (r *Release) AmendedFrom() (ReleaseStatus, bool) {
	for i := len(r.History) - 1; i >= 0; i-- {
		rec := r.History[i]
		if rec.To == StatusApprovalRequired && rec.From != StatusApprovalRequired {
			return rec.From, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the release.
func (r *Release) Clone() *Release {
	if r == nil {
		return nil
	}
	cp := *r
	cp.TrackListing = cloneTracks(r.TrackListing)
	cp.Credits = cloneCredits(r.Credits)
	if r.OriginalData != nil {
		s := r.OriginalData.Clone()
		cp.OriginalData = &s
	}
	if r.ProposedChanges != nil {
		s := r.ProposedChanges.Clone()
		cp.ProposedChanges = &s
	}
	if r.History != nil {
		cp.History = make([]TransitionRecord, len(r.History))
		copy(cp.History, r.History)
	}
	if r.SubmittedAt != nil {
		t := *r.SubmittedAt
		cp.SubmittedAt = &t
	}
	return &cp
}

func cloneTracks(in []Track) []Track {
	if in == nil {
		return nil
	}
	out := make([]Track, len(in))
	copy(out, in)
	return out
}

func cloneCredits(in []Credit) []Credit {
	if in == nil {
		return nil
	}
	out := make([]Credit, len(in))
	copy(out, in)
	return out
}
