package workflow

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

type submissionTrack struct {
	Title    string `json:"title" validate:"required"`
	Duration string `json:"duration" validate:"required"`
	ISRC     string `json:"isrc" validate:"required"`
}

type submissionCredit struct {
	Role string `json:"role" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// Field order here is the order violations are reported in.
type submission struct {
	ProjectName  string             `json:"projectName" validate:"required"`
	Artist       string             `json:"artist" validate:"required"`
	ReleaseType  string             `json:"releaseType" validate:"required"`
	Genre        string             `json:"genre" validate:"required"`
	TrackListing []submissionTrack  `json:"trackListing" validate:"min=1,dive"`
	Credits      []submissionCredit `json:"credits" validate:"min=1,dive"`
}

type trackSet struct {
	TrackListing []submissionTrack `json:"trackListing" validate:"min=1,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationResult lists every violated field found in one pass.
type ValidationResult struct {
	Violations []apperr.Violation
}

// Valid reports whether no violation was found.
func (v ValidationResult) Valid() bool {
	return len(v.Violations) == 0
}

// Err returns an IncompleteSubmission error, or nil when valid.
func (v ValidationResult) Err() error {
	if v.Valid() {
		return nil
	}
	return apperr.IncompleteSubmission(v.Violations)
}

// ValidateForSubmission checks a release's completeness for draft -> submitted.
func ValidateForSubmission(r *model.Release) ValidationResult {
	s := submission{
		ProjectName:  r.ProjectName,
		Artist:       r.Artist,
		ReleaseType:  r.ReleaseType,
		Genre:        r.Genre,
		TrackListing: toSubmissionTracks(r.TrackListing),
		Credits:      make([]submissionCredit, 0, len(r.Credits)),
	}
	for _, c := range r.Credits {
		s.Credits = append(s.Credits, submissionCredit{Role: c.Role, Name: c.Name})
	}
	return run(s)
}

// ValidateTracks checks the track listing invariant that holds from
// submitted onward: non-empty, and every track has title, duration and isrc.
func ValidateTracks(tracks []model.Track) ValidationResult {
	return run(trackSet{TrackListing: toSubmissionTracks(tracks)})
}

func toSubmissionTracks(tracks []model.Track) []submissionTrack {
	out := make([]submissionTrack, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, submissionTrack{Title: t.Title, Duration: t.Duration, ISRC: t.ISRC})
	}
	return out
}

func run(s any) ValidationResult {
	err := validate.Struct(s)
	if err == nil {
		return ValidationResult{}
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ValidationResult{Violations: []apperr.Violation{{Field: "release", Reason: err.Error()}}}
	}
	out := make([]apperr.Violation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.Violation{
			Field:  fieldPath(fe.Namespace()),
			Reason: reason(fe.Tag()),
		})
	}
	return ValidationResult{Violations: out}
}

// fieldPath drops the root struct name: "submission.trackListing[0].title"
// becomes "trackListing[0].title".
func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func reason(tag string) string {
	switch tag {
	case "required":
		return "must not be empty"
	case "min":
		return "must contain at least one entry"
	}
	return tag
}
