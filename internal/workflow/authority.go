package workflow

import "github.com/mscandco/distribution-api/internal/model"

type authorityKey struct {
	role   model.Role
	status model.ReleaseStatus
}

type permission struct {
	transitions []model.ReleaseStatus
	fields      []model.Field
}

var artistFields = []model.Field{
	model.FieldProjectName,
	model.FieldArtist,
	model.FieldReleaseType,
	model.FieldGenre,
	model.FieldExpectedReleaseDate,
	model.FieldTrackListing,
	model.FieldCredits,
}

var partnerFields = []model.Field{model.FieldISRC, model.FieldFeedback}

// authority is the single (role, status) permission table. A missing key
// means the role may read the release in that status but not change it.
var authority = map[authorityKey]permission{
	{model.RoleArtist, model.StatusDraft}: {
		transitions: []model.ReleaseStatus{model.StatusSubmitted},
		fields:      artistFields,
	},
	{model.RoleArtist, model.StatusSubmitted}: {
		transitions: []model.ReleaseStatus{model.StatusDraft},
		fields:      artistFields,
	},
	{model.RoleArtist, model.StatusApprovalRequired}: {
		transitions: []model.ReleaseStatus{model.StatusUnderReview, model.StatusCompleted, model.StatusLive},
	},

	{model.RoleLabelAdmin, model.StatusDraft}: {
		transitions: []model.ReleaseStatus{model.StatusSubmitted},
		fields:      artistFields,
	},
	{model.RoleLabelAdmin, model.StatusSubmitted}: {
		fields: artistFields,
	},

	{model.RoleDistributionPartner, model.StatusSubmitted}: {
		transitions: []model.ReleaseStatus{model.StatusUnderReview},
		fields:      []model.Field{model.FieldISRC},
	},
	{model.RoleDistributionPartner, model.StatusUnderReview}: {
		transitions: []model.ReleaseStatus{model.StatusCompleted, model.StatusApprovalRequired},
		fields:      partnerFields,
	},
	{model.RoleDistributionPartner, model.StatusCompleted}: {
		transitions: []model.ReleaseStatus{model.StatusLive, model.StatusApprovalRequired},
		fields:      partnerFields,
	},
	{model.RoleDistributionPartner, model.StatusLive}: {
		transitions: []model.ReleaseStatus{model.StatusApprovalRequired},
		fields:      partnerFields,
	},
}

// CanTransition reports whether role may initiate from -> to.
func CanTransition(role model.Role, from, to model.ReleaseStatus) bool {
	p, ok := authority[authorityKey{role, from}]
	if !ok {
		return false
	}
	for _, s := range p.transitions {
		if s == to {
			return true
		}
	}
	return false
}

// CanEditField reports whether role may mutate field directly while the
// release is in status.
func CanEditField(role model.Role, status model.ReleaseStatus, field model.Field) bool {
	p, ok := authority[authorityKey{role, status}]
	if !ok {
		return false
	}
	for _, f := range p.fields {
		if f == field {
			return true
		}
	}
	return false
}

// CanEnter reports whether role may move a release into to from any status.
func CanEnter(role model.Role, to model.ReleaseStatus) bool {
	for _, from := range model.ValidReleaseStatuses {
		if CanTransition(role, from, to) {
			return true
		}
	}
	return false
}

// CanCreate reports whether role may open a new draft.
func CanCreate(role model.Role) bool {
	return CanTransition(role, model.StatusDraft, model.StatusSubmitted)
}
