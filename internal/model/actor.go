package model

// Actor identifies the caller of every core operation. It is built from the
// authenticated session, never from request payloads.
type Actor struct {
	Role       Role   `json:"role"`
	UserID     string `json:"userId"`
	LabelScope string `json:"labelScope,omitempty"`
}

// SeesAll reports whether the role reads every release regardless of owner.
func (a Actor) SeesAll() bool {
	switch a.Role {
	case RoleDistributionPartner, RoleCompanyAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// CanAccessRelease reports whether the release is within the actor's scope.
func (a Actor) CanAccessRelease(r *Release) bool {
	if r == nil {
		return false
	}
	switch a.Role {
	case RoleArtist:
		return r.ArtistID == a.UserID
	case RoleLabelAdmin:
		return a.LabelScope != "" && r.LabelID == a.LabelScope
	}
	return a.SeesAll()
}

// CanAccessReport reports whether the report is within the actor's scope.
func (a Actor) CanAccessReport(r *RevenueReport) bool {
	if r == nil {
		return false
	}
	switch a.Role {
	case RoleArtist:
		return r.ArtistID == a.UserID
	case RoleLabelAdmin:
		return a.LabelScope != "" && r.LabelID == a.LabelScope
	}
	return a.SeesAll()
}
