package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/mscandco/distribution-api/internal/apperr"
	"github.com/mscandco/distribution-api/internal/model"
)

// CanSubmitReports reports whether role may file revenue reports.
func CanSubmitReports(role model.Role) bool {
	switch role {
	case model.RoleDistributionPartner, model.RoleCompanyAdmin, model.RoleSuperAdmin:
		return true
	}
	return false
}

// CanReviewReports reports whether role may approve or reject reports.
func CanReviewReports(role model.Role) bool {
	return role == model.RoleCompanyAdmin || role == model.RoleSuperAdmin
}

// ReviewReport resolves a pending revenue report. Repeating the decision the
// report already carries is a no-op success and reports changed == false.
func ReviewReport(r *model.RevenueReport, actor model.Actor, decision model.ReviewDecision, reason string, now time.Time) (*model.RevenueReport, bool, error) {
	var target model.ReportStatus
	switch decision {
	case model.ReviewApprove:
		target = model.ReportStatusApproved
	case model.ReviewReject:
		target = model.ReportStatusRejected
	default:
		return nil, false, apperr.InvalidRequest("unknown report decision %q", decision)
	}

	if !CanReviewReports(actor.Role) {
		return nil, false, apperr.Forbidden(string(actor.Role), fmt.Sprintf("%s revenue reports", decision))
	}
	changed, err := pendingReview(r.Status, target, model.ReportStatusPending, "report")
	if err != nil {
		return nil, false, err
	}
	if !changed {
		return r.Clone(), false, nil
	}

	reason = strings.TrimSpace(reason)
	if target == model.ReportStatusRejected && reason == "" {
		return nil, false, apperr.InvalidRequest("a rejection reason is required")
	}

	next := r.Clone()
	next.Status = target
	next.Reason = reason
	next.ReviewedBy = actor.UserID
	next.UpdatedAt = now
	return next, true, nil
}

// pendingReview checks a review moving an item out of pending. Repeating
// the decision the item already carries reports changed == false.
func pendingReview[S ~string](current, target, pending S, entity string) (bool, error) {
	if current == target {
		return false, nil
	}
	if current != pending {
		return false, apperr.InvalidTransition(string(current), string(target), entity+" already reviewed")
	}
	return true, nil
}
