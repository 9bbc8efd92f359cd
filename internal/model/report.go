package model

import "time"

// RevenueReport is a partner-submitted earnings statement awaiting approval.
type RevenueReport struct {
	ID          string       `json:"id"`
	ArtistID    string       `json:"artistId"`
	LabelID     string       `json:"labelId,omitempty"`
	Period      string       `json:"period"`
	Amount      float64      `json:"amount"`
	Currency    string       `json:"currency"`
	Status      ReportStatus `json:"status"`
	Reason      string       `json:"reason,omitempty"`
	SubmittedBy string       `json:"submittedBy"`
	ReviewedBy  string       `json:"reviewedBy,omitempty"`
	Version     int64        `json:"version"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Clone returns a copy of the report.
func (r *RevenueReport) Clone() *RevenueReport {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

// SubmitReportRequest represents a new revenue report
type SubmitReportRequest struct {
	ArtistID string  `json:"artistId" validate:"required"`
	LabelID  string  `json:"labelId"`
	Period   string  `json:"period" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Currency string  `json:"currency" validate:"required,len=3"`
}

// ApproveReportRequest represents a report approval
type ApproveReportRequest struct {
	ExpectedVersion int64 `json:"expectedVersion" validate:"omitempty,min=1"`
}

// RejectReportRequest represents a report rejection
type RejectReportRequest struct {
	Reason          string `json:"reason" validate:"required"`
	ExpectedVersion int64  `json:"expectedVersion" validate:"omitempty,min=1"`
}

// ReportListResponse wraps a report listing
type ReportListResponse struct {
	Reports []*RevenueReport `json:"reports"`
}
