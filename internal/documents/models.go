package documents

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrAlreadyProcessed = errors.New("document already processed")
	ErrReasonRequired   = errors.New("rejection reason is required")
	ErrNotDeletable     = errors.New("document cannot be deleted")
	ErrTagNotInTenant   = errors.New("tag does not belong to this tenant")
	ErrStorageFailure   = errors.New("blob storage request failed")
)

// Status is the review state of a document. PENDING is initial; APPROVED and
// REJECTED are terminal and reached by exactly one transition.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Document represents an uploaded document awaiting or past review.
type Document struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	TenantID          uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Title             string     `db:"title" json:"title"`
	FileName          string     `db:"file_name" json:"file_name"`
	ContentType       string     `db:"content_type" json:"content_type"`
	SizeBytes         int64      `db:"size_bytes" json:"size_bytes"`
	StorageKey        string     `db:"storage_key" json:"-"`
	Status            Status     `db:"status" json:"status"`
	SubmittedByUserID uuid.UUID  `db:"submitted_by_user_id" json:"submitted_by_user_id"`
	ApprovedByUserID  *uuid.UUID `db:"approved_by_user_id" json:"approved_by_user_id,omitempty"`
	ApprovedAt        *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	RejectedByUserID  *uuid.UUID `db:"rejected_by_user_id" json:"rejected_by_user_id,omitempty"`
	RejectedAt        *time.Time `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason   *string    `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// ListItem is the JSON shape of a document in list responses.
type ListItem struct {
	ID               uuid.UUID `db:"id" json:"id"`
	Title            string    `db:"title" json:"title"`
	FileName         string    `db:"file_name" json:"file_name"`
	ContentType      string    `db:"content_type" json:"content_type"`
	SizeBytes        int64     `db:"size_bytes" json:"size_bytes"`
	Status           Status    `db:"status" json:"status"`
	SubmittedByEmail string    `db:"submitted_by_email" json:"submitted_by_email"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// TagInfo is a tag attached to a document.
type TagInfo struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// Filter narrows document listings. Zero values mean no restriction.
type Filter struct {
	Query  string
	Status Status
}
