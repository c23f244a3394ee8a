package models

import "time"

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// AdminRequest: заявка на получение прав администратора.
type AdminRequest struct {
	ID           int           `json:"id" db:"id"`
	Name         string        `json:"name" db:"name"`
	Email        string        `json:"email" db:"email"`
	University   *string       `json:"university,omitempty" db:"university"`
	PasswordHash string        `json:"-" db:"password_hash"`
	Status       RequestStatus `json:"status" db:"status"`
	Reason       *string       `json:"reason,omitempty" db:"reason"`
	ReviewedBy   *int          `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt   *time.Time    `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
}

// UniversityRequest: заявка университета на участие в играх.
type UniversityRequest struct {
	ID             int           `json:"id" db:"id"`
	UniversityName string        `json:"university_name" db:"university_name"`
	Zone           Zone          `json:"zone" db:"zone"`
	ContactName    string        `json:"contact_name" db:"contact_name"`
	ContactEmail   string        `json:"contact_email" db:"contact_email"`
	ContactPhone   *string       `json:"contact_phone,omitempty" db:"contact_phone"`
	Sports         []string      `json:"sports" db:"sports"`
	Status         RequestStatus `json:"status" db:"status"`
	Reason         *string       `json:"reason,omitempty" db:"reason"`
	ReviewedBy     *int          `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ReviewedAt     *time.Time    `json:"reviewed_at,omitempty" db:"reviewed_at"`
	UniversityID   *int          `json:"university_id,omitempty" db:"university_id"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// Review carries the decision applied to a pending request.
type Review struct {
	Status     RequestStatus
	ReviewerID int
	Reason     *string
	At         time.Time
}
