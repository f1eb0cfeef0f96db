// Package models holds the domain records mirrored from the remote
// traffic-violation backend. Records are read/write-through views: the
// backend owns every lifecycle, the engine only caches pages of them.
package models

import (
	"math"
	"time"
)

// Page is one page of a remote collection as returned by a list endpoint.
type Page[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// TotalPagesFor computes ceil(total/limit), the invariant every fetched
// page must satisfy. A non-positive limit yields zero pages.
func TotalPagesFor(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(limit)))
}

// ReportStatus is the review lifecycle of a citizen report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "PENDING"
	ReportStatusApproved ReportStatus = "APPROVED"
	ReportStatusRejected ReportStatus = "REJECTED"
)

// AppealStatus tracks the secondary appeal sub-flow of a rejected report.
type AppealStatus string

const (
	AppealStatusNone          AppealStatus = ""
	AppealStatusPending       AppealStatus = "PENDING_APPEAL"
	AppealStatusApproved      AppealStatus = "APPROVED"
	AppealStatusRejectedFinal AppealStatus = "REJECTED_FINAL"
)

// PaymentStatus covers fines and payments alike.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// AccidentStatus is the response lifecycle of a reported accident.
type AccidentStatus string

const (
	AccidentStatusActive     AccidentStatus = "ACTIVE"
	AccidentStatusResponding AccidentStatus = "RESPONDING"
	AccidentStatusResolved   AccidentStatus = "RESOLVED"
)

// CameraStatus is the operational state of a traffic camera.
type CameraStatus string

const (
	CameraStatusActive      CameraStatus = "ACTIVE"
	CameraStatusOffline     CameraStatus = "OFFLINE"
	CameraStatusMaintenance CameraStatus = "MAINTENANCE"
)

// Location is a captured coordinate pair with an optional reverse-geocoded
// address. The address is best effort and may be empty.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

// Report is a citizen-submitted violation report.
type Report struct {
	ID              string       `json:"id"`
	CitizenID       string       `json:"citizen_id"`
	VehiclePlate    string       `json:"vehicle_plate"`
	ViolationType   string       `json:"violation_type"`
	Description     string       `json:"description,omitempty"`
	EvidenceURLs    []string     `json:"evidence_urls"`
	Location        Location     `json:"location"`
	Status          ReportStatus `json:"status"`
	ReviewNotes     string       `json:"review_notes,omitempty"`
	ReviewedBy      string       `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time   `json:"reviewed_at,omitempty"`
	AppealSubmitted bool         `json:"appeal_submitted"`
	AppealStatus    AppealStatus `json:"appeal_status,omitempty"`
	AppealReason    string       `json:"appeal_reason,omitempty"`
	RewardAmount    float64      `json:"reward_amount,omitempty"`
	PenaltyAmount   float64      `json:"penalty_amount,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Violation is a confirmed traffic violation, filed by police or promoted
// from an approved citizen report.
type Violation struct {
	ID           string       `json:"id"`
	ReportID     string       `json:"report_id,omitempty"`
	VehiclePlate string       `json:"vehicle_plate"`
	TypeCode     string       `json:"type_code"`
	StationID    string       `json:"station_id,omitempty"`
	FineAmount   float64      `json:"fine_amount"`
	Status       ReportStatus `json:"status"`
	Location     Location     `json:"location"`
	IssuedAt     *time.Time   `json:"issued_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Fine is the monetary penalty attached to a violation.
type Fine struct {
	ID          string        `json:"id"`
	ViolationID string        `json:"violation_id"`
	CitizenID   string        `json:"citizen_id"`
	Amount      float64       `json:"amount"`
	Status      PaymentStatus `json:"status"`
	IssuedAt    time.Time     `json:"issued_at"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Payment is a settlement attempt against a fine, executed by the remote
// payment gateway.
type Payment struct {
	ID             string        `json:"id"`
	FineID         string        `json:"fine_id"`
	Amount         float64       `json:"amount"`
	Method         string        `json:"method"`
	Status         PaymentStatus `json:"status"`
	TransactionRef string        `json:"transaction_ref,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Notification is a user-facing message; Read is the only field mutated
// locally, optimistically, and reconciled against the server response.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Accident is an active incident managed by police.
type Accident struct {
	ID          string         `json:"id"`
	Description string         `json:"description,omitempty"`
	Severity    string         `json:"severity"`
	Status      AccidentStatus `json:"status"`
	Location    Location       `json:"location"`
	ReportedBy  string         `json:"reported_by,omitempty"`
	StationID   string         `json:"station_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// PoliceStation is an administrative unit cameras and accidents reference.
type PoliceStation struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Address   string    `json:"address,omitempty"`
	Location  Location  `json:"location"`
	Phone     string    `json:"phone,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Camera is a monitored traffic camera.
type Camera struct {
	ID         string       `json:"id"`
	StationID  string       `json:"station_id,omitempty"`
	Name       string       `json:"name"`
	Status     CameraStatus `json:"status"`
	StreamURL  string       `json:"stream_url,omitempty"`
	Location   Location     `json:"location"`
	LastSeenAt *time.Time   `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// ViolationType is a catalog entry such as NO_HELMET or SPEEDING.
type ViolationType struct {
	ID       string  `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	BaseFine float64 `json:"base_fine"`
	Points   int     `json:"points"`
}

// StatsSummary is the aggregate dashboard view computed server-side.
type StatsSummary struct {
	ReportCounts   map[string]int `json:"report_counts"`
	FineCounts     map[string]int `json:"fine_counts"`
	AccidentCounts map[string]int `json:"accident_counts"`
	TotalFined     float64        `json:"total_fined"`
	TotalCollected float64        `json:"total_collected"`
	ActiveCameras  int            `json:"active_cameras"`
	GeneratedAt    time.Time      `json:"generated_at"`
}
