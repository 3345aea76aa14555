// Package model defines the core domain types for the run sign-up system.
package model

import (
	"fmt"
	"time"
)

// Run represents a scheduled group run with a participant limit.
type Run struct {
	ID           string     `json:"id"`
	Date         Date       `json:"date"`
	Time         Clock      `json:"time"`
	MeetingPlace string     `json:"meeting_place"`
	Venue        string     `json:"venue"`
	LengthKM     Kilometers `json:"length_km"`
	MaxCapacity  int        `json:"max_capacity"`
}

// String renders the run the way organizers refer to it,
// e.g. "Victoria Park - 2025-10-20 at 09:00 (5.00km)".
func (r *Run) String() string {
	return fmt.Sprintf("%s - %s at %s (%skm)", r.Venue, r.Date, r.Time, r.LengthKM)
}

// Occupancy is the persisted capacity state of a single run.
type Occupancy struct {
	RunID       string `json:"run_id"`
	MaxCapacity int    `json:"max_capacity"`
	SignupCount int    `json:"signup_count"`
}

// RunStatus is a run as seen by a (possibly anonymous) viewer.
type RunStatus struct {
	Run
	SignupCount    int  `json:"signup_count"`
	AvailableSpots int  `json:"available_spots"`
	IsFull         bool `json:"is_full"`
	Registered     bool `json:"registered"`
}

// SignUp is a user's registration for a run.
type SignUp struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	RunID      string    `json:"run_id"`
	SignedUpAt time.Time `json:"signed_up_at"`
	Attended   bool      `json:"attended"`
}

// User is an account that can authenticate and sign up for runs.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateRunRequest is the payload for scheduling a new run. length_km may be
// sent as a JSON number or a quoted decimal, matching what Run encodes.
type CreateRunRequest struct {
	Date         string     `json:"date"`
	Time         string     `json:"time"`
	MeetingPlace string     `json:"meeting_place"`
	Venue        string     `json:"venue"`
	LengthKM     Kilometers `json:"length_km"`
	MaxCapacity  int        `json:"max_capacity"`
}

// UpdateRunRequest replaces the schedule, location and capacity of a run.
type UpdateRunRequest = CreateRunRequest

// RunSpec is a validated CreateRunRequest.
type RunSpec struct {
	Date         Date
	Time         Clock
	MeetingPlace string
	Venue        string
	LengthKM     Kilometers
	MaxCapacity  int
}

// CreateAccountRequest is the payload for opening an account.
type CreateAccountRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AttendanceRequest is the payload for marking attendance.
type AttendanceRequest struct {
	Attended bool `json:"attended"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error   string  `json:"error"`
	Outcome Outcome `json:"outcome,omitempty"`
}

// RegistrationResponse reports the result of a register or cancel call.
type RegistrationResponse struct {
	Outcome Outcome `json:"outcome"`
	SignUp  *SignUp `json:"signup,omitempty"`
	Message string  `json:"message,omitempty"`
}
