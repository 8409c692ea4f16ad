package domain

import (
	"fmt"
	"strings"
	"time"
)

// ApplicationStatus represents the lifecycle state of a scholarship application.
type ApplicationStatus string

const (
	ApplicationPending   ApplicationStatus = "PENDING"
	ApplicationApproved  ApplicationStatus = "APPROVED"
	ApplicationRejected  ApplicationStatus = "REJECTED"
	ApplicationWithdrawn ApplicationStatus = "WITHDRAWN"
	ApplicationArchived  ApplicationStatus = "ARCHIVED"
	ApplicationCompleted ApplicationStatus = "COMPLETED"
)

func (s ApplicationStatus) String() string { return string(s) }

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected,
		ApplicationWithdrawn, ApplicationArchived, ApplicationCompleted:
		return true
	}
	return false
}

// IsTerminal reports whether the status has no outgoing transitions.
func (s ApplicationStatus) IsTerminal() bool {
	switch s {
	case ApplicationWithdrawn, ApplicationArchived, ApplicationCompleted:
		return true
	}
	return false
}

func ParseApplicationStatusFromString(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid application status %q", ErrValidation, s)
	}
	return st, nil
}

// ReviewAction is a provider's decision on a pending application.
type ReviewAction string

const (
	ActionApprove ReviewAction = "APPROVE"
	ActionReject  ReviewAction = "REJECT"
)

func (a ReviewAction) String() string { return string(a) }

func (a ReviewAction) IsValid() bool {
	switch a {
	case ActionApprove, ActionReject:
		return true
	}
	return false
}

func ParseReviewActionFromString(s string) (ReviewAction, error) {
	a := ReviewAction(strings.ToUpper(strings.TrimSpace(s)))
	if !a.IsValid() {
		return "", fmt.Errorf("%w: unknown review action %q", ErrInvalidTransition, s)
	}
	return a, nil
}

// ApplicationKind distinguishes a first-time application from a renewal of an
// already-approved award. A renewal carries a back-reference to the
// application it extends and coexists with it until the current term ends.
type ApplicationKind string

const (
	KindOriginal ApplicationKind = "ORIGINAL"
	KindRenewal  ApplicationKind = "RENEWAL"
)

func (k ApplicationKind) String() string { return string(k) }

func (k ApplicationKind) IsValid() bool {
	switch k {
	case KindOriginal, KindRenewal:
		return true
	}
	return false
}

// CounterEffect is the scholarship bookkeeping a status transition performs.
// Positive values increment the named counter; Slots is the delta applied to
// remaining award capacity (negative consumes a slot, positive returns one).
type CounterEffect struct {
	Pending      int
	Approved     int
	Disapproved  int
	Applications int
	Slots        int
}

// IsZero reports whether the effect changes no counters.
func (e CounterEffect) IsZero() bool {
	return e == CounterEffect{}
}

type statusPair struct {
	from ApplicationStatus
	to   ApplicationStatus
}

// transitionEffects is the closed transition table: every legal status change
// and the exact counter deltas it must apply, in one place. Statuses absent as
// a source (WITHDRAWN, ARCHIVED, COMPLETED) are terminal.
var transitionEffects = map[statusPair]CounterEffect{
	{ApplicationPending, ApplicationApproved}:  {Pending: -1, Approved: 1, Slots: -1},
	{ApplicationRejected, ApplicationApproved}: {Disapproved: -1, Approved: 1, Slots: -1},
	{ApplicationPending, ApplicationRejected}:  {Pending: -1, Disapproved: 1},
	{ApplicationApproved, ApplicationRejected}: {Approved: -1, Disapproved: 1, Slots: 1},
	{ApplicationPending, ApplicationWithdrawn}: {Pending: -1, Applications: -1},
	{ApplicationPending, ApplicationArchived}:  {Pending: -1},
	{ApplicationApproved, ApplicationArchived}: {Approved: -1},
	{ApplicationRejected, ApplicationArchived}: {Disapproved: -1},
	{ApplicationApproved, ApplicationCompleted}: {Approved: -1},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to ApplicationStatus) bool {
	_, ok := transitionEffects[statusPair{from, to}]
	return ok
}

// TransitionEffect returns the counter deltas for the from -> to change. A
// renewal's approval defers slot consumption until the original award's term
// ends, so for KindRenewal the slot delta on an approval is zero.
func TransitionEffect(from, to ApplicationStatus, kind ApplicationKind) (CounterEffect, error) {
	effect, ok := transitionEffects[statusPair{from, to}]
	if !ok {
		return CounterEffect{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if kind == KindRenewal && to == ApplicationApproved {
		effect.Slots = 0
	}
	return effect, nil
}

// Application is one student's bid for one scholarship.
type Application struct {
	ID            string
	ScholarshipID string
	StudentID     string
	Kind          ApplicationKind
	RenewalOf     *string
	Status        ApplicationStatus
	Active        bool
	RenewalFailed bool
	Notes         *string
	ReviewedBy    *string
	ReviewedAt    *time.Time
	SubmittedAt   time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (a *Application) IsRenewal() bool { return a.Kind == KindRenewal }

// StampReview records who decided the application and when.
func (a *Application) StampReview(reviewerID string, at time.Time) {
	a.ReviewedBy = &reviewerID
	a.ReviewedAt = &at
}

// AppendNote adds a line to the application's free-text notes.
func (a *Application) AppendNote(text string) {
	if text == "" {
		return
	}
	if a.Notes == nil || *a.Notes == "" {
		a.Notes = &text
		return
	}
	joined := *a.Notes + "\n" + text
	a.Notes = &joined
}

func (a *Application) Validate() error {
	if a.StudentID == "" {
		return fmt.Errorf("%w: student id is required", ErrValidation)
	}
	if a.ScholarshipID == "" {
		return fmt.Errorf("%w: scholarship id is required", ErrValidation)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: invalid application status %q", ErrValidation, a.Status)
	}
	if !a.Kind.IsValid() {
		return fmt.Errorf("%w: invalid application kind %q", ErrValidation, a.Kind)
	}
	if a.Kind == KindRenewal && (a.RenewalOf == nil || *a.RenewalOf == "") {
		return fmt.Errorf("%w: renewal application requires the original application id", ErrValidation)
	}
	if a.Kind == KindOriginal && a.RenewalOf != nil {
		return fmt.Errorf("%w: original application must not reference another application", ErrValidation)
	}
	return nil
}
