package domain

import (
	"fmt"
	"strings"
	"time"
)

// ScholarshipStatus represents the publication state of a scholarship.
type ScholarshipStatus string

const (
	ScholarshipDraft     ScholarshipStatus = "DRAFT"
	ScholarshipActive    ScholarshipStatus = "ACTIVE"
	ScholarshipSuspended ScholarshipStatus = "SUSPENDED"
	ScholarshipArchived  ScholarshipStatus = "ARCHIVED"
	ScholarshipClosed    ScholarshipStatus = "CLOSED"
)

func (s ScholarshipStatus) String() string { return string(s) }

func (s ScholarshipStatus) IsValid() bool {
	switch s {
	case ScholarshipDraft, ScholarshipActive, ScholarshipSuspended,
		ScholarshipArchived, ScholarshipClosed:
		return true
	}
	return false
}

func ParseScholarshipStatusFromString(s string) (ScholarshipStatus, error) {
	st := ScholarshipStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid scholarship status %q", ErrValidation, s)
	}
	return st, nil
}

// Scholarship is an award definition owned by a provider. SlotsTotal is the
// configured award capacity and Slots the remaining capacity; both are nil
// when the scholarship does not track capacity. SemesterDate is the end of
// the current award term; NextLastSemesterDate must be configured before a
// renewal against this scholarship can be approved.
type Scholarship struct {
	ID                   string
	ProviderID           string
	Code                 string
	Title                string
	Requirements         string
	SlotsTotal           *int
	Slots                *int
	Status               ScholarshipStatus
	SemesterDate         *time.Time
	NextLastSemesterDate *time.Time
	ApplicationsCount    int
	PendingCount         int
	ApprovedCount        int
	DisapprovedCount     int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// RequirementCodes parses the comma-separated requirement list, trimming
// whitespace and dropping empty entries.
func (s *Scholarship) RequirementCodes() []string {
	if s.Requirements == "" {
		return nil
	}
	parts := strings.Split(s.Requirements, ",")
	codes := make([]string, 0, len(parts))
	for _, p := range parts {
		if code := strings.TrimSpace(p); code != "" {
			codes = append(codes, code)
		}
	}
	return codes
}

// SlotsTracked reports whether the scholarship enforces award capacity.
func (s *Scholarship) SlotsTracked() bool { return s.Slots != nil }

// RemainingSlots returns the remaining capacity and whether it is tracked.
func (s *Scholarship) RemainingSlots() (int, bool) {
	if s.Slots == nil {
		return 0, false
	}
	return *s.Slots, true
}

// DaysUntilSemesterEnd returns the whole days between asOf and the current
// term end, both taken as calendar dates. The second result is false when no
// semester date is configured. A negative count means the term has ended.
func (s *Scholarship) DaysUntilSemesterEnd(asOf time.Time) (int, bool) {
	if s.SemesterDate == nil {
		return 0, false
	}
	return daysBetween(asOf, *s.SemesterDate), true
}

func daysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(t.Sub(f) / (24 * time.Hour))
}

func (s *Scholarship) Validate() error {
	if s.ProviderID == "" {
		return fmt.Errorf("%w: provider id is required", ErrValidation)
	}
	if s.Code == "" {
		return fmt.Errorf("%w: code is required", ErrValidation)
	}
	if s.Title == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !s.Status.IsValid() {
		return fmt.Errorf("%w: invalid scholarship status %q", ErrValidation, s.Status)
	}
	if s.SlotsTotal != nil && *s.SlotsTotal < 0 {
		return fmt.Errorf("%w: slots must not be negative", ErrValidation)
	}
	if s.Slots != nil && *s.Slots < 0 {
		return fmt.Errorf("%w: remaining slots must not be negative", ErrValidation)
	}
	if (s.SlotsTotal == nil) != (s.Slots == nil) {
		return fmt.Errorf("%w: slots and total slots must be tracked together", ErrValidation)
	}
	return nil
}
