package domain

import (
	"fmt"
	"strings"
	"time"
)

// NoticeType identifies one semester reminder tier or the final expiration
// notice. The values are persisted as part of the notice ledger's dedup key.
type NoticeType string

const (
	NoticeExpiring30Days NoticeType = "semester_expiring_30days"
	NoticeExpiring14Days NoticeType = "semester_expiring_14days"
	NoticeExpiring7Days  NoticeType = "semester_expiring_7days"
	NoticeExpiring3Days  NoticeType = "semester_expiring_3days"
	NoticeExpired        NoticeType = "semester_expired"
)

func (t NoticeType) String() string { return string(t) }

func (t NoticeType) IsValid() bool {
	switch t {
	case NoticeExpiring30Days, NoticeExpiring14Days, NoticeExpiring7Days,
		NoticeExpiring3Days, NoticeExpired:
		return true
	}
	return false
}

// ThresholdDays returns the reminder threshold in days for an expiring tier,
// and 0 for the expiration notice.
func (t NoticeType) ThresholdDays() int {
	switch t {
	case NoticeExpiring30Days:
		return 30
	case NoticeExpiring14Days:
		return 14
	case NoticeExpiring7Days:
		return 7
	case NoticeExpiring3Days:
		return 3
	}
	return 0
}

func ParseNoticeTypeFromString(s string) (NoticeType, error) {
	t := NoticeType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid notice type %q", ErrValidation, s)
	}
	return t, nil
}

// ReminderTierFor maps a day count to the single reminder tier that applies.
// Tiers cover (14,30], (7,14], (3,7] and [0,3]; a count on a boundary belongs
// to the more urgent tier, and counts above 30 or below 0 have no tier.
func ReminderTierFor(daysLeft int) (NoticeType, bool) {
	if daysLeft < 0 || daysLeft > 30 {
		return "", false
	}
	switch {
	case daysLeft <= 3:
		return NoticeExpiring3Days, true
	case daysLeft <= 7:
		return NoticeExpiring7Days, true
	case daysLeft <= 14:
		return NoticeExpiring14Days, true
	default:
		return NoticeExpiring30Days, true
	}
}

// SemesterNotice is one append-only ledger row recording that a notice was
// sent. Uniqueness over (scholarship, user, type, semester date) is enforced
// by storage and is what makes repeated sweeps safe.
type SemesterNotice struct {
	ID            string
	ScholarshipID string
	UserID        string
	NoticeType    NoticeType
	SemesterDate  time.Time
	SentAt        time.Time
	CreatedAt     time.Time
}
