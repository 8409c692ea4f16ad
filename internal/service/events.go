package service

import (
	"fmt"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
	"github.com/Mliaj/scholarsphere-sub000/internal/notify"
)

func submittedEvent(studentID, scholarshipTitle string) notify.Event {
	return notify.Event{
		UserID:   studentID,
		Kind:     domain.KindApplicationReceived,
		Title:    "Application received",
		Message:  fmt.Sprintf("Your application for %s was received and is awaiting review.", scholarshipTitle),
		Template: "application_received",
		Vars:     map[string]string{"scholarship": scholarshipTitle},
	}
}

func approvedEvent(studentID, scholarshipTitle string) notify.Event {
	return notify.Event{
		UserID:   studentID,
		Kind:     domain.KindApplicationApproved,
		Title:    "Application approved",
		Message:  fmt.Sprintf("Congratulations! Your application for %s was approved.", scholarshipTitle),
		Template: "application_approved",
		Vars:     map[string]string{"scholarship": scholarshipTitle},
	}
}

func renewalApprovedEvent(studentID, scholarshipTitle string) notify.Event {
	return notify.Event{
		UserID:   studentID,
		Kind:     domain.KindRenewalApproved,
		Title:    "Renewal approved",
		Message:  fmt.Sprintf("Your renewal for %s was approved and activates when the current term ends.", scholarshipTitle),
		Template: "renewal_approved",
		Vars:     map[string]string{"scholarship": scholarshipTitle},
	}
}

func rejectedEvent(studentID, scholarshipTitle string) notify.Event {
	return notify.Event{
		UserID:   studentID,
		Kind:     domain.KindApplicationRejected,
		Title:    "Application not approved",
		Message:  fmt.Sprintf("Your application for %s was not approved.", scholarshipTitle),
		Template: "application_rejected",
		Vars:     map[string]string{"scholarship": scholarshipTitle},
	}
}

func displacedEvent(studentID string) notify.Event {
	return notify.Event{
		UserID:   studentID,
		Kind:     domain.KindApplicationRejected,
		Title:    "Application closed",
		Message:  "This application was closed because another scholarship award was approved for you.",
		Template: "application_displaced",
	}
}

func withdrawnEvent(userID, scholarshipTitle string) notify.Event {
	return notify.Event{
		UserID:   userID,
		Kind:     domain.KindApplicationWithdrawn,
		Title:    "Application withdrawn",
		Message:  fmt.Sprintf("The application for %s was withdrawn.", scholarshipTitle),
		Template: "application_withdrawn",
		Vars:     map[string]string{"scholarship": scholarshipTitle},
	}
}

func reminderEvent(studentID, scholarshipTitle string, daysLeft int) notify.Event {
	return notify.Event{
		UserID:   studentID,
		Kind:     domain.KindSemesterReminder,
		Title:    "Scholarship term ending soon",
		Message:  fmt.Sprintf("Your award for %s ends in %d day(s). Apply for a renewal to keep it.", scholarshipTitle, daysLeft),
		Template: "semester_reminder",
		Vars: map[string]string{
			"scholarship": scholarshipTitle,
			"daysLeft":    fmt.Sprintf("%d", daysLeft),
		},
	}
}

func expiredEvent(studentID, scholarshipTitle string) notify.Event {
	return notify.Event{
		UserID:   studentID,
		Kind:     domain.KindSemesterExpired,
		Title:    "Scholarship term ended",
		Message:  fmt.Sprintf("The award term for %s has ended and your application was archived.", scholarshipTitle),
		Template: "semester_expired",
		Vars:     map[string]string{"scholarship": scholarshipTitle},
	}
}

func renewalActivatedEvent(studentID, scholarshipTitle string) notify.Event {
	return notify.Event{
		UserID:   studentID,
		Kind:     domain.KindRenewalApproved,
		Title:    "Renewal activated",
		Message:  fmt.Sprintf("Your renewed award for %s is now active for the new term.", scholarshipTitle),
		Template: "renewal_activated",
		Vars:     map[string]string{"scholarship": scholarshipTitle},
	}
}
