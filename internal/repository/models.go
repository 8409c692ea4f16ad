package repository

import (
	"time"

	"github.com/Mliaj/scholarsphere-sub000/internal/domain"
)

// ApplicationModel is the persistence model for the applications table.
type ApplicationModel struct {
	ID            string                   `gorm:"type:uuid;primaryKey"`
	ScholarshipID string                   `gorm:"type:uuid;not null"`
	StudentID     string                   `gorm:"type:uuid;not null"`
	Kind          domain.ApplicationKind   `gorm:"type:varchar(10);not null"`
	RenewalOf     *string                  `gorm:"type:uuid"`
	Status        domain.ApplicationStatus `gorm:"type:varchar(20);not null"`
	Active        bool                     `gorm:"not null;default:true"`
	RenewalFailed bool                     `gorm:"not null;default:false"`
	Notes         *string                  `gorm:"type:text"`
	ReviewedBy    *string                  `gorm:"type:uuid"`
	ReviewedAt    *time.Time
	SubmittedAt   time.Time `gorm:"not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ApplicationModel) TableName() string {
	return "applications"
}

// ScholarshipModel is the persistence model for the scholarships table.
type ScholarshipModel struct {
	ID                   string                   `gorm:"type:uuid;primaryKey"`
	ProviderID           string                   `gorm:"type:uuid;not null"`
	Code                 string                   `gorm:"type:varchar(64);not null"`
	Title                string                   `gorm:"type:varchar(255);not null"`
	Requirements         string                   `gorm:"type:text;not null;default:''"`
	SlotsTotal           *int                     `gorm:"type:int"`
	Slots                *int                     `gorm:"type:int"`
	Status               domain.ScholarshipStatus `gorm:"type:varchar(20);not null"`
	SemesterDate         *time.Time               `gorm:"type:date"`
	NextLastSemesterDate *time.Time               `gorm:"type:date"`
	ApplicationsCount    int                      `gorm:"not null;default:0"`
	PendingCount         int                      `gorm:"not null;default:0"`
	ApprovedCount        int                      `gorm:"not null;default:0"`
	DisapprovedCount     int                      `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (ScholarshipModel) TableName() string {
	return "scholarships"
}

// SemesterNoticeModel is the persistence model for the semester_notices
// ledger. The unique index over (scholarship_id, user_id, notice_type,
// semester_date) is what enforces at-most-once delivery.
type SemesterNoticeModel struct {
	ID            string            `gorm:"type:uuid;primaryKey"`
	ScholarshipID string            `gorm:"type:uuid;not null"`
	UserID        string            `gorm:"type:uuid;not null"`
	NoticeType    domain.NoticeType `gorm:"type:varchar(40);not null"`
	SemesterDate  time.Time         `gorm:"type:date;not null"`
	SentAt        time.Time         `gorm:"not null"`
	CreatedAt     time.Time
}

func (SemesterNoticeModel) TableName() string {
	return "semester_notices"
}

// NotificationModel is the persistence model for in-app notifications.
type NotificationModel struct {
	ID        string                  `gorm:"type:uuid;primaryKey"`
	UserID    string                  `gorm:"type:uuid;not null"`
	Kind      domain.NotificationKind `gorm:"type:varchar(40);not null"`
	Title     string                  `gorm:"type:varchar(255);not null"`
	Message   string                  `gorm:"type:text;not null"`
	ReadAt    *time.Time
	CreatedAt time.Time
}

func (NotificationModel) TableName() string {
	return "notifications"
}

func applicationModelFromDomain(a *domain.Application) *ApplicationModel {
	if a == nil {
		return nil
	}

	return &ApplicationModel{
		ID:            a.ID,
		ScholarshipID: a.ScholarshipID,
		StudentID:     a.StudentID,
		Kind:          a.Kind,
		RenewalOf:     a.RenewalOf,
		Status:        a.Status,
		Active:        a.Active,
		RenewalFailed: a.RenewalFailed,
		Notes:         a.Notes,
		ReviewedBy:    a.ReviewedBy,
		ReviewedAt:    a.ReviewedAt,
		SubmittedAt:   a.SubmittedAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func applicationModelToDomain(m *ApplicationModel) *domain.Application {
	if m == nil {
		return nil
	}

	return &domain.Application{
		ID:            m.ID,
		ScholarshipID: m.ScholarshipID,
		StudentID:     m.StudentID,
		Kind:          m.Kind,
		RenewalOf:     m.RenewalOf,
		Status:        m.Status,
		Active:        m.Active,
		RenewalFailed: m.RenewalFailed,
		Notes:         m.Notes,
		ReviewedBy:    m.ReviewedBy,
		ReviewedAt:    m.ReviewedAt,
		SubmittedAt:   m.SubmittedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func scholarshipModelFromDomain(s *domain.Scholarship) *ScholarshipModel {
	if s == nil {
		return nil
	}

	return &ScholarshipModel{
		ID:                   s.ID,
		ProviderID:           s.ProviderID,
		Code:                 s.Code,
		Title:                s.Title,
		Requirements:         s.Requirements,
		SlotsTotal:           s.SlotsTotal,
		Slots:                s.Slots,
		Status:               s.Status,
		SemesterDate:         s.SemesterDate,
		NextLastSemesterDate: s.NextLastSemesterDate,
		ApplicationsCount:    s.ApplicationsCount,
		PendingCount:         s.PendingCount,
		ApprovedCount:        s.ApprovedCount,
		DisapprovedCount:     s.DisapprovedCount,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

func scholarshipModelToDomain(m *ScholarshipModel) *domain.Scholarship {
	if m == nil {
		return nil
	}

	return &domain.Scholarship{
		ID:                   m.ID,
		ProviderID:           m.ProviderID,
		Code:                 m.Code,
		Title:                m.Title,
		Requirements:         m.Requirements,
		SlotsTotal:           m.SlotsTotal,
		Slots:                m.Slots,
		Status:               m.Status,
		SemesterDate:         m.SemesterDate,
		NextLastSemesterDate: m.NextLastSemesterDate,
		ApplicationsCount:    m.ApplicationsCount,
		PendingCount:         m.PendingCount,
		ApprovedCount:        m.ApprovedCount,
		DisapprovedCount:     m.DisapprovedCount,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func semesterNoticeModelFromDomain(n *domain.SemesterNotice) *SemesterNoticeModel {
	if n == nil {
		return nil
	}

	return &SemesterNoticeModel{
		ID:            n.ID,
		ScholarshipID: n.ScholarshipID,
		UserID:        n.UserID,
		NoticeType:    n.NoticeType,
		SemesterDate:  n.SemesterDate,
		SentAt:        n.SentAt,
		CreatedAt:     n.CreatedAt,
	}
}

func semesterNoticeModelToDomain(m *SemesterNoticeModel) *domain.SemesterNotice {
	if m == nil {
		return nil
	}

	return &domain.SemesterNotice{
		ID:            m.ID,
		ScholarshipID: m.ScholarshipID,
		UserID:        m.UserID,
		NoticeType:    m.NoticeType,
		SemesterDate:  m.SemesterDate,
		SentAt:        m.SentAt,
		CreatedAt:     m.CreatedAt,
	}
}

func notificationModelFromDomain(n *domain.Notification) *NotificationModel {
	if n == nil {
		return nil
	}

	return &NotificationModel{
		ID:        n.ID,
		UserID:    n.UserID,
		Kind:      n.Kind,
		Title:     n.Title,
		Message:   n.Message,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func notificationModelToDomain(m *NotificationModel) *domain.Notification {
	if m == nil {
		return nil
	}

	return &domain.Notification{
		ID:        m.ID,
		UserID:    m.UserID,
		Kind:      m.Kind,
		Title:     m.Title,
		Message:   m.Message,
		ReadAt:    m.ReadAt,
		CreatedAt: m.CreatedAt,
	}
}
