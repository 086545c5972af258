package patient

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	bloodGroupPattern = regexp.MustCompile(`^(A|B|AB|O)[+-]$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
)

// Patient is the clinical record attached 1:1 to a PATIENT-role account.
// Records are never hard-deleted.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	PatientID        string     `db:"patient_id" json:"patient_id"` // MRN, unique
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	BloodGroup       string     `db:"blood_group" json:"blood_group"`
	EmergencyContact string     `db:"emergency_contact" json:"emergency_contact"`
	Address          string     `db:"address" json:"address"`
	MedicalHistory   string     `db:"medical_history" json:"medical_history"`
	NextFollowUp     *time.Time `db:"next_follow_up" json:"next_follow_up,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

func ValidBloodGroup(v string) bool { return bloodGroupPattern.MatchString(v) }

func ValidPhone(v string) bool { return phonePattern.MatchString(v) }
