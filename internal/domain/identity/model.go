package identity

import (
	"time"

	"github.com/google/uuid"
)

// Roles assignable to a user account. Every account carries exactly one role;
// finer-grained access is layered on top through role groups.
const (
	RoleAdmin        = "ADMIN"
	RoleDoctor       = "DOCTOR"
	RolePatient      = "PATIENT"
	RoleStaff        = "STAFF"
	RoleReceptionist = "RECEPTIONIST"
)

var validRoles = map[string]bool{
	RoleAdmin:        true,
	RoleDoctor:       true,
	RolePatient:      true,
	RoleStaff:        true,
	RoleReceptionist: true,
}

func IsValidRole(role string) bool { return validRoles[role] }

// Permissions grantable through role groups. A user's effective permission set
// is the union across every group they belong to.
const (
	PermViewPatientRecords = "can_view_patient_records"
	PermEditPatientRecords = "can_edit_patient_records"
	PermViewBilling        = "can_view_billing"
	PermManageAppointments = "can_manage_appointments"
)

var validPermissions = map[string]bool{
	PermViewPatientRecords: true,
	PermEditPatientRecords: true,
	PermViewBilling:        true,
	PermManageAppointments: true,
}

func IsValidPermission(perm string) bool { return validPermissions[perm] }

type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	PhoneNumber  string    `db:"phone_number" json:"phone_number"`
	Role         string    `db:"role" json:"role"`
	IsMFAEnabled bool      `db:"is_mfa_enabled" json:"is_mfa_enabled"`
	MFASecret    string    `db:"mfa_secret" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// RoleGroup bundles permissions for assignment to users, on top of the base
// role. Group names are unique.
type RoleGroup struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Permissions []string  `db:"permissions" json:"permissions"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// HasPermission reports whether the group grants perm.
func (g *RoleGroup) HasPermission(perm string) bool {
	for _, p := range g.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
