package identity

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/ehs/ehs/internal/domain/audit"
)

// AuditSink receives audit entries from account operations.
type AuditSink interface {
	Record(ctx context.Context, e audit.Entry)
}

type Service struct {
	users  UserRepository
	groups GroupRepository
	audit  AuditSink
}

func NewService(users UserRepository, groups GroupRepository, sink AuditSink) *Service {
	return &Service{users: users, groups: groups, audit: sink}
}

// Register creates a new account with a bcrypt-hashed password. The role
// defaults to PATIENT when empty.
func (s *Service) Register(ctx context.Context, u *User, password string) error {
	if u.Username == "" || u.Email == "" {
		return fmt.Errorf("username and email are required")
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	if u.Role == "" {
		u.Role = RolePatient
	}
	if !IsValidRole(u.Role) {
		return fmt.Errorf("invalid role: %s", u.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	u.IsActive = true

	if err := s.users.Create(ctx, u); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &u.ID,
		Action:       audit.ActionUserCreate,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
		Details:      map[string]interface{}{"username": u.Username, "role": u.Role},
	})
	return nil
}

// Authenticate verifies a username/password pair. A LOGIN entry is recorded
// on success.
func (s *Service) Authenticate(ctx context.Context, username, password, ip string) (*User, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if err == ErrNotFound {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, ErrAccountDisabled
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:       &u.ID,
		Action:       audit.ActionLogin,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
		IPAddress:    ip,
	})
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	return s.users.Search(ctx, params, limit, offset)
}

// UpdateProfile updates mutable account fields. Username and password are not
// touched here.
func (s *Service) UpdateProfile(ctx context.Context, u *User) error {
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !IsValidRole(u.Role) {
		return fmt.Errorf("invalid role: %s", u.Role)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &u.ID,
		Action:       audit.ActionUserUpdate,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
	})
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if len(next) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)
	return s.users.Update(ctx, u)
}

// EnrollMFA generates a fresh TOTP secret for the account and returns the
// otpauth provisioning URL for the authenticator app. The account is not
// protected until the first code is confirmed through VerifyMFA; re-enrolling
// replaces any previous secret and clears the enabled flag.
func (s *Service) EnrollMFA(ctx context.Context, id uuid.UUID) (string, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "EHS",
		AccountName: u.Username,
	})
	if err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	u.MFASecret = key.Secret()
	u.IsMFAEnabled = false
	if err := s.users.Update(ctx, u); err != nil {
		return "", err
	}
	return key.URL(), nil
}

// VerifyMFA confirms a code from the authenticator app and switches the
// account to MFA-enabled.
func (s *Service) VerifyMFA(ctx context.Context, id uuid.UUID, code string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.MFASecret == "" {
		return ErrMFANotEnrolled
	}
	if !totp.Validate(code, u.MFASecret) {
		return ErrMFACodeInvalid
	}
	if u.IsMFAEnabled {
		return nil
	}
	u.IsMFAEnabled = true
	if err := s.users.Update(ctx, u); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &u.ID,
		Action:       audit.ActionMFAEnable,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
	})
	return nil
}

// Deactivate soft-deletes an account. The row stays so that historical
// appointments and audit entries keep a valid reference.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Deactivate(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &id,
		Action:       audit.ActionUserDeactivate,
		ResourceType: "user",
		ResourceID:   id.String(),
	})
	return nil
}

// =========== Role Groups ===========

func (s *Service) CreateGroup(ctx context.Context, g *RoleGroup) error {
	if g.Name == "" {
		return fmt.Errorf("name is required")
	}
	for _, p := range g.Permissions {
		if !IsValidPermission(p) {
			return fmt.Errorf("unknown permission: %s", p)
		}
	}
	return s.groups.Create(ctx, g)
}

func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*RoleGroup, error) {
	return s.groups.GetByID(ctx, id)
}

func (s *Service) ListGroups(ctx context.Context, limit, offset int) ([]*RoleGroup, int, error) {
	return s.groups.List(ctx, limit, offset)
}

func (s *Service) AssignGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return err
	}
	g, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if err := s.groups.AssignUser(ctx, userID, groupID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &userID,
		Action:       audit.ActionGroupAssign,
		ResourceType: "role_group",
		ResourceID:   groupID.String(),
		Details:      map[string]interface{}{"group": g.Name},
	})
	return nil
}

func (s *Service) RemoveGroup(ctx context.Context, userID, groupID uuid.UUID) error {
	if err := s.groups.RemoveUser(ctx, userID, groupID); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Entry{
		UserID:       &userID,
		Action:       audit.ActionGroupRemove,
		ResourceType: "role_group",
		ResourceID:   groupID.String(),
	})
	return nil
}

func (s *Service) GroupsFor(ctx context.Context, userID uuid.UUID) ([]*RoleGroup, error) {
	return s.groups.GroupsForUser(ctx, userID)
}

// EffectivePermissions returns the union of permissions across every group
// the user belongs to, sorted for stable output.
func (s *Service) EffectivePermissions(ctx context.Context, userID uuid.UUID) ([]string, error) {
	groups, err := s.groups.GroupsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool)
	for _, g := range groups {
		for _, p := range g.Permissions {
			set[p] = true
		}
	}
	perms := make([]string, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Strings(perms)
	return perms, nil
}

// RoleOf returns the user's exact role with no admin shortcut. Use it when
// the role itself matters, not a gate.
func (s *Service) RoleOf(ctx context.Context, userID uuid.UUID) (string, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// HasRole reports whether the user holds the given role. Admins pass every
// role gate.
func (s *Service) HasRole(ctx context.Context, userID uuid.UUID, role string) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.Role == RoleAdmin {
		return true, nil
	}
	return u.Role == role, nil
}

// HasPermission reports whether the user holds perm through any of their
// groups. Admins hold every permission implicitly.
func (s *Service) HasPermission(ctx context.Context, userID uuid.UUID, perm string) (bool, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if u.Role == RoleAdmin {
		return true, nil
	}
	groups, err := s.groups.GroupsForUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, g := range groups {
		if g.HasPermission(perm) {
			return true, nil
		}
	}
	return false, nil
}
