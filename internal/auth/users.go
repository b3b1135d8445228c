package auth

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qvdang/stockledger/internal/model"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
)

func validRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleStaff:
		return true
	}
	return false
}

// User is one account record. The password is stored as a bcrypt hash only.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PublicUser is the caller-facing view without the password hash.
type PublicUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u User) public() PublicUser {
	return PublicUser{Username: u.Username, Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt}
}

// UserStore persists accounts as a JSON file with the same atomic-rename
// strategy as the ledger document.
type UserStore struct {
	path string
	mu   sync.RWMutex
}

func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

// EnsureBootstrapAdmin creates the initial super admin when the store holds
// no users yet. Idempotent.
func (s *UserStore) EnsureBootstrapAdmin(username, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	if len(users) > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.NewStorage("hash bootstrap password", err)
	}
	now := time.Now().UTC()
	users[username] = &User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         RoleSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.save(users)
}

// Authenticate verifies credentials and returns the public record.
func (s *UserStore) Authenticate(username, password string) (PublicUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users, err := s.load()
	if err != nil {
		return PublicUser{}, err
	}
	user, ok := users[username]
	if !ok {
		return PublicUser{}, model.NewValidation("Invalid username or password")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return PublicUser{}, model.NewValidation("Invalid username or password")
	}
	return user.public(), nil
}

// Create adds a new account with the given role.
func (s *UserStore) Create(username, password, role string) (PublicUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return PublicUser{}, model.NewValidation("Username cannot be empty")
	}
	if len(password) < 6 {
		return PublicUser{}, model.NewValidation("Password must be at least 6 characters")
	}
	if !validRole(role) {
		role = RoleStaff
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return PublicUser{}, err
	}
	if _, exists := users[username]; exists {
		return PublicUser{}, model.NewValidation("Username already exists")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return PublicUser{}, model.NewStorage("hash password", err)
	}
	now := time.Now().UTC()
	user := &User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	users[username] = user
	if err := s.save(users); err != nil {
		return PublicUser{}, err
	}
	return user.public(), nil
}

// SetPassword replaces the password of an existing account.
func (s *UserStore) SetPassword(username, password string) error {
	if len(password) < 6 {
		return model.NewValidation("Password must be at least 6 characters")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	user, ok := users[username]
	if !ok {
		return model.NewNotFound("User", username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.NewStorage("hash password", err)
	}
	user.PasswordHash = string(hash)
	user.UpdatedAt = time.Now().UTC()
	return s.save(users)
}

// Delete removes an account. The last super admin cannot be removed.
func (s *UserStore) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, err := s.load()
	if err != nil {
		return err
	}
	user, ok := users[username]
	if !ok {
		return model.NewNotFound("User", username)
	}
	if user.Role == RoleSuperAdmin {
		admins := 0
		for _, u := range users {
			if u.Role == RoleSuperAdmin {
				admins++
			}
		}
		if admins <= 1 {
			return model.NewValidation("At least one super admin is required")
		}
	}
	delete(users, username)
	return s.save(users)
}

// List returns all accounts sorted by username.
func (s *UserStore) List() ([]PublicUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users, err := s.load()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]PublicUser, 0, len(names))
	for _, name := range names {
		out = append(out, users[name].public())
	}
	return out, nil
}

func (s *UserStore) load() (map[string]*User, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*User{}, nil
	}
	if err != nil {
		return nil, model.NewStorage("read users", err)
	}
	var records []User
	if err := json.Unmarshal(raw, &records); err != nil {
		return map[string]*User{}, nil
	}
	users := make(map[string]*User, len(records))
	for i := range records {
		user := records[i]
		if strings.TrimSpace(user.Username) == "" || user.PasswordHash == "" {
			continue
		}
		if !validRole(user.Role) {
			user.Role = RoleStaff
		}
		users[user.Username] = &user
	}
	return users, nil
}

func (s *UserStore) save(users map[string]*User) error {
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)
	records := make([]User, 0, len(names))
	for _, name := range names {
		records = append(records, *users[name])
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return model.NewStorage("encode users", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.NewStorage("create users directory", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return model.NewStorage("create temp users file", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return model.NewStorage("write users", err)
	}
	if err := tmp.Close(); err != nil {
		return model.NewStorage("close users file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return model.NewStorage("replace users file", err)
	}
	return nil
}
