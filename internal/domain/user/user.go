package user

import (
	"errors"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// skin type tags accepted on registration and profile edits
const (
	SkinOily        = "OILY"
	SkinDry         = "DRY"
	SkinCombination = "COMBINATION"
	SkinNormal      = "NORMAL"
	SkinSensitive   = "SENSITIVE"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("username is already taken")
	ErrDuplicateEmail    = errors.New("email is already registered")
	ErrPasswordTooLong   = errors.New("password exceeds 72 bytes")
)

// MaxPasswordBytes is bcrypt's input limit. It is counted in bytes, so a
// password of multibyte characters reaches it sooner than its length suggests.
const MaxPasswordBytes = 72

type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // never expose hash in JSON
	FullName     *string    `json:"fullName,omitempty"`
	Phone        *string    `json:"phone,omitempty"`
	SkinType     *string    `json:"skinType,omitempty"`
	DateOfBirth  *time.Time `json:"dateOfBirth,omitempty"`
	Role         Role       `json:"role"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Profile is the outward projection of a user. It never carries the password hash.
type Profile struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  *string   `json:"fullName"`
	Phone     *string   `json:"phone"`
	SkinType  *string   `json:"skinType"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Profile() Profile {
	return Profile{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		SkinType:  u.SkinType,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type RegisterRequest struct {
	Username    string     `json:"username" binding:"required,min=3,max=50"`
	Email       string     `json:"email" binding:"required,email,max=100"`
	Password    string     `json:"password" binding:"required,min=6,maxbytes=72"`
	FullName    *string    `json:"fullName" binding:"omitempty,max=100"`
	Phone       *string    `json:"phone" binding:"omitempty,max=20"`
	SkinType    *string    `json:"skinType" binding:"omitempty,oneof=OILY DRY COMBINATION NORMAL SENSITIVE"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
}

// ListFilter narrows the admin user listing. nil fields are ignored.
type ListFilter struct {
	Role     *Role
	SkinType *string
	Active   *bool
	Limit    int
	Offset   int
}

// New builds a fresh user with the deterministic defaults: role USER, active.
func New(req RegisterRequest, passwordHash string) User {
	return User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: passwordHash,
		FullName:     req.FullName,
		Phone:        req.Phone,
		SkinType:     req.SkinType,
		DateOfBirth:  req.DateOfBirth,
		Role:         RoleUser,
		Active:       true,
	}
}
