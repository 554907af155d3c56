package auth

import "strconv"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is a dashboard account. IDs are the decimal form of the users.id column.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         string
	BranchID     *int64
	PasswordHash string
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// ParseUserID converts a user id to its numeric database key.
func ParseUserID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidInput
	}
	return n, nil
}
