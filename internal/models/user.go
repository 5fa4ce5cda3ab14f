package models

// User is an operator account; operators register workers and replace the
// threshold policy.
type User struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
}
