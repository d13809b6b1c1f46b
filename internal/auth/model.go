package auth

import "time"

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Salt      string    `json:"salt"`
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public strips credential material for handing users to callers.
func (u User) Public() User {
	u.Salt = ""
	u.Hash = ""
	return u
}
