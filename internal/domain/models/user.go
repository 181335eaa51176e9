package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Nickname  string    `json:"nickname"`
	AvatarURL string    `json:"avatarUrl"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
