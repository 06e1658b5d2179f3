// Package models defines server-side data models persisted in the database.
package models

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           int64
	Username     string
	PasswordHash []byte
	Role         Role
	CreatedAt    time.Time
}
