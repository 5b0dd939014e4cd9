package models

// Role comes from the identity service's JWT claims; users themselves live
// there, this service only stores their IDs.
type Role string

const (
	RoleClient  Role = "client"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)
