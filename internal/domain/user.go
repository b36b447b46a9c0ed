package domain

import "time"

type User struct {
	UserID          string    `json:"id" dynamodbav:"user_id"`
	Name            string    `json:"name" dynamodbav:"name"`
	Email           string    `json:"email" dynamodbav:"email"`
	PasswordHash    string    `json:"-" dynamodbav:"password_hash"`
	Role            string    `json:"role" dynamodbav:"role"`
	Bio             string    `json:"bio" dynamodbav:"bio"`
	Skills          []string  `json:"skills" dynamodbav:"skills"`
	Enable          bool      `json:"enable" dynamodbav:"enable"`
	NotificationIDs []string  `json:"notification_ids" dynamodbav:"notification_ids"`
	CreatedAt       time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt       time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateUserRequest struct {
	Name     string   `json:"name" validate:"required,max=100"`
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Role     string   `json:"role" validate:"required,oneof=freelancer client"`
	Bio      string   `json:"bio" validate:"max=2000"`
	Skills   []string `json:"skills" validate:"max=50,dive,max=50"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateUserRequest struct {
	Name   *string   `json:"name" validate:"omitempty,max=100"`
	Bio    *string   `json:"bio" validate:"omitempty,max=2000"`
	Skills *[]string `json:"skills" validate:"omitempty,max=50,dive,max=50"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

// Public returns the view of u shown to other users.
func (u User) Public() User {
	u.Email = ""
	u.NotificationIDs = nil
	return u
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

type SetEnabledRequest struct {
	Enable *bool `json:"enable" validate:"required"`
}
