// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles recognised by the portal.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User represents students, teachers and admins.
//
// NOTE:
//   - Course enrollment is stored on the course (student_ids), not here.
//   - PasswordHash is never serialized to JSON.
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	NameCI       string             `bson:"name_ci" json:"-"` // lowercase, diacritics-stripped
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Role         string             `bson:"role" json:"role"` // student | teacher | admin
	Department   string             `bson:"department" json:"department"`
	StudentID    string             `bson:"student_id,omitempty" json:"studentId,omitempty"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// UserRef is the small projection of a user embedded in API responses
// wherever a referenced user is "populated".
type UserRef struct {
	ID         primitive.ObjectID `bson:"_id" json:"_id"`
	Name       string             `bson:"name" json:"name"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	StudentID  string             `bson:"student_id,omitempty" json:"studentId,omitempty"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`
}

// Ref returns the populated projection of u.
func (u User) Ref() UserRef {
	return UserRef{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		StudentID:  u.StudentID,
		Department: u.Department,
	}
}
