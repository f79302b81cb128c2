package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attendance statuses.
const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
	AttendanceLate    = "late"
)

// Attendance is one student's mark for one course on one day.
type Attendance struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	StudentID primitive.ObjectID  `bson:"student_id" json:"student"`
	CourseID  primitive.ObjectID  `bson:"course_id" json:"course"`
	Date      time.Time           `bson:"date" json:"date"` // UTC midnight
	Status    string              `bson:"status" json:"status"`
	MarkedBy  *primitive.ObjectID `bson:"marked_by,omitempty" json:"markedBy,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
