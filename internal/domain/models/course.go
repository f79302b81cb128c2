package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Weekdays accepted in course schedules and timetable entries.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ScheduleSlot is one weekly meeting of a course.
type ScheduleSlot struct {
	Day       string `bson:"day" json:"day"`
	StartTime string `bson:"start_time" json:"startTime"` // HH:MM
	EndTime   string `bson:"end_time" json:"endTime"`     // HH:MM
	Room      string `bson:"room" json:"room"`
}

// CourseResource is a file or link attached to a course by its teacher.
type CourseResource struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	FileURL     string             `bson:"file_url,omitempty" json:"fileUrl,omitempty"`
	FileType    string             `bson:"file_type,omitempty" json:"fileType,omitempty"`
	UploadedBy  primitive.ObjectID `bson:"uploaded_by" json:"uploadedBy"`
	UploadedAt  time.Time          `bson:"uploaded_at" json:"uploadedAt"`
}

// Course is a taught course with its teacher, roster and weekly schedule.
type Course struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Code        string               `bson:"code" json:"code"` // always upper-case
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Credits     int                  `bson:"credits" json:"credits"`
	Department  string               `bson:"department" json:"department"`
	TeacherID   primitive.ObjectID   `bson:"teacher_id" json:"teacher"`
	Schedule    []ScheduleSlot       `bson:"schedule" json:"schedule"`
	StudentIDs  []primitive.ObjectID `bson:"student_ids" json:"students"`
	Resources   []CourseResource     `bson:"resources,omitempty" json:"resources,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasStudent reports whether id is enrolled in the course.
func (c Course) HasStudent(id primitive.ObjectID) bool {
	for _, s := range c.StudentIDs {
		if s == id {
			return true
		}
	}
	return false
}
