package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimetableEntry is one scheduled class. Entries are created alongside a
// course's schedule and may be edited individually afterwards.
type TimetableEntry struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	CourseID    primitive.ObjectID `bson:"course_id" json:"course"`
	Day         string             `bson:"day" json:"day"`
	StartTime   string             `bson:"start_time" json:"startTime"`
	EndTime     string             `bson:"end_time" json:"endTime"`
	Room        string             `bson:"room" json:"room"`
	ProfessorID primitive.ObjectID `bson:"professor_id" json:"professor"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
