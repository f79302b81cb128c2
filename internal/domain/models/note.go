package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NoteTags lists the accepted note tags; the first is the default.
var NoteTags = []string{"Reference", "Important", "Exam", "Assignment"}

// Note is a study document shared with students.
type Note struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Title         string              `bson:"title" json:"title"`
	Subject       string              `bson:"subject" json:"subject"`
	Description   string              `bson:"description,omitempty" json:"description,omitempty"`
	AuthorID      primitive.ObjectID  `bson:"author_id" json:"author"`
	FileURL       string              `bson:"file_url,omitempty" json:"fileUrl,omitempty"`
	FileName      string              `bson:"file_name,omitempty" json:"fileName,omitempty"`
	FileType      string              `bson:"file_type,omitempty" json:"fileType,omitempty"`
	FileSize      int64               `bson:"file_size" json:"fileSize"`
	CourseID      *primitive.ObjectID `bson:"course_id,omitempty" json:"course,omitempty"`
	CourseName    string              `bson:"course_name,omitempty" json:"courseName,omitempty"`
	Pages         int                 `bson:"pages" json:"pages"`
	Tag           string              `bson:"tag" json:"tag"`
	DownloadCount int64               `bson:"download_count" json:"downloadCount"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
