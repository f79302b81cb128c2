package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exam result statuses.
const (
	ExamStatusPass       = "pass"
	ExamStatusFail       = "fail"
	ExamStatusIncomplete = "incomplete"
)

// ExamMetadata carries the optional spreadsheet columns.
type ExamMetadata struct {
	Term     string `bson:"term,omitempty" json:"term,omitempty"`
	ExamType string `bson:"exam_type,omitempty" json:"examType,omitempty"`
	Remarks  string `bson:"remarks,omitempty" json:"remarks,omitempty"`
}

// ExamResult is one uploaded mark for (exam title, course, student).
// The triple is unique under a case-insensitive collation.
type ExamResult struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	ExamTitle     string             `bson:"exam_title" json:"examTitle"`
	ExamDate      *time.Time         `bson:"exam_date,omitempty" json:"examDate,omitempty"`
	CourseID      primitive.ObjectID `bson:"course_id" json:"course"`
	StudentID     primitive.ObjectID `bson:"student_id" json:"student"`
	MarksObtained float64            `bson:"marks_obtained" json:"marksObtained"`
	TotalMarks    float64            `bson:"total_marks" json:"totalMarks"`
	Percentage    *float64           `bson:"percentage,omitempty" json:"percentage,omitempty"`
	Grade         string             `bson:"grade,omitempty" json:"grade,omitempty"`
	Status        string             `bson:"status" json:"status"`
	UploadedBy    primitive.ObjectID `bson:"uploaded_by" json:"uploadedBy"`
	Metadata      ExamMetadata       `bson:"metadata" json:"metadata"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}
