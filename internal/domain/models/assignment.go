package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultPoints is used when an assignment carries no point value.
const DefaultPoints = 100

// FileMeta describes a stored upload.
type FileMeta struct {
	FileName string `bson:"file_name" json:"fileName"`
	FileURL  string `bson:"file_url" json:"fileUrl"`
	FileType string `bson:"file_type,omitempty" json:"fileType,omitempty"`
	FileSize int64  `bson:"file_size,omitempty" json:"fileSize,omitempty"`
}

// Submission is a student's upload for one assignment. The assignments store
// keeps at most one submission per student.
type Submission struct {
	ID          primitive.ObjectID  `bson:"_id" json:"_id"`
	StudentID   primitive.ObjectID  `bson:"student_id" json:"student"`
	SubmittedAt time.Time           `bson:"submitted_at" json:"submittedAt"`
	File        string              `bson:"file,omitempty" json:"file,omitempty"`
	Files       []FileMeta          `bson:"files,omitempty" json:"files,omitempty"`
	Grade       *float64            `bson:"grade,omitempty" json:"grade,omitempty"`
	Feedback    string              `bson:"feedback,omitempty" json:"feedback,omitempty"`
	GradedAt    *time.Time          `bson:"graded_at,omitempty" json:"gradedAt,omitempty"`
	GradedBy    *primitive.ObjectID `bson:"graded_by,omitempty" json:"gradedBy,omitempty"`
}

// Graded reports whether the submission has a grade.
func (s Submission) Graded() bool { return s.Grade != nil }

// Assignment is coursework set by a teacher, with one submission per student.
type Assignment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	CourseID    primitive.ObjectID `bson:"course_id" json:"course"`
	TeacherID   primitive.ObjectID `bson:"teacher_id" json:"teacher"`
	DueDate     time.Time          `bson:"due_date" json:"dueDate"`
	Points      float64            `bson:"points" json:"points"`
	Attachments []FileMeta         `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Submissions []Submission       `bson:"submissions" json:"submissions"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// PointsPossible returns the assignment's point value, falling back to
// DefaultPoints when unset.
func (a Assignment) PointsPossible() float64 {
	if a.Points > 0 {
		return a.Points
	}
	return DefaultPoints
}

// SubmissionFor returns the submission made by studentID, if any.
func (a Assignment) SubmissionFor(studentID primitive.ObjectID) (Submission, bool) {
	for _, s := range a.Submissions {
		if s.StudentID == studentID {
			return s, true
		}
	}
	return Submission{}, false
}

// SubmissionByID returns the submission with the given id, if any.
func (a Assignment) SubmissionByID(id primitive.ObjectID) (Submission, bool) {
	for _, s := range a.Submissions {
		if s.ID == id {
			return s, true
		}
	}
	return Submission{}, false
}

// ActivityDate picks the most meaningful timestamp for a submission:
// gradedAt, then submittedAt, then the assignment's own timestamps.
func (a Assignment) ActivityDate(s Submission) time.Time {
	switch {
	case s.GradedAt != nil && !s.GradedAt.IsZero():
		return *s.GradedAt
	case !s.SubmittedAt.IsZero():
		return s.SubmittedAt
	case !a.UpdatedAt.IsZero():
		return a.UpdatedAt
	default:
		return a.CreatedAt
	}
}
