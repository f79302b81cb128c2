package inputval

import (
	"errors"
	"testing"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"  padded@example.com  ", true},

		{"", false},
		{"   ", false},
		{"user", false},
		{"user@", false},
		{"@example.com", false},
		{"user @example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := IsValidEmail(tt.email); got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

type slotInput struct {
	Day       string `json:"day" validate:"required,oneof=Monday Tuesday"`
	StartTime string `json:"startTime" validate:"required,hhmm"`
}

type sampleInput struct {
	Name     string      `json:"name" validate:"required,min=2,max=50,personname"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6"`
	CourseID string      `json:"courseId" validate:"omitempty,objectid"`
	Grade    float64     `json:"grade" validate:"gte=0"`
	Slots    []slotInput `json:"schedule" validate:"required,min=1,dive"`
}

func validSample() sampleInput {
	return sampleInput{
		Name:     "Alice Smith",
		Email:    "alice@x.edu",
		Password: "secret1",
		Grade:    10,
		Slots:    []slotInput{{Day: "Monday", StartTime: "09:30"}},
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(validSample()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	in := validSample()
	in.Email = "nope"
	in.Password = "123"

	err := Struct(in)
	var verr *Error
	if !errors.As(err, &verr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}

	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	if fields["email"] != "email must be a valid email address" {
		t.Errorf("email message = %q", fields["email"])
	}
	if fields["password"] != "password must be at least 6 characters" {
		t.Errorf("password message = %q", fields["password"])
	}
	if len(fields) != 2 {
		t.Errorf("expected 2 failing fields, got %v", fields)
	}
}

func TestStruct_CustomTags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*sampleInput)
		field  string
	}{
		{"digits in name", func(s *sampleInput) { s.Name = "R2D2" }, "name"},
		{"bad object id", func(s *sampleInput) { s.CourseID = "xyz" }, "courseId"},
		{"bad time", func(s *sampleInput) { s.Slots[0].StartTime = "25:00" }, "startTime"},
		{"bad day", func(s *sampleInput) { s.Slots[0].Day = "Funday" }, "day"},
		{"empty schedule", func(s *sampleInput) { s.Slots = []slotInput{} }, "schedule"},
		{"negative grade", func(s *sampleInput) { s.Grade = -1 }, "grade"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validSample()
			tt.mutate(&in)
			err := Struct(in)
			var verr *Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if verr.Fields[0].Field != tt.field {
				t.Errorf("failing field = %q, want %q", verr.Fields[0].Field, tt.field)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	if !IsValidObjectID("507f1f77bcf86cd799439011") {
		t.Error("expected valid id")
	}
	if IsValidObjectID("507f1f77") || IsValidObjectID("") {
		t.Error("expected invalid ids")
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"1234567890", true},
		{"+911234567890", true},
		{"+1-234-567-8900", true},
		{"(555) 123 4567", true},
		{"12345", false},
		{"12345abcde", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsValidPhone(tt.phone); got != tt.want {
			t.Errorf("IsValidPhone(%q) = %v, want %v", tt.phone, got, tt.want)
		}
	}
}
