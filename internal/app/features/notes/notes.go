package notes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	notestore "github.com/dalemusser/collegeportal/internal/app/store/notes"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/formutil"
	"github.com/dalemusser/collegeportal/internal/app/system/htmlsanitize"
	"github.com/dalemusser/collegeportal/internal/app/system/inputval"
	"github.com/dalemusser/collegeportal/internal/app/system/limits"
	"github.com/dalemusser/collegeportal/internal/app/system/normalize"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/collegeportal/internal/app/system/uploads"
	"github.com/dalemusser/collegeportal/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type courseRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Name string             `json:"name"`
	Code string             `json:"code"`
}

type noteView struct {
	models.Note
	Author *models.UserRef `json:"author"`
	Course *courseRef      `json:"course,omitempty"`
}

type createInput struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Subject     string `json:"subject" validate:"max=100"`
	Description string `json:"description" validate:"max=2000"`
	Course      string `json:"course" validate:"omitempty,objectid"`
	Tag         string `json:"tag" validate:"omitempty,oneof=Reference Important Exam Assignment"`
	Pages       int    `json:"pages" validate:"gte=0,lte=10000"`
}

// formInput reads the text fields of a multipart note upload.
func formInput(r *http.Request) (createInput, error) {
	in := createInput{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Subject:     strings.TrimSpace(r.FormValue("subject")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Course:      strings.TrimSpace(r.FormValue("course")),
		Tag:         strings.TrimSpace(r.FormValue("tag")),
	}
	if p := strings.TrimSpace(r.FormValue("pages")); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return in, errors.New("pages must be a whole number")
		}
		in.Pages = n
	}
	return in, inputval.Struct(in)
}

func (h *Handler) populate(ctx context.Context, list []models.Note) ([]noteView, error) {
	authorIDs := make([]primitive.ObjectID, 0, len(list))
	var courseIDs []primitive.ObjectID
	for _, n := range list {
		authorIDs = append(authorIDs, n.AuthorID)
		if n.CourseID != nil {
			courseIDs = append(courseIDs, *n.CourseID)
		}
	}
	authors, err := h.users.Refs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	courses, err := h.courses.ByIDs(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}

	out := make([]noteView, 0, len(list))
	for _, n := range list {
		v := noteView{Note: n}
		if a, ok := authors[n.AuthorID]; ok {
			v.Author = &a
		}
		if n.CourseID != nil {
			if c, ok := courses[*n.CourseID]; ok {
				v.Course = &courseRef{ID: c.ID, Name: c.Name, Code: c.Code}
			}
		}
		out = append(out, v)
	}
	return out, nil
}

// ServeList lists notes grouped by course and subject.
// GET /api/v1/notes?subject=&courseId=
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	courseID, err := formutil.OptionalID(normalize.FilterID(query.Get(r, "courseId")))
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid course id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list notes")
	defer cancel()

	list, err := h.notes.List(ctx, notestore.ListFilter{
		Subject:  normalize.QueryParam(query.Get(r, "subject")),
		CourseID: courseID,
	})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "list notes failed", err, "")
		return
	}
	out, err := h.populate(ctx, list)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate notes failed", err, "")
		return
	}
	uierrors.List(w, out, len(out), nil)
}

// ServeNote returns one note.
// GET /api/v1/notes/{id}
func (h *Handler) ServeNote(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ParamID(r, "id")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid note id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get note")
	defer cancel()

	n, err := h.notes.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Note not found with id of "+id.Hex())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load note failed", err, "")
		return
	}
	out, err := h.populate(ctx, []models.Note{*n})
	if err != nil {
		h.ErrLog.LogServerError(w, r, "populate note failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, out[0])
}

// ServeDownload counts a download and returns where the file lives.
// GET /api/v1/notes/{id}/download
func (h *Handler) ServeDownload(w http.ResponseWriter, r *http.Request) {
	id, err := formutil.ParamID(r, "id")
	if err != nil {
		uierrors.RenderBadRequest(w, "Invalid note id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "download note")
	defer cancel()

	n, err := h.notes.GetByID(ctx, id)
	if errors.Is(err, mongo.ErrNoDocuments) {
		uierrors.RenderNotFound(w, "Note not found with id of "+id.Hex())
		return
	}
	if err != nil {
		h.ErrLog.LogServerError(w, r, "load note failed", err, "")
		return
	}
	if n.FileURL == "" {
		uierrors.RenderNotFound(w, "File not available for this note")
		return
	}
	if n, err = h.notes.CountDownload(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, "Note not found with id of "+id.Hex())
			return
		}
		h.ErrLog.LogServerError(w, r, "count download failed", err, "")
		return
	}
	uierrors.JSON(w, http.StatusOK, map[string]any{
		"fileUrl":       n.FileURL,
		"fileName":      n.FileName,
		"downloadCount": n.DownloadCount,
	})
}

// HandleCreate stores an uploaded note. A linked course supplies the
// course name and, when the subject is blank, the subject.
// POST /api/v1/notes (multipart, field "file")
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	uid, _ := authz.UserID(r)

	file, hdr, err := uploads.FormFile(w, r, "file", limits.MaxUploadSize)
	switch {
	case errors.Is(err, uploads.ErrNoFile):
		uierrors.RenderBadRequest(w, "Please upload a file for the note")
		return
	case errors.Is(err, uploads.ErrTooLarge):
		uierrors.RenderBadRequest(w, fmt.Sprintf("File is larger than %d MB", limits.MaxUploadSize>>20))
		return
	case err != nil:
		uierrors.RenderBadRequest(w, "Unable to read upload")
		return
	}
	defer file.Close()

	in, err := formInput(r)
	if err != nil {
		uierrors.RenderBadRequest(w, formutil.Message(err))
		return
	}
	if !limits.AllowedUploadExt[uploads.Ext(hdr.Filename)] {
		uierrors.RenderBadRequest(w, "Only images, PDFs, Word documents and zip archives are allowed")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create note")
	defer cancel()

	n := models.Note{
		Title:       htmlsanitize.PlainText(in.Title),
		Subject:     htmlsanitize.PlainText(in.Subject),
		Description: htmlsanitize.PlainText(in.Description),
		AuthorID:    uid,
		Pages:       in.Pages,
		Tag:         in.Tag,
	}
	if in.Course != "" {
		courseID, _ := primitive.ObjectIDFromHex(in.Course)
		c, err := h.courses.GetByID(ctx, courseID)
		if errors.Is(err, mongo.ErrNoDocuments) {
			uierrors.RenderNotFound(w, "Selected course not found")
			return
		}
		if err != nil {
			h.ErrLog.LogServerError(w, r, "load course failed", err, "")
			return
		}
		n.CourseID = &c.ID
		n.CourseName = c.Name
		if n.Subject == "" {
			n.Subject = c.Name
		}
	}
	if n.Subject == "" {
		uierrors.RenderBadRequest(w, "subject is required")
		return
	}

	saved, err := h.Uploads.Save("notes", hdr.Filename, file, hdr.Header.Get("Content-Type"))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "store note file failed", err, "")
		return
	}
	n.FileURL = saved.URL
	n.FileName = saved.FileName
	n.FileType = saved.ContentType
	n.FileSize = saved.Size

	created, err := h.notes.Create(ctx, n)
	if err != nil {
		if derr := h.Uploads.Delete(saved.Path); derr != nil {
			h.Log.Warn("remove orphaned upload failed", zap.String("path", saved.Path), zap.Error(derr))
		}
		h.ErrLog.LogServerError(w, r, "create note failed", err, "")
		return
	}
	h.Log.Info("note created", zap.String("note_id", created.ID.Hex()), zap.String("subject", created.Subject))
	uierrors.JSON(w, http.StatusCreated, created)
}
