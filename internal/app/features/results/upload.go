package results

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	uierrors "github.com/dalemusser/collegeportal/internal/app/features/errors"
	"github.com/dalemusser/collegeportal/internal/app/system/authz"
	"github.com/dalemusser/collegeportal/internal/app/system/limits"
	"github.com/dalemusser/collegeportal/internal/app/system/metrics"
	"github.com/dalemusser/collegeportal/internal/app/system/sheetutil"
	"github.com/dalemusser/collegeportal/internal/app/system/timeouts"
	"github.com/dalemusser/collegeportal/internal/app/system/uploads"
	"go.uber.org/zap"
)

// HandleUpload imports a results workbook.
// POST /api/v1/results/upload (multipart field "file")
//
// Structural problems (no file, wrong type, unreadable workbook, missing
// columns) reject the request with 400. Otherwise the response is 201 with
// an ImportSummary, even when every row was skipped.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	role, _, uid, _ := authz.UserCtx(r)
	start := time.Now()

	file, hdr, err := uploads.FormFile(w, r, "file", limits.MaxWorkbookSize)
	switch {
	case errors.Is(err, uploads.ErrNoFile):
		uierrors.RenderBadRequest(w, "Please upload a spreadsheet file")
		return
	case errors.Is(err, uploads.ErrTooLarge):
		uierrors.RenderBadRequest(w, "Spreadsheet exceeds the maximum upload size")
		return
	case err != nil:
		h.ErrLog.LogBadRequest(w, r, "read results upload failed", err, "Unable to read the uploaded file")
		return
	}
	defer file.Close()
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	if !limits.AllowedWorkbookExt[uploads.Ext(hdr.Filename)] {
		uierrors.RenderBadRequest(w, "Only .xlsx or .xls spreadsheets are allowed")
		return
	}

	tmp, cleanup, err := uploads.Spool(file, "results-*"+uploads.Ext(hdr.Filename))
	if err != nil {
		h.ErrLog.LogServerError(w, r, "spool results upload failed", err, "Unable to process the uploaded file")
		return
	}
	defer cleanup()

	f, err := os.Open(tmp)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "open spooled upload failed", err, "Unable to process the uploaded file")
		return
	}
	sheet, err := sheetutil.ReadFirstSheet(f, h.MaxRows)
	f.Close()

	var tooMany *sheetutil.TooManyRowsError
	switch {
	case errors.Is(err, sheetutil.ErrNoWorksheet):
		metrics.ObserveImport("rejected", 0, 0, 0, time.Since(start))
		uierrors.RenderBadRequest(w, "The uploaded workbook has no worksheet")
		return
	case errors.As(err, &tooMany):
		metrics.ObserveImport("rejected", 0, 0, 0, time.Since(start))
		uierrors.RenderBadRequest(w, "The worksheet has too many rows; split it into smaller files")
		return
	case err != nil:
		metrics.ObserveImport("rejected", 0, 0, 0, time.Since(start))
		h.ErrLog.LogBadRequest(w, r, "parse results workbook failed", err, "Unable to read the spreadsheet; upload an .xlsx or .xls workbook")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "results import")
	defer cancel()

	sum, err := h.importer().Import(ctx, sheet, Uploader{ID: uid, Role: role})
	var missing *MissingColumnsError
	switch {
	case errors.As(err, &missing):
		metrics.ObserveImport("rejected", 0, 0, 0, time.Since(start))
		uierrors.RenderBadRequest(w, missing.Error())
		return
	case err != nil:
		metrics.ObserveImport("failed", sum.Created, sum.Updated, sum.Skipped, time.Since(start))
		h.ErrLog.LogServerError(w, r, "results import failed", err, "Unable to import results")
		return
	}

	metrics.ObserveImport("ok", sum.Created, sum.Updated, sum.Skipped, time.Since(start))
	h.Log.Info("results imported",
		zap.String("file", hdr.Filename),
		zap.String("uploader", uid.Hex()),
		zap.String("role", strings.ToLower(role)),
		zap.Int("processed", sum.Processed),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
	)
	uierrors.JSON(w, http.StatusCreated, sum)
}
