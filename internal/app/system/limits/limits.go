// Package limits holds request and import size limits.
package limits

const (
	// MaxUploadSize bounds multipart uploads (assignment files, notes,
	// course resources).
	MaxUploadSize = 10 << 20 // 10 MB

	// MaxWorkbookSize bounds results spreadsheets.
	MaxWorkbookSize = 10 << 20 // 10 MB

	// MaxJSONBody bounds ordinary JSON request bodies.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxImportRows is the default cap on data rows read from one worksheet.
	MaxImportRows = 5000
)

// AllowedUploadExt lists the file extensions accepted for general uploads.
var AllowedUploadExt = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".zip":  true,
}

// AllowedWorkbookExt lists the spreadsheet extensions accepted by the
// results importer.
var AllowedWorkbookExt = map[string]bool{
	".xlsx": true,
	".xls":  true,
}
