package documents

import (
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/practicehub/practicehub/internal/platform/validate"
)

var Categories = []string{
	"lab-result", "imaging", "insurance-card", "identification",
	"consent-form", "referral", "clinical-note", "other",
}

var contentTypes = map[string]bool{
	"application/pdf":    true,
	"image/jpeg":         true,
	"image/png":          true,
	"image/tiff":         true,
	"text/plain":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// Document is the metadata row for an uploaded file. The bytes live in the
// blob store under StorageKey.
type Document struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   uuid.UUID  `json:"patient_id"`
	Category    string     `json:"category"`
	Title       string     `json:"title"`
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	SHA256      string     `json:"sha256"`
	StorageKey  string     `json:"-"`
	UploadedBy  *uuid.UUID `json:"uploaded_by,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Upload describes a file being added to a patient's chart.
type Upload struct {
	PatientID   uuid.UUID
	Category    string
	Title       string
	FileName    string
	ContentType string
	Notes       string
	UploadedBy  *uuid.UUID
}

// normalize cleans the file name and resolves the content type, falling
// back to the extension when the client sent none or a generic one.
func (u *Upload) normalize() {
	u.Category = strings.TrimSpace(u.Category)
	u.Notes = strings.TrimSpace(u.Notes)
	u.FileName = filepath.Base(strings.ReplaceAll(strings.TrimSpace(u.FileName), "\\", "/"))
	if u.FileName == "." || u.FileName == "/" {
		u.FileName = ""
	}
	u.Title = strings.TrimSpace(u.Title)
	if u.Title == "" {
		u.Title = u.FileName
	}
	ct := ""
	if mt, _, err := mime.ParseMediaType(u.ContentType); err == nil {
		ct = mt
	}
	if ct == "" || ct == "application/octet-stream" {
		if byExt, _, err := mime.ParseMediaType(mime.TypeByExtension(strings.ToLower(filepath.Ext(u.FileName)))); err == nil {
			ct = byExt
		}
	}
	u.ContentType = ct
}

func (u *Upload) Validate() validate.Errors {
	errs := validate.Errors{}
	if u.PatientID == uuid.Nil {
		errs.Add("patient_id", "Patient is required")
	}
	validate.Required(errs, "file", u.FileName, "File")
	if validate.Required(errs, "category", u.Category, "Category") {
		validate.OneOf(errs, "category", u.Category, Categories...)
	}
	if u.FileName != "" && !contentTypes[u.ContentType] {
		errs.Add("file", "File type is not allowed; upload a PDF, image, text or Word document")
	}
	return errs
}
