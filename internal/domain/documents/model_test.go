package documents

import (
	"testing"

	"github.com/google/uuid"
)

func TestUpload_Normalize(t *testing.T) {
	tests := []struct {
		name, fileName, contentType string
		wantName, wantType          string
	}{
		{"params stripped", "scan.pdf", "application/pdf; charset=binary", "scan.pdf", "application/pdf"},
		{"octet-stream by extension", "card.PNG", "application/octet-stream", "card.PNG", "image/png"},
		{"missing type by extension", "report.pdf", "", "report.pdf", "application/pdf"},
		{"windows path", `C:\Users\me\id.png`, "image/png", "id.png", "image/png"},
		{"unix path", "../../etc/passwd", "text/plain", "passwd", "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Upload{FileName: tt.fileName, ContentType: tt.contentType}
			u.normalize()
			if u.FileName != tt.wantName || u.ContentType != tt.wantType {
				t.Errorf("got %q %q, want %q %q", u.FileName, u.ContentType, tt.wantName, tt.wantType)
			}
			if u.Title != tt.wantName {
				t.Errorf("expected title defaulted to file name, got %q", u.Title)
			}
		})
	}
}

func TestUpload_Validate(t *testing.T) {
	u := labUpload(uuid.New())
	u.normalize()
	if errs := u.Validate(); len(errs) > 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	u = Upload{FileName: "malware.exe", ContentType: "application/x-msdownload", Category: "selfies"}
	u.normalize()
	errs := u.Validate()
	for _, field := range []string{"patient_id", "category", "file"} {
		if !errs.Has(field) {
			t.Errorf("expected error for %s, got %v", field, errs)
		}
	}

	u = Upload{PatientID: uuid.New()}
	u.normalize()
	if errs := u.Validate(); !errs.Has("file") || !errs.Has("category") {
		t.Errorf("expected file and category required, got %v", errs)
	}
}
