package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func multipartRequest(t *testing.T, fields map[string]string, fileName, contentType, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if fileName != "" {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		hdr.Set("Content-Type", contentType)
		part, err := w.CreatePart(hdr)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	w.Close()
	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func withID(c echo.Context, id string) echo.Context {
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}

func TestHandler_UploadAndDownload(t *testing.T) {
	svc, _, _ := newTestService(0)
	h := NewHandler(svc)
	e := echo.New()
	patient := uuid.New()

	req := multipartRequest(t, map[string]string{"category": "imaging", "title": "Knee X-ray"}, "knee.png", "image/png", "PNGDATA")
	rec := httptest.NewRecorder()
	if err := h.Upload(withID(e.NewContext(req, rec), patient.String())); err != nil {
		t.Fatalf("upload: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var d Document
	json.Unmarshal(rec.Body.Bytes(), &d)
	if d.Title != "Knee X-ray" || d.ContentType != "image/png" || d.SizeBytes != 7 {
		t.Errorf("unexpected document %+v", d)
	}
	if strings.Contains(rec.Body.String(), "storage") {
		t.Error("storage key must not be exposed")
	}

	rec = httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h.Download(withID(c, d.ID.String())); err != nil {
		t.Fatalf("download: %v", err)
	}
	if rec.Body.String() != "PNGDATA" {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderContentType) != "image/png" {
		t.Errorf("unexpected content type %q", rec.Header().Get(echo.HeaderContentType))
	}
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != "attachment; filename=knee.png" {
		t.Errorf("unexpected disposition %q", cd)
	}
}

func TestHandler_UploadErrors(t *testing.T) {
	svc, _, _ := newTestService(4)
	h := NewHandler(svc)
	e := echo.New()
	patient := uuid.New().String()

	req := multipartRequest(t, map[string]string{"category": "imaging"}, "", "", "")
	if code := httpCode(t, h.Upload(withID(e.NewContext(req, httptest.NewRecorder()), patient))); code != http.StatusBadRequest {
		t.Errorf("missing file: expected 400, got %d", code)
	}

	req = multipartRequest(t, map[string]string{"category": "imaging"}, "big.png", "image/png", "0123456789")
	if code := httpCode(t, h.Upload(withID(e.NewContext(req, httptest.NewRecorder()), patient))); code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized: expected 413, got %d", code)
	}

	req = multipartRequest(t, map[string]string{"category": "imaging"}, "run.sh", "application/x-sh", "ls")
	if code := httpCode(t, h.Upload(withID(e.NewContext(req, httptest.NewRecorder()), patient))); code != http.StatusUnprocessableEntity {
		t.Errorf("bad type: expected 422, got %d", code)
	}
}

func TestHandler_ListAndDelete(t *testing.T) {
	svc, _, _ := newTestService(0)
	h := NewHandler(svc)
	e := echo.New()
	patient := uuid.New()
	d, _ := svc.Upload(context.Background(), labUpload(patient), strings.NewReader("pdf"))

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?category=lab-result", nil), rec)
	if err := h.List(withID(c, patient.String())); err != nil {
		t.Fatalf("list: %v", err)
	}
	var page struct {
		Total int `json:"total"`
	}
	json.Unmarshal(rec.Body.Bytes(), &page)
	if page.Total != 1 {
		t.Errorf("expected 1 document, got %d", page.Total)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	if err := h.Delete(withID(c, d.ID.String())); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if code := httpCode(t, h.Get(withID(c, d.ID.String()))); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}
