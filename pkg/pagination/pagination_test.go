package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	return e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(newContext("/?limit=50&offset=10"))
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := FromContext(newContext("/?limit=500&offset=-3"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected negative offset clamped to 0, got %d", p.Offset)
	}
}

func TestFromContext_PageNumbers(t *testing.T) {
	p := FromContext(newContext("/?page=3&page_size=25"))
	if p.Limit != 25 || p.Offset != 50 {
		t.Errorf("expected 25/50, got %d/%d", p.Limit, p.Offset)
	}
}

func TestNormalize(t *testing.T) {
	page, size := Normalize(0, 0)
	if page != 1 || size != DefaultPageSize {
		t.Errorf("expected 1/%d, got %d/%d", DefaultPageSize, page, size)
	}
	_, size = Normalize(2, 1000)
	if size != MaxLimit {
		t.Errorf("expected size capped at %d, got %d", MaxLimit, size)
	}
}

func TestNewResponse(t *testing.T) {
	r := NewResponse([]string{"a"}, 25, 10, 10)
	if !r.HasMore {
		t.Error("expected HasMore when offset+limit < total")
	}
	r = NewResponse([]string{"a"}, 20, 10, 10)
	if r.HasMore {
		t.Error("expected no more results on the last page")
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct{ total, size, want int }{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
	}
	for _, c := range cases {
		if got := TotalPages(c.total, c.size); got != c.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", c.total, c.size, got, c.want)
		}
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	if got := Slice(items, 2, 2); len(got) != 2 || got[0] != 3 {
		t.Errorf("unexpected page 2: %v", got)
	}
	if got := Slice(items, 3, 2); len(got) != 1 || got[0] != 5 {
		t.Errorf("unexpected page 3: %v", got)
	}
	if got := Slice(items, 4, 2); len(got) != 0 {
		t.Errorf("expected empty page, got %v", got)
	}
}
