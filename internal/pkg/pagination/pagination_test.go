package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func queryFor(t *testing.T, rawQuery string) Query {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/points?"+rawQuery, nil)
	return FromContext(c)
}

func TestFromContextDefaults(t *testing.T) {
	q := queryFor(t, "")
	if q.Page != 1 || q.Size != DefaultSize {
		t.Errorf("q = %+v, want page=1 size=%d", q, DefaultSize)
	}
	if q.Offset() != 0 {
		t.Errorf("Offset = %d, want 0", q.Offset())
	}
}

func TestFromContextPerPageAlias(t *testing.T) {
	q := queryFor(t, "page=3&per_page=7")
	if q.Page != 3 || q.Size != 7 {
		t.Errorf("q = %+v, want page=3 size=7", q)
	}
	if q.Offset() != 14 {
		t.Errorf("Offset = %d, want 14", q.Offset())
	}
}

func TestFromContextSizeWinsOverAlias(t *testing.T) {
	q := queryFor(t, "size=5&per_page=40")
	if q.Size != 5 {
		t.Errorf("size = %d, want 5", q.Size)
	}
}

func TestFromContextClamps(t *testing.T) {
	q := queryFor(t, "page=-2&size=500")
	if q.Page != 1 {
		t.Errorf("page = %d, want 1", q.Page)
	}
	if q.Size != MaxSize {
		t.Errorf("size = %d, want %d", q.Size, MaxSize)
	}
	if q := queryFor(t, "page=abc&size=xyz"); q.Page != 1 || q.Size != DefaultSize {
		t.Errorf("garbage input q = %+v", q)
	}
}
