package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"countrydash/internal/dashboard"
	"countrydash/internal/models"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mbtiCSV = `Country,INFJ,ENFP
Albania,0.021,0.081
Brazil,0.019,0.123
Chile,0.024,0.097
`

func newTestServer(t *testing.T) (*echo.Echo, *Handler) {
	t.Helper()
	h := NewHandler(dashboard.NewPipeline(10), Options{ChartWidth: 700, ChartHeight: 400}, NewMetrics())
	return NewServer(h, 1<<20), h
}

func multipartBody(t *testing.T, name, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if name != "" {
		fw, err := w.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func do(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func getView(t *testing.T, e *echo.Echo) models.ViewResponse {
	t.Helper()
	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/view", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var v models.ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func upload(t *testing.T, e *echo.Echo, path, name, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, name, content, nil)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, ct)
	return do(e, req)
}

func TestInitialViewAsksForInput(t *testing.T) {
	e, _ := newTestServer(t)

	v := getView(t, e)
	assert.Equal(t, "no_input", v.Status)
	assert.NotEmpty(t, v.Message)
	assert.Empty(t, v.Categories)
	assert.Nil(t, v.Table)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `class="notice info"`)
}

func TestUploadAndSelect(t *testing.T) {
	e, _ := newTestServer(t)

	rec := upload(t, e, "/api/upload", "mbti.csv", mbtiCSV)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	v := getView(t, e)
	assert.Equal(t, "ready", v.Status)
	assert.Equal(t, "mbti.csv", v.FileName)
	assert.Equal(t, []string{"INFJ", "ENFP"}, v.Categories)
	assert.Equal(t, "INFJ", v.Selected)
	require.NotNil(t, v.Table)
	require.Len(t, v.Table.Rows, 3)
	assert.Equal(t, "Chile", v.Table.Rows[0].Country)
	assert.Equal(t, "0.02", v.Table.Rows[0].Display)
	require.NotNil(t, v.Chart)
	assert.Equal(t, "Chile: 0.02", v.Chart.Bars[0].Tooltip)

	// JSON body select
	req := httptest.NewRequest(http.MethodPost, "/api/select", strings.NewReader(`{"category":"ENFP"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = do(e, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	v = getView(t, e)
	assert.Equal(t, "ENFP", v.Selected)
	assert.Equal(t, "Brazil", v.Table.Rows[0].Country)
	assert.Equal(t, "0.12", v.Table.Rows[0].Display)

	// Form select redirects back to the page
	req = httptest.NewRequest(http.MethodPost, "/select", strings.NewReader("category=INFJ"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec = do(e, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "INFJ", getView(t, e).Selected)
}

func TestSelectUnknownCategory(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, upload(t, e, "/api/upload", "mbti.csv", mbtiCSV).Code)

	req := httptest.NewRequest(http.MethodPost, "/api/select", strings.NewReader(`{"category":"XXXX"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := do(e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INFJ", getView(t, e).Selected)
}

func TestUploadSchemaError(t *testing.T) {
	e, _ := newTestServer(t)

	rec := upload(t, e, "/upload", "bad.csv", "country,INFJ\nA,0.1\n")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	v := getView(t, e)
	assert.Equal(t, "schema_error", v.Status)
	assert.Contains(t, v.Message, "'Country'")
	assert.Nil(t, v.Table)

	page := do(e, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Contains(t, page.Body.String(), `class="notice error"`)
}

func TestUploadMalformedFile(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, upload(t, e, "/api/upload", "mbti.csv", mbtiCSV).Code)

	rec := upload(t, e, "/api/upload", "broken.csv", "Country,A\nX,1,2\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Previous upload is still active
	v := getView(t, e)
	assert.Equal(t, "ready", v.Status)
	assert.Equal(t, "mbti.csv", v.FileName)
}

func TestUploadWithoutFileClears(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, upload(t, e, "/api/upload", "mbti.csv", mbtiCSV).Code)

	rec := upload(t, e, "/api/upload", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no_input", getView(t, e).Status)
}

func TestRankingPagination(t *testing.T) {
	e, _ := newTestServer(t)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/ranking", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, http.StatusOK, upload(t, e, "/api/upload", "mbti.csv", mbtiCSV).Code)
	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/ranking?limit=1&offset=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Category string            `json:"category"`
		Data     []models.TableRow `json:"data"`
		Total    int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Albania", resp.Data[0].Country)
}

func TestExports(t *testing.T) {
	e, _ := newTestServer(t)

	for _, path := range []string{"/api/chart.png", "/api/chart.svg", "/api/table.xlsx"} {
		rec := do(e, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusConflict, rec.Code, path)
	}

	require.Equal(t, http.StatusOK, upload(t, e, "/api/upload", "mbti.csv", mbtiCSV).Code)

	rec := do(e, httptest.NewRequest(http.MethodGet, "/api/chart.png", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/chart.svg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<svg")

	rec = do(e, httptest.NewRequest(http.MethodGet, "/api/table.xlsx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "top_INFJ.xlsx")
}

func TestResetAndMetrics(t *testing.T) {
	e, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, upload(t, e, "/api/upload", "mbti.csv", mbtiCSV).Code)

	rec := do(e, httptest.NewRequest(http.MethodPost, "/reset", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "no_input", getView(t, e).Status)

	rec = do(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `countrydash_events_total{kind="upload"} 1`)
	assert.Contains(t, body, `countrydash_outcomes_total{status="no_input"} 1`)
	assert.Contains(t, body, "countrydash_render_duration_seconds_count 2")
}

func TestHealthz(t *testing.T) {
	e, _ := newTestServer(t)
	rec := do(e, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
