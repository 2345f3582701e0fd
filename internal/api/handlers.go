package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"countrydash/internal/dashboard"
	"countrydash/internal/models"
	"countrydash/internal/render"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// Options are the presentation settings of the handler.
type Options struct {
	ChartWidth  int
	ChartHeight int
}

// Handler owns the single dashboard session. Events are applied one at a
// time under mu, each one recomputing the outcome from scratch.
type Handler struct {
	mu       sync.Mutex
	pipeline *dashboard.Pipeline
	state    dashboard.State
	outcome  dashboard.Outcome

	opts    Options
	metrics *Metrics
}

func NewHandler(p *dashboard.Pipeline, opts Options, m *Metrics) *Handler {
	h := &Handler{pipeline: p, opts: opts, metrics: m}
	h.state, h.outcome, _ = p.Run(dashboard.State{})
	return h
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.GetPage)
	e.POST("/upload", h.PostUploadForm)
	e.POST("/select", h.PostSelectForm)
	e.POST("/reset", h.PostResetForm)
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if h.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(h.metrics.Handler()))
	}

	api := e.Group("/api")
	api.GET("/view", h.GetView)
	api.GET("/ranking", h.GetRanking)
	api.POST("/upload", h.PostUpload)
	api.POST("/select", h.PostSelect)
	api.POST("/reset", h.PostReset)
	api.GET("/chart.png", h.GetChart("png"))
	api.GET("/chart.svg", h.GetChart("svg"))
	api.GET("/table.xlsx", h.GetTableXLSX)
}

// --- EVENTS ---

// apply runs ev through the pipeline and keeps the result. Errors leave the
// session untouched.
func (h *Handler) apply(ev dashboard.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	t0 := time.Now()
	st, out, err := h.pipeline.Handle(h.state, ev)
	if err != nil {
		if h.metrics != nil {
			h.metrics.observe(ev.Kind(), "failed", time.Since(t0).Seconds())
		}
		return err
	}
	h.state, h.outcome = st, out
	if h.metrics != nil {
		h.metrics.observe(ev.Kind(), string(out.Status), time.Since(t0).Seconds())
	}
	return nil
}

// uploadEvent reads the multipart "file" field. A request without a file is
// a ClearEvent: the dashboard goes back to asking for input.
func uploadEvent(c echo.Context) (dashboard.Event, error) {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return dashboard.ClearEvent{}, nil
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	return dashboard.UploadEvent{Name: fh.Filename, Data: data, Category: c.FormValue("category")}, nil
}

// eventError maps pipeline failures to HTTP errors.
func eventError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	log.Warn().Err(err).Msg("event rejected")
	return echo.NewHTTPError(http.StatusBadRequest, err.Error()).SetInternal(err)
}

func (h *Handler) handleUpload(c echo.Context) error {
	ev, err := uploadEvent(c)
	if err != nil {
		return eventError(err)
	}
	if err := h.apply(ev); err != nil {
		return eventError(err)
	}
	return nil
}

func (h *Handler) handleSelect(c echo.Context) error {
	var req models.SelectRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := h.apply(dashboard.SelectEvent{Category: req.Category}); err != nil {
		return eventError(err)
	}
	return nil
}

// --- HTML ---

func (h *Handler) GetPage(c echo.Context) error {
	h.mu.Lock()
	page := render.BuildPage(h.outcome, render.PageOptions{
		FileName:    h.fileName(),
		ChartWidth:  h.opts.ChartWidth,
		ChartHeight: h.opts.ChartHeight,
	})
	h.mu.Unlock()
	return c.Render(http.StatusOK, render.PageTemplate, page)
}

func (h *Handler) PostUploadForm(c echo.Context) error {
	if err := h.handleUpload(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) PostSelectForm(c echo.Context) error {
	if err := h.handleSelect(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) PostResetForm(c echo.Context) error {
	if err := h.apply(dashboard.ClearEvent{}); err != nil {
		return eventError(err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// --- JSON ---

func (h *Handler) GetView(c echo.Context) error {
	return c.JSON(http.StatusOK, h.view())
}

func (h *Handler) PostUpload(c echo.Context) error {
	if err := h.handleUpload(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.view())
}

func (h *Handler) PostSelect(c echo.Context) error {
	if err := h.handleSelect(c); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.view())
}

func (h *Handler) PostReset(c echo.Context) error {
	if err := h.apply(dashboard.ClearEvent{}); err != nil {
		return eventError(err)
	}
	return c.JSON(http.StatusOK, h.view())
}

func getPaginationParams(c echo.Context, defaultLimit int) (int, int) {
	limit, err := strconv.Atoi(c.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	offset, err := strconv.Atoi(c.QueryParam("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GetRanking pages through the current table rows.
func (h *Handler) GetRanking(c echo.Context) error {
	h.mu.Lock()
	out := h.outcome
	h.mu.Unlock()

	if out.Status != dashboard.StatusReady {
		return c.JSON(http.StatusConflict, models.ErrorResponse{Error: out.Message})
	}

	rows := tableView(render.RenderTable(out.Ranking, out.Selected)).Rows
	total := len(rows)
	limit, offset := getPaginationParams(c, total)

	if offset >= total {
		rows = []models.TableRow{}
	} else {
		end := offset + limit
		if end > total {
			end = total
		}
		rows = rows[offset:end]
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"category": out.Selected,
		"data":     rows,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// --- EXPORTS ---

// GetChart serves the current chart as an image.
func (h *Handler) GetChart(format string) echo.HandlerFunc {
	return func(c echo.Context) error {
		chart, err := h.readyChart()
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := chart.WriteImage(&buf, format); err != nil {
			if errors.Is(err, render.ErrEmptyChart) {
				return echo.NewHTTPError(http.StatusConflict, err.Error())
			}
			return err
		}
		return c.Blob(http.StatusOK, render.ImageFormats[format], buf.Bytes())
	}
}

func (h *Handler) GetTableXLSX(c echo.Context) error {
	h.mu.Lock()
	out := h.outcome
	h.mu.Unlock()

	if out.Status != dashboard.StatusReady {
		return echo.NewHTTPError(http.StatusConflict, out.Message)
	}
	var buf bytes.Buffer
	if err := render.RenderTable(out.Ranking, out.Selected).WriteXLSX(&buf); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", "top_"+out.Selected+".xlsx"))
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// --- HELPERS ---

func (h *Handler) readyChart() (render.Chart, error) {
	h.mu.Lock()
	out := h.outcome
	h.mu.Unlock()

	if out.Status != dashboard.StatusReady {
		return render.Chart{}, echo.NewHTTPError(http.StatusConflict, out.Message)
	}
	return render.RenderChart(out.Ranking, out.Selected, h.opts.ChartWidth, h.opts.ChartHeight), nil
}

// fileName must be called with mu held.
func (h *Handler) fileName() string {
	if h.state.Upload == nil {
		return ""
	}
	return h.state.Upload.Name
}

func (h *Handler) view() models.ViewResponse {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := h.outcome
	resp := models.ViewResponse{
		Status:     string(out.Status),
		Message:    out.Message,
		FileName:   h.fileName(),
		Categories: out.Categories,
		Selected:   out.Selected,
	}
	if resp.Categories == nil {
		resp.Categories = []string{}
	}
	if out.Status == dashboard.StatusReady {
		tv := tableView(render.RenderTable(out.Ranking, out.Selected))
		cv := chartView(render.RenderChart(out.Ranking, out.Selected, h.opts.ChartWidth, h.opts.ChartHeight))
		resp.Table, resp.Chart = &tv, &cv
	}
	return resp
}

func tableView(t render.Table) models.TableView {
	tv := models.TableView{Title: t.Title, Columns: t.Header(), Rows: make([]models.TableRow, len(t.Rows))}
	for i, r := range t.Rows {
		tv.Rows[i] = models.TableRow{Rank: r.Rank, Country: r.Country, Value: r.Value, Display: r.Display}
	}
	return tv
}

func chartView(ch render.Chart) models.ChartView {
	cv := models.ChartView{
		Title: ch.Title, XLabel: ch.XLabel, YLabel: ch.YLabel,
		Width: ch.Width, Height: ch.Height,
		Bars: make([]models.ChartBar, len(ch.Bars)),
	}
	for i, b := range ch.Bars {
		cv.Bars[i] = models.ChartBar{Country: b.Country, Value: b.Value, Label: b.Label, Tooltip: b.Tooltip, Color: b.Fill()}
	}
	return cv
}
