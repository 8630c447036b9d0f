package server

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/KaramelBytes/flowviz-cli/internal/analysis"
	"github.com/KaramelBytes/flowviz-cli/internal/chart"
	"github.com/KaramelBytes/flowviz-cli/internal/compare"
	"github.com/KaramelBytes/flowviz-cli/internal/dataset"
	"github.com/KaramelBytes/flowviz-cli/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login opens a session for valid credentials.
func (h *APIHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	// usernames from the config file are lower case
	s, err := h.sessions.Login(strings.ToLower(req.Username), req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": s.ID, "user": s.User})
}

// Logout ends the current session and drops its data.
func (h *APIHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(current(c).ID); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// UploadDataset replaces the session dataset with the uploaded file.
func (h *APIHandler) UploadDataset(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(formStatus(err), gin.H{"error": formError(err, "Missing file")})
		return
	}
	ds, err := h.readUpload(fh, c.PostForm("sheet"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s := current(c)
	s.Load(ds)
	c.JSON(http.StatusOK, gin.H{
		"name":    ds.Name,
		"rows":    ds.NumRows(),
		"columns": ds.Names(),
	})
}

// GetClassification returns the column partition used by the recommender
// and the strict partition offered to the custom chart builder.
func (h *APIHandler) GetClassification(c *gin.Context) {
	s := current(c)
	class, err := s.Classification()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ds, _ := s.Dataset()
	c.JSON(http.StatusOK, gin.H{
		"classification": class,
		"custom":         analysis.ClassifyStrict(ds),
		"chart_types":    chart.ChartTypes,
	})
}

// GetRecommendations returns the ordered chart specifications and the
// outcome of every rule.
func (h *APIHandler) GetRecommendations(c *gin.Context) {
	specs, outcomes, err := current(c).Recommendations()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	recs := make([]analysis.Recommendation, 0, len(specs))
	for _, sp := range specs {
		recs = append(recs, analysis.Recommendation{Kind: sp.Kind(), Spec: sp})
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": recs, "rules": outcomes})
}

// GetChart renders the recommended chart at :index, as JSON or, with
// ?format=html, as a standalone page.
func (h *APIHandler) GetChart(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chart index"})
		return
	}
	fig, err := current(c).Render(i)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.writeFigure(c, fig)
}

// CustomChart builds a user-defined chart.
func (h *APIHandler) CustomChart(c *gin.Context) {
	var req chart.CustomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	fig, err := current(c).Custom(req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	h.writeFigure(c, fig)
}

// Compare loads a current/previous pair and returns the summary.
func (h *APIHandler) Compare(c *gin.Context) {
	var prevFile *multipart.FileHeader
	curFile, err := c.FormFile("current")
	if err == nil {
		var prevErr error
		prevFile, prevErr = c.FormFile("previous")
		err = prevErr
	}
	if err != nil {
		c.JSON(formStatus(err), gin.H{"error": formError(err, "Both current and previous files are required")})
		return
	}
	cur, err := h.readUpload(curFile, "")
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": fmt.Sprintf("current: %v", err)})
		return
	}
	prev, err := h.readUpload(prevFile, "")
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": fmt.Sprintf("previous: %v", err)})
		return
	}
	s := current(c)
	s.SetComparison(cur, prev)
	cmp, err := s.Comparison()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, comparisonBody(cmp))
}

// CompareChart draws the totals of one shared column.
func (h *APIHandler) CompareChart(c *gin.Context) {
	cmp, err := current(c).Comparison()
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	col := c.Param("column")
	if !contains(cmp.Columns, col) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%q is not a shared numeric column", col)})
		return
	}
	fig := compare.Chart(cmp.Current, cmp.Previous, col)
	if c.Query("format") != "html" {
		c.JSON(http.StatusOK, gin.H{"figure": fig, "change_pct": compare.MetricChange(cmp.Current, cmp.Previous, col)})
		return
	}
	h.writeFigure(c, fig)
}

// Export downloads the dataset or the comparison summary as CSV or XLSX.
func (h *APIHandler) Export(c *gin.Context) {
	s := current(c)
	var ds *dataset.Dataset
	switch table := c.DefaultQuery("table", "dataset"); table {
	case "dataset":
		d, err := s.Dataset()
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		ds = d
	case "comparison":
		cmp, err := s.Comparison()
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}
		ds = cmp.Summary.Table()
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown table %q", table)})
		return
	}

	var buf bytes.Buffer
	var contentType, ext string
	switch format := c.DefaultQuery("format", "csv"); format {
	case "csv":
		if err := dataset.WriteCSV(&buf, ds); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		contentType, ext = "text/csv; charset=utf-8", ".csv"
	case "xlsx":
		if err := dataset.WriteXLSX(&buf, ds, ""); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		contentType, ext = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx"
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown format %q", format)})
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(ds.Name)+ext))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}

func (h *APIHandler) readUpload(fh *multipart.FileHeader, sheet string) (*dataset.Dataset, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	opt := h.readOpt
	if sheet != "" {
		opt.SheetName = sheet
	}
	ds, err := dataset.Read(f, fh.Filename, opt)
	if err != nil {
		log.Warn().Err(err).Str("file", fh.Filename).Msg("upload rejected")
		return nil, err
	}
	return ds, nil
}

func (h *APIHandler) writeFigure(c *gin.Context, fig *chart.Figure) {
	if c.Query("format") != "html" {
		c.JSON(http.StatusOK, fig)
		return
	}
	var buf bytes.Buffer
	if err := chart.WriteHTML(&buf, fig, chart.HTMLOptions{PlotlyURL: h.plotlyURL}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func comparisonBody(cmp session.Comparison) gin.H {
	return gin.H{
		"columns":            cmp.Columns,
		"summary":            cmp.Summary,
		"overall_change":     cmp.OverallChange,
		"average_difference": cmp.AverageDifference,
	}
}

// formStatus is 413 when the upload cap cut the body short, else 400.
func formStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func formError(err error, missing string) string {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Sprintf("Upload exceeds %d bytes", tooLarge.Limit)
	}
	return missing
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrNoDataset), errors.Is(err, session.ErrNoComparison):
		return http.StatusConflict
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrChartIndex):
		return http.StatusNotFound
	case errors.Is(err, dataset.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, chart.ErrUnknownColumn),
		errors.Is(err, chart.ErrUnknownChartType),
		errors.Is(err, chart.ErrNotNumeric),
		errors.Is(err, chart.ErrMissingSelection):
		return http.StatusBadRequest
	case errors.Is(err, chart.ErrUnsupportedSpec):
		return http.StatusInternalServerError
	}
	return http.StatusBadRequest
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func exportName(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	if name == "" {
		return "export"
	}
	return name
}
