package engine

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/drummonds/pdf2png/config"
	"github.com/drummonds/pdf2png/engine/pdfrenderer"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// ServerHandler will inject the variables needed into routes
type ServerHandler struct {
	Echo         *echo.Echo
	ServerConfig config.ServerConfig
	Renderer     pdfrenderer.Renderer
}

// JobResponse describes one conversion job and its pages in page order
type JobResponse struct {
	ID    string   `json:"id"`
	Pages []string `json:"pages"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

var pageFilePattern = regexp.MustCompile(`^output_page_([0-9]+)\.png$`)

// RegisterRoutes adds all of the API routes to the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo
	e.GET("/api/health", serverHandler.HealthCheck)
	e.GET("/api/about", serverHandler.GetAboutInfo)
	e.GET("/api/convert", serverHandler.ListJobs)
	e.POST("/api/convert", serverHandler.ConvertDocument)
	e.GET("/api/convert/:id", serverHandler.GetJob)
	e.GET("/api/convert/:id/:page", serverHandler.GetJobPage)
	e.DELETE("/api/convert/:id", serverHandler.DeleteJob)
}

func sendErrorResponse(c echo.Context, message string, statusCode int) error {
	return c.JSON(statusCode, map[string]string{
		"error": message,
	})
}

// HealthCheck reports that the service is up
// @Summary Health check
// @Description Check that the conversion service is running
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse "Service is healthy"
// @Router /health [get]
func (serverHandler *ServerHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// GetAboutInfo returns the rendering and storage settings of the service
// @Summary Get service information
// @Description Renderer, DPI, output folder and retention of the conversion service
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{} "Service settings"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	aboutInfo := map[string]interface{}{
		"renderer":         serverHandler.ServerConfig.Renderer,
		"dpi":              serverHandler.ServerConfig.DPI,
		"outputPath":       serverHandler.ServerConfig.OutputPath,
		"retentionMinutes": serverHandler.ServerConfig.RetentionMinutes,
		"maxUploadMB":      serverHandler.ServerConfig.MaxUploadMB,
	}
	return c.JSON(http.StatusOK, aboutInfo)
}

// ConvertDocument accepts a multipart upload in the "pdf" field and renders every page into a new job folder
// @Summary Convert a PDF
// @Description Upload a PDF and render every page to output_page_<N>.png in a new job
// @Tags Conversion
// @Accept multipart/form-data
// @Produce json
// @Param pdf formData file true "PDF document to convert"
// @Success 200 {object} JobResponse "Job id and pages in page order"
// @Failure 400 {object} map[string]interface{} "No PDF file provided"
// @Failure 413 {object} map[string]interface{} "Upload larger than MAX_UPLOAD_MB"
// @Failure 422 {object} map[string]interface{} "PDF could not be rendered"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /convert [post]
func (serverHandler *ServerHandler) ConvertDocument(c echo.Context) error {
	file, fileHeader, err := c.Request().FormFile("pdf")
	if err != nil {
		return sendErrorResponse(c, "No PDF file provided", http.StatusBadRequest)
	}
	defer file.Close()

	Logger.Info("Processing PDF to image conversion for file", "fileName", fileHeader.Filename)

	tempFile, err := os.CreateTemp("", "pdf2png-*.pdf")
	if err != nil {
		Logger.Error("Unable to create temp file for upload", "error", err)
		return sendErrorResponse(c, "Failed to store PDF file", http.StatusInternalServerError)
	}
	defer os.Remove(tempFile.Name())

	_, err = io.Copy(tempFile, file)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		Logger.Error("Unable to write uploaded file", "path", tempFile.Name(), "error", err)
		return sendErrorResponse(c, "Failed to store PDF file", http.StatusInternalServerError)
	}

	jobID := ulid.Make()
	jobDir := filepath.Join(serverHandler.ServerConfig.OutputPath, jobID.String())
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		Logger.Error("Unable to create job directory", "dir", jobDir, "error", err)
		return sendErrorResponse(c, "Failed to create job directory", http.StatusInternalServerError)
	}

	converter := Converter{Renderer: serverHandler.Renderer, OutputDir: jobDir}
	paths, err := converter.Convert(tempFile.Name())
	if err != nil {
		Logger.Error("Image conversion error", "fileName", fileHeader.Filename, "job", jobID.String(), "error", err)
		os.RemoveAll(jobDir)
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return sendErrorResponse(c, "Image conversion failed: "+err.Error(), http.StatusInternalServerError)
		}
		return sendErrorResponse(c, "Image conversion failed: "+err.Error(), http.StatusUnprocessableEntity)
	}

	pages := make([]string, 0, len(paths))
	for _, path := range paths {
		pages = append(pages, filepath.Base(path))
	}
	Logger.Info("Conversion finished", "job", jobID.String(), "pages", len(pages))

	return c.JSON(http.StatusOK, JobResponse{ID: jobID.String(), Pages: pages})
}

// jobDirectory validates the :id parameter and returns the job folder.
// When ok is false the error response has already been sent and err is the result of sending it.
func (serverHandler *ServerHandler) jobDirectory(c echo.Context) (string, bool, error) {
	jobID, err := ulid.ParseStrict(c.Param("id"))
	if err != nil {
		return "", false, sendErrorResponse(c, "Invalid job id", http.StatusBadRequest)
	}
	jobDir := filepath.Join(serverHandler.ServerConfig.OutputPath, jobID.String())
	info, err := os.Stat(jobDir)
	if err != nil || !info.IsDir() {
		return "", false, sendErrorResponse(c, "Job not found", http.StatusNotFound)
	}
	return jobDir, true, nil
}

// ListJobs lists every conversion job still held by the service
// @Summary List conversion jobs
// @Description Retrieve every job under the output folder with its pages, oldest first
// @Tags Conversion
// @Produce json
// @Success 200 {array} JobResponse "List of jobs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /convert [get]
func (serverHandler *ServerHandler) ListJobs(c echo.Context) error {
	jobs, err := listJobs(serverHandler.ServerConfig.OutputPath)
	if err != nil {
		Logger.Error("Unable to read output directory", "dir", serverHandler.ServerConfig.OutputPath, "error", err)
		return sendErrorResponse(c, "Unable to list jobs", http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, jobs)
}

// listJobs returns the ULID named job folders under outputPath. ULIDs sort by creation time.
func listJobs(outputPath string) ([]JobResponse, error) {
	jobs := []JobResponse{}
	entries, err := os.ReadDir(outputPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return jobs, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := ulid.ParseStrict(entry.Name()); err != nil {
			continue
		}
		pages, err := listPages(filepath.Join(outputPath, entry.Name()))
		if err != nil {
			// swept or deleted while listing
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		jobs = append(jobs, JobResponse{ID: entry.Name(), Pages: pages})
	}
	return jobs, nil
}

// listPages returns the page files of a job folder ordered by page number
func listPages(jobDir string) ([]string, error) {
	entries, err := os.ReadDir(jobDir)
	if err != nil {
		return nil, err
	}

	type page struct {
		number int
		name   string
	}
	var found []page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pageFilePattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		found = append(found, page{number: number, name: entry.Name()})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].number < found[j].number })

	pages := make([]string, 0, len(found))
	for _, p := range found {
		pages = append(pages, p.name)
	}
	return pages, nil
}

// GetJob lists the pages of a conversion job
// @Summary Get a conversion job
// @Description Retrieve the pages of a conversion job in page order
// @Tags Conversion
// @Produce json
// @Param id path string true "Job ID (ULID)"
// @Success 200 {object} JobResponse "Job details"
// @Failure 400 {object} map[string]interface{} "Invalid job ID"
// @Failure 404 {object} map[string]interface{} "Job not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /convert/{id} [get]
func (serverHandler *ServerHandler) GetJob(c echo.Context) error {
	jobDir, ok, err := serverHandler.jobDirectory(c)
	if !ok {
		return err
	}
	pages, err := listPages(jobDir)
	if err != nil {
		Logger.Error("Unable to read job directory", "dir", jobDir, "error", err)
		return sendErrorResponse(c, "Unable to read job", http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, JobResponse{ID: filepath.Base(jobDir), Pages: pages})
}

// GetJobPage serves one rendered page of a conversion job as PNG
// @Summary Get a rendered page
// @Description Download output_page_<page>.png of a conversion job
// @Tags Conversion
// @Produce png
// @Param id path string true "Job ID (ULID)"
// @Param page path int true "Page number, starting at 1"
// @Success 200 {file} file "PNG image"
// @Failure 400 {object} map[string]interface{} "Invalid job ID or page number"
// @Failure 404 {object} map[string]interface{} "Job or page not found"
// @Router /convert/{id}/{page} [get]
func (serverHandler *ServerHandler) GetJobPage(c echo.Context) error {
	jobDir, ok, err := serverHandler.jobDirectory(c)
	if !ok {
		return err
	}
	pageNum, err := strconv.Atoi(c.Param("page"))
	if err != nil || pageNum < 1 {
		return sendErrorResponse(c, "Invalid page number", http.StatusBadRequest)
	}
	pagePath := filepath.Join(jobDir, PageFileName(pageNum))
	if _, err := os.Stat(pagePath); err != nil {
		return sendErrorResponse(c, "Page not found", http.StatusNotFound)
	}
	return c.File(pagePath)
}

// DeleteJob removes a conversion job and all of its pages
// @Summary Delete a conversion job
// @Description Remove a conversion job and all of its pages
// @Tags Conversion
// @Produce json
// @Param id path string true "Job ID (ULID)"
// @Success 200 {object} map[string]string "Deleted job ID"
// @Failure 400 {object} map[string]interface{} "Invalid job ID"
// @Failure 404 {object} map[string]interface{} "Job not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /convert/{id} [delete]
func (serverHandler *ServerHandler) DeleteJob(c echo.Context) error {
	jobDir, ok, err := serverHandler.jobDirectory(c)
	if !ok {
		return err
	}
	if err := os.RemoveAll(jobDir); err != nil {
		Logger.Error("Unable to delete job", "dir", jobDir, "error", err)
		return sendErrorResponse(c, "Unable to delete job", http.StatusInternalServerError)
	}
	Logger.Info("Deleted job", "job", filepath.Base(jobDir))
	return c.JSON(http.StatusOK, map[string]string{"id": filepath.Base(jobDir)})
}
