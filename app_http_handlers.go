package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pdf-tagger/export"
	"pdf-tagger/extract"
	"pdf-tagger/internal/constants"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
	"pdf-tagger/render"
)

// maxUploadSize bounds uploaded PDFs.
const maxUploadSize = 64 << 20

// promptFiles maps the editable templates to their file names and defaults.
var promptFiles = map[string]struct {
	file     string
	fallback string
	target   **template.Template
}{
	"image_name_template":    {"image_name.tmpl", defaultImageNameTemplate, &imageNameTemplate},
	"table_name_template":    {"table_name.tmpl", defaultTableNameTemplate, &tableNameTemplate},
	"download_name_template": {"download_name.tmpl", defaultDownloadNameTemplate, &downloadNameTemplate},
	"alt_text_template":      {"alt_text_prompt.tmpl", defaultAltTextTemplate, &altTextTemplate},
}

// getPromptsHandler handles the GET /api/prompts endpoint
func getPromptsHandler(c *gin.Context) {
	templateMutex.RLock()
	defer templateMutex.RUnlock()

	out := gin.H{}
	for key, p := range promptFiles {
		content, err := os.ReadFile(filepath.Join(promptsDir, p.file))
		if err != nil {
			content = []byte(p.fallback)
		}
		out[key] = string(content)
	}
	c.JSON(http.StatusOK, out)
}

// updatePromptsHandler handles the POST /api/prompts endpoint
func updatePromptsHandler(c *gin.Context) {
	var req map[string]string
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	// Parse everything before touching any template
	parsed := make(map[string]*template.Template, len(req))
	for key, content := range req {
		if _, ok := promptFiles[key]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown template %q", key)})
			return
		}
		if content == "" {
			continue
		}
		t, err := template.New(key).Funcs(sprig.FuncMap()).Parse(content)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s: %v", key, err)})
			return
		}
		parsed[key] = t
	}

	templateMutex.Lock()
	defer templateMutex.Unlock()
	for key, t := range parsed {
		p := promptFiles[key]
		*p.target = t
		if err := os.WriteFile(filepath.Join(promptsDir, p.file), []byte(req[key]), 0644); err != nil {
			log.Errorf("Failed to write %s: %v", p.file, err)
		}
	}

	c.Status(http.StatusOK)
}

// workspace looks up the :id workspace and answers 404 when it is gone.
func (app *App) workspace(c *gin.Context) (*Workspace, bool) {
	ws, ok := app.Workspaces.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return nil, false
	}
	return ws, true
}

// readUploadedPDF reads the "pdf" form file and checks that it is one.
func readUploadedPDF(c *gin.Context) ([]byte, string, bool) {
	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing pdf file"})
		return nil, "", false
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "PDF is too large"})
		return nil, "", false
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return nil, "", false
	}
	if mtype := mimetype.Detect(data); !mtype.Is("application/pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Expected a PDF, got %s", mtype.String())})
		return nil, "", false
	}
	return data, fileHeader.Filename, true
}

// uploadDocumentHandler handles the POST /api/documents endpoint
func (app *App) uploadDocumentHandler(c *gin.Context) {
	data, fileName, ok := readUploadedPDF(c)
	if !ok {
		return
	}
	name := c.PostForm("name")
	if name == "" {
		name = fileName
	}

	ws, err := app.Workspaces.Create(name, fileName, data)
	if err != nil {
		log.WithError(err).Warn("Rejected uploaded PDF")
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not open PDF: %v", err)})
		return
	}
	if _, err := enqueueExtraction(ws); err != nil {
		log.WithError(err).WithField("workspace_id", ws.ID).Warn("Extraction not queued")
	}

	c.JSON(http.StatusCreated, ws.Summary(app.Scale))
}

// reloadDocumentHandler handles the PUT /api/documents/:id/pdf endpoint
func (app *App) reloadDocumentHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	data, fileName, ok := readUploadedPDF(c)
	if !ok {
		return
	}

	previousJob := ws.currentJob()
	if _, err := ws.Reload(fileName, data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not open PDF: %v", err)})
		return
	}
	cancelJob(previousJob)
	app.Scheduler.CancelRender(ws.Surface.ID())
	if _, err := enqueueExtraction(ws); err != nil {
		log.WithError(err).WithField("workspace_id", ws.ID).Warn("Extraction not queued")
	}

	c.JSON(http.StatusOK, ws.Summary(app.Scale))
}

// listDocumentsHandler handles the GET /api/documents endpoint
func (app *App) listDocumentsHandler(c *gin.Context) {
	out := []DocumentSummary{}
	for _, ws := range app.Workspaces.List() {
		out = append(out, ws.Summary(app.Scale))
	}
	c.JSON(http.StatusOK, out)
}

// getDocumentHandler handles the GET /api/documents/:id endpoint
func (app *App) getDocumentHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ws.Summary(app.Scale))
}

// deleteDocumentHandler handles the DELETE /api/documents/:id endpoint
func (app *App) deleteDocumentHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	cancelJob(ws.currentJob())
	app.Scheduler.CancelRender(ws.Surface.ID())
	app.Workspaces.Delete(ws.ID)
	c.Status(http.StatusNoContent)
}

// getRegionsHandler handles the GET /api/documents/:id/regions endpoint
func (app *App) getRegionsHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	items := ws.Tree.Snapshot()
	if p := c.Query("page"); p != "" {
		page, err := strconv.Atoi(p)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
			return
		}
		items = regionsOnPage(items, page)
	}
	if items == nil {
		items = []regions.Region{}
	}
	c.JSON(http.StatusOK, items)
}

// regionsOnPage keeps the regions of one page. Sections are kept with the children
// on that page.
func regionsOnPage(items []regions.Region, page int) []regions.Region {
	out := []regions.Region{}
	for _, r := range items {
		if !r.IsSection() {
			if r.Page == page {
				out = append(out, r)
			}
			continue
		}
		var children []regions.Region
		for _, child := range r.Children {
			if child.Page == page {
				children = append(children, child)
			}
		}
		if len(children) > 0 {
			r.Children = children
			out = append(out, r)
		}
	}
	return out
}

// getReadingOrderHandler handles the GET /api/documents/:id/reading-order endpoint
func (app *App) getReadingOrderHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	paths := regions.ReadingPaths(ws.Tree.Snapshot(), page)
	if paths == nil {
		paths = []regions.ReadingPath{}
	}
	c.JSON(http.StatusOK, paths)
}

// submitRegionHandler handles the POST /api/documents/:id/regions endpoint
func (app *App) submitRegionHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}

	var candidate regions.Region
	if err := c.ShouldBindJSON(&candidate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	// ids are handed out by the tree, never taken from the client
	candidate.ID = ""
	applyRegionDefaults(&candidate)

	outcome, err := ws.Resolver.Submit(candidate)
	if err != nil {
		if errors.Is(err, regions.ErrDecisionPending) {
			pending, _ := ws.Resolver.Pending()
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "decision": pending})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if outcome.Decision != nil {
		log.WithFields(logrus.Fields{"workspace_id": ws.ID, "decision_id": outcome.Decision.ID}).Debug("Region overlaps, decision pending")
		c.JSON(http.StatusConflict, outcome)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// applyRegionDefaults fills what a drawn rectangle leaves empty from the editor settings.
func applyRegionDefaults(r *regions.Region) {
	s := currentSettings()
	if r.Kind == "" {
		r.Kind = regions.KindText
	}
	if r.Language == "" {
		r.Language = s.DefaultLanguage
	}
	if r.SemanticTag == "" && r.Kind == regions.KindText {
		r.SemanticTag = s.DefaultTag
	}
	if r.Kind == regions.KindTable && r.Table == nil {
		shape := regions.EvenTableShape(2, 2, r.Width, r.Height)
		r.Table = &shape
	}
}

// updateRegionHandler handles the PATCH /api/documents/:id/regions/:region_id endpoint
func (app *App) updateRegionHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	regionID := c.Param("region_id")
	if _, exists := ws.Tree.Get(regionID); !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}

	var patch regions.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	if err := ws.Tree.UpdateRegion(regionID, patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, exists := ws.Tree.Get(regionID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteRegionHandler handles the DELETE /api/documents/:id/regions/:region_id endpoint
func (app *App) deleteRegionHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	if !ws.Tree.RemoveRegion(c.Param("region_id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// getDecisionHandler handles the GET /api/documents/:id/decision endpoint
func (app *App) getDecisionHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	decision, pending := ws.Resolver.Pending()
	if !pending {
		c.JSON(http.StatusNotFound, gin.H{"error": "No pending decision"})
		return
	}
	c.JSON(http.StatusOK, decision)
}

// resolveDecisionHandler handles the POST /api/documents/:id/decision endpoint
func (app *App) resolveDecisionHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}

	var req ResolveDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}

	outcome, err := ws.Resolver.Resolve(req.DecisionID, req.Resolution)
	if err != nil {
		if errors.Is(err, regions.ErrNoDecision) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	log.WithFields(logrus.Fields{
		"workspace_id": ws.ID,
		"decision_id":  req.DecisionID,
		"resolution":   req.Resolution,
	}).Info("Decision resolved")
	c.JSON(http.StatusOK, outcome)
}

// addSectionHandler handles the POST /api/documents/:id/sections endpoint
func (app *App) addSectionHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}

	var req AddSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	section, err := ws.Tree.AddSection(req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, section)
}

// renumberHandler handles the POST /api/documents/:id/sections/:section_id/renumber endpoint.
// The section id "ungrouped-items" renumbers the regions outside any section.
func (app *App) renumberHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	sectionID := c.Param("section_id")
	if sectionID == string(regions.ContainerUngrouped) {
		sectionID = ""
	}
	if !ws.Tree.Renumber(sectionID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Section not found"})
		return
	}
	c.JSON(http.StatusOK, ws.Tree.Snapshot())
}

// moveHandler handles the POST /api/documents/:id/move endpoint
func (app *App) moveHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}

	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	source, err := regions.ParseContainer(req.Source.DroppableID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	destination, err := regions.ParseContainer(req.Destination.DroppableID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	applied := ws.Tree.ApplyMove(regions.Move{
		Source:      regions.Location{Container: source, Index: req.Source.Index},
		Destination: regions.Location{Container: destination, Index: req.Destination.Index},
	})
	if !applied {
		log.WithField("workspace_id", ws.ID).Debug("Move could not be applied, tree unchanged")
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied, "regions": ws.Tree.Snapshot()})
}

// detectTextHandler handles the POST /api/documents/:id/detect-text endpoint
func (app *App) detectTextHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}

	var req DetectTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	source, gen := ws.Source()
	if req.Page > source.NumPages() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Page %d out of range", req.Page)})
		return
	}

	extractor := extract.NewExtractor(app.Scale, extractionOptions(), ws.Tree.NewID)
	blocks, err := extractor.ExtractTextBlocks(c.Request.Context(), source, req.Page)
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{"workspace_id": ws.ID, "page": req.Page}).Error("Text block detection failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Text block detection failed"})
		return
	}

	added, current := ws.applyDetected(gen, blocks, currentSettings().DuplicateTolerance)
	if !current {
		c.JSON(http.StatusConflict, gin.H{"error": "Document was reloaded"})
		return
	}
	if added == nil {
		added = []regions.Region{}
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

// pageImageHandler handles the GET /api/documents/:id/pages/:page/image endpoint
func (app *App) pageImageHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page"})
		return
	}
	source, _ := ws.Source()
	if page < 1 || page > source.NumPages() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Page not found"})
		return
	}

	renderer := render.NewPageRenderer(source, app.Scale, render.DefaultStyle)
	ticket := app.Scheduler.QueueRender(ws.Surface.ID(), renderer.Task(ws.Surface, page, ws.Tree.Snapshot()))
	result, err := ticket.Wait(c.Request.Context())
	if err != nil {
		if errors.Is(err, render.ErrSchedulerClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Renderer is shutting down"})
			return
		}
		if errors.Is(err, pdfsource.ErrClosed) {
			c.JSON(http.StatusConflict, gin.H{"error": "Document was replaced while rendering"})
			return
		}
		log.WithError(err).WithFields(logrus.Fields{"workspace_id": ws.ID, "page": page}).Error("Page render failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render page"})
		return
	}
	if result.Cancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "Render superseded by a newer request"})
		return
	}

	frame, ok := result.Value.(image.Image)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render page"})
		return
	}
	png, err := render.EncodePNG(frame)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// altTextHandler handles the POST /api/documents/:id/regions/:region_id/alt-text endpoint.
// With ?apply=true the suggestion is stored on the region.
func (app *App) altTextHandler(c *gin.Context) {
	if app.VisionLLM == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Alt text suggestions are not enabled"})
		return
	}
	ws, ok := app.workspace(c)
	if !ok {
		return
	}
	regionID := c.Param("region_id")
	region, exists := ws.Tree.Get(regionID)
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Region not found"})
		return
	}
	if region.Kind != regions.KindImage {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image regions have alt text"})
		return
	}

	alt, err := app.suggestAltText(c.Request.Context(), ws, region)
	if err != nil {
		if errors.Is(err, errEmptyCrop) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		log.WithError(err).WithField("region_id", regionID).Error("Alt text suggestion failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Error suggesting alt text: %v", err)})
		return
	}

	if c.Query("apply") == "true" {
		if err := ws.Tree.UpdateRegion(regionID, regions.Patch{AltText: &alt}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, AltTextSuggestion{RegionID: regionID, AltText: alt})
}

// exportHandler handles the POST /api/documents/:id/export endpoint
func (app *App) exportHandler(c *gin.Context) {
	ws, ok := app.workspace(c)
	if !ok {
		return
	}

	var req ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
			return
		}
	}
	templateName := req.TemplateName
	if templateName == "" {
		templateName = ws.TemplateName()
	}

	items := ws.Tree.Snapshot()
	if missing := regions.MissingAltText(items); len(missing) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Image regions need alt text before export", "missing_alt": missing})
		return
	}

	tagged, err := app.Exporter.CreateAccessiblePDF(c.Request.Context(), export.Request{
		TemplateName:  templateName,
		FileName:      ws.FileName(),
		PDF:           ws.PDF(),
		Regions:       items,
		ViewportScale: app.Scale,
	})
	if err != nil {
		log.WithError(err).WithField("workspace_id", ws.ID).Error("Export failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("Failed to create accessible PDF: %v", err)})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadName(templateName)))
	c.Data(http.StatusOK, "application/pdf", tagged)
}

// downloadName renders the download name template, falling back to the fixed default.
func downloadName(templateName string) string {
	templateMutex.RLock()
	defer templateMutex.RUnlock()

	if downloadNameTemplate == nil {
		return constants.DefaultDownloadName
	}
	var buf bytes.Buffer
	if err := downloadNameTemplate.Execute(&buf, map[string]interface{}{"TemplateName": templateName}); err != nil {
		log.Errorf("Error executing download name template: %v", err)
		return constants.DefaultDownloadName
	}
	name := filepath.Base(buf.String())
	if name == "" || name == "." || name == string(filepath.Separator) {
		return constants.DefaultDownloadName
	}
	return name
}

// getJobStatusHandler handles the GET /api/jobs/extract/:job_id endpoint
func (app *App) getJobStatusHandler(c *gin.Context) {
	job, exists := jobStore.getJob(c.Param("job_id"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}
	c.JSON(http.StatusOK, job.info())
}

// getAllJobsHandler handles the GET /api/jobs/extract endpoint
func (app *App) getAllJobsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, jobStore.GetAllJobs())
}

func templateID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid template ID"})
		return 0, false
	}
	return uint(id), true
}

func templateSummary(t Template) TemplateSummary {
	return TemplateSummary{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt}
}

// listTemplatesHandler handles the GET /api/templates endpoint
func (app *App) listTemplatesHandler(c *gin.Context) {
	records, err := ListTemplates(app.Database)
	if err != nil {
		log.Errorf("Failed to list templates: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}
	out := make([]TemplateSummary, 0, len(records))
	for _, r := range records {
		out = append(out, templateSummary(r))
	}
	c.JSON(http.StatusOK, out)
}

// getTemplateHandler handles the GET /api/templates/:id endpoint
func (app *App) getTemplateHandler(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	record, err := GetTemplate(app.Database, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load template"})
		return
	}
	c.JSON(http.StatusOK, TemplateResponse{
		TemplateSummary: templateSummary(*record),
		JSONData:        record.JSONData,
		PDFBlob:         record.PDFBlob,
	})
}

// saveTemplateHandler handles the POST /api/templates endpoint
func (app *App) saveTemplateHandler(c *gin.Context) {
	var req SaveTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	ws, ok := app.Workspaces.Get(req.WorkspaceID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
		return
	}

	jsonData, err := json.Marshal(TemplateData{TemplateName: req.Name, TaggingInformation: ws.Tree.Snapshot()})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode regions"})
		return
	}
	record := Template{
		Name:     req.Name,
		JSONData: string(jsonData),
		PDFBlob:  base64.StdEncoding.EncodeToString(ws.PDF()),
	}
	if err := SaveTemplate(app.Database, &record); err != nil {
		log.Errorf("Failed to save template %q: %v", req.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save template"})
		return
	}
	ws.SetTemplateName(req.Name)

	log.WithFields(logrus.Fields{"workspace_id": ws.ID, "template": req.Name}).Info("Template saved")
	c.JSON(http.StatusCreated, templateSummary(record))
}

// openTemplateHandler handles the POST /api/templates/:id/open endpoint. The saved
// PDF is opened as a new document and its tree restored from the template.
func (app *App) openTemplateHandler(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	record, err := GetTemplate(app.Database, id)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load template"})
		return
	}

	pdf, err := base64.StdEncoding.DecodeString(record.PDFBlob)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Template PDF is corrupt"})
		return
	}
	var data TemplateData
	if err := json.Unmarshal([]byte(record.JSONData), &data); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Template data is corrupt: %v", err)})
		return
	}

	ws, err := app.Workspaces.Create(record.Name, record.Name+".pdf", pdf)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Could not open template PDF: %v", err)})
		return
	}
	if err := ws.Tree.Replace(data.TaggingInformation); err != nil {
		app.Workspaces.Delete(ws.ID)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Template regions are invalid: %v", err)})
		return
	}
	templateName := data.TemplateName
	if templateName == "" {
		templateName = record.Name
	}
	ws.SetTemplateName(templateName)

	c.JSON(http.StatusCreated, ws.Summary(app.Scale))
}

// deleteTemplateHandler handles the DELETE /api/templates/:id endpoint
func (app *App) deleteTemplateHandler(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	if err := DeleteTemplate(app.Database, id); err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Template not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete template"})
		return
	}
	c.Status(http.StatusNoContent)
}
