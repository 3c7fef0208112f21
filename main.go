package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"gorm.io/gorm"

	"pdf-tagger/export"
	"pdf-tagger/extract"
	"pdf-tagger/internal/constants"
	"pdf-tagger/pdfsource"
	"pdf-tagger/render"
)

// Global Variables and Constants
var (

	// Logger
	log = logrus.New()

	// Environment Variables
	logLevel           = strings.ToLower(os.Getenv("LOG_LEVEL"))
	listenAddress      = envOrDefault("LISTEN_ADDRESS", ":8080")
	dbDir              = envOrDefault("DB_DIR", "db")
	promptsDir         = envOrDefault("PROMPTS_DIR", "prompts")
	configDir          = envOrDefault("CONFIG_DIR", "config")
	viewportScaleEnv   = os.Getenv("VIEWPORT_SCALE")
	exportServiceURL   = envOrDefault("EXPORT_SERVICE_URL", "http://localhost:8085/create-accessible-pdf")
	exportServiceToken = os.Getenv("EXPORT_SERVICE_TOKEN")
	exportRPMEnv       = os.Getenv("EXPORT_REQUESTS_PER_MINUTE")
	exportRetriesEnv   = os.Getenv("EXPORT_MAX_RETRIES")
	visionLlmProvider  = os.Getenv("VISION_LLM_PROVIDER")
	visionLlmModel     = os.Getenv("VISION_LLM_MODEL")
	openaiAPIKey       = os.Getenv("OPENAI_API_KEY")
	openaiBaseURL      = os.Getenv("OPENAI_BASE_URL")
	llmRPMEnv          = os.Getenv("LLM_REQUESTS_PER_MINUTE")
	llmRetriesEnv      = os.Getenv("LLM_MAX_RETRIES")
	workersEnv         = os.Getenv("EXTRACTION_WORKERS")

	// Parsed by validateEnvVars
	viewportScale     = constants.DefaultViewportScale
	exportMaxRetries  = 3
	extractionWorkers = 1
	exportRPM         int
	llmRPM            float64
	llmMaxRetries     int

	// Templates
	imageNameTemplate    *template.Template
	tableNameTemplate    *template.Template
	downloadNameTemplate *template.Template
	altTextTemplate      *template.Template
	templateMutex        sync.RWMutex

	// Default templates
	defaultImageNameTemplate = `Image {{.Index}} (page {{.Page}})`

	defaultTableNameTemplate = `Table with {{.Rows}} rows, {{.Cols}} columns`

	defaultDownloadNameTemplate = `{{if .TemplateName}}{{.TemplateName | lower | replace " " "_"}}_tagged.pdf{{else}}tagged_pdf_example.pdf{{end}}`

	defaultAltTextTemplate = `You are helping to make a PDF document accessible. Describe the image below so that a screen reader user understands what it shows and why it is in the document.
Respond only with the alternative text, in at most two sentences, without any additional information. Write the description in the language with code "{{.Language}}".
{{if .Label}}
The image is labelled "{{.Label}}".{{end}}{{if .Context}}
Text near the image:
{{.Context | trunc 1000}}{{end}}
`
)

// App struct to hold dependencies
type App struct {
	Database   *gorm.DB
	VisionLLM  llms.Model
	Workspaces *WorkspaceStore
	Scheduler  *render.Scheduler
	Exporter   Exporter
	Scale      float64
}

func main() {
	// Initialize logrus logger
	initLogger()

	// Validate Environment Variables
	validateEnvVars()

	// Load editor settings
	loadSettings()

	// Initialize Database
	database := InitializeDB()

	// Load Templates
	loadTemplates()

	// Initialize Vision LLM
	visionLlm, err := createVisionLLM()
	if err != nil {
		log.Fatalf("Failed to create Vision LLM client: %v", err)
	}

	scheduler := render.NewScheduler()
	defer scheduler.Close()

	// Initialize App with dependencies
	app := &App{
		Database:   database,
		VisionLLM:  visionLlm,
		Workspaces: NewWorkspaceStore(),
		Scheduler:  scheduler,
		Exporter: export.NewClient(export.Config{
			URL:               exportServiceURL,
			Token:             exportServiceToken,
			RequestsPerMinute: exportRPM,
			MaxRetries:        exportMaxRetries,
		}),
		Scale: viewportScale,
	}

	router := gin.Default()
	app.registerRoutes(router)

	// Start extraction worker pool
	startWorkerPool(app, extractionWorkers)

	log.Infof("Server started on %s", listenAddress)
	if err := router.Run(listenAddress); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func (app *App) registerRoutes(router *gin.Engine) {
	api := router.Group("/api")
	{
		// Workspaces (one loaded PDF and its region tree each)
		api.GET("/documents", app.listDocumentsHandler)
		api.POST("/documents", app.uploadDocumentHandler)
		api.GET("/documents/:id", app.getDocumentHandler)
		api.DELETE("/documents/:id", app.deleteDocumentHandler)
		api.PUT("/documents/:id/pdf", app.reloadDocumentHandler)
		api.GET("/documents/:id/regions", app.getRegionsHandler)
		api.POST("/documents/:id/regions", app.submitRegionHandler)
		api.PATCH("/documents/:id/regions/:region_id", app.updateRegionHandler)
		api.DELETE("/documents/:id/regions/:region_id", app.deleteRegionHandler)
		api.GET("/documents/:id/decision", app.getDecisionHandler)
		api.POST("/documents/:id/decision", app.resolveDecisionHandler)
		api.POST("/documents/:id/sections", app.addSectionHandler)
		api.POST("/documents/:id/sections/:section_id/renumber", app.renumberHandler)
		api.POST("/documents/:id/move", app.moveHandler)
		api.GET("/documents/:id/reading-order", app.getReadingOrderHandler)
		api.POST("/documents/:id/detect-text", app.detectTextHandler)
		api.GET("/documents/:id/pages/:page/image", app.pageImageHandler)
		api.POST("/documents/:id/regions/:region_id/alt-text", app.altTextHandler)
		api.POST("/documents/:id/export", app.exportHandler)

		// Extraction jobs
		api.GET("/jobs/extract/:job_id", app.getJobStatusHandler)
		api.GET("/jobs/extract", app.getAllJobsHandler)

		// Template persistence
		api.GET("/templates", app.listTemplatesHandler)
		api.GET("/templates/:id", app.getTemplateHandler)
		api.POST("/templates", app.saveTemplateHandler)
		api.POST("/templates/:id/open", app.openTemplateHandler)
		api.DELETE("/templates/:id", app.deleteTemplateHandler)

		api.GET("/prompts", getPromptsHandler)
		api.POST("/prompts", updatePromptsHandler)

		api.GET("/settings", getSettingsHandler)
		api.POST("/settings", updateSettingsHandler)
	}
}

func initLogger() {
	switch logLevel {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "info":
		log.SetLevel(logrus.InfoLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
		if logLevel != "" {
			log.Fatalf("Invalid log level: '%s'.", logLevel)
		}
	}

	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	level := log.GetLevel()
	pdfsource.SetLogLevel(level)
	extract.SetLogLevel(level)
	render.SetLogLevel(level)
	export.SetLogLevel(level)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// validateEnvVars ensures all environment variables hold usable values
func validateEnvVars() {
	if viewportScaleEnv != "" {
		scale, err := strconv.ParseFloat(viewportScaleEnv, 64)
		if err != nil || scale <= 0 {
			log.Fatalf("Invalid VIEWPORT_SCALE value: '%s'. Must be a positive number.", viewportScaleEnv)
		}
		viewportScale = scale
	}

	if exportRPMEnv != "" {
		rpm, err := strconv.Atoi(exportRPMEnv)
		if err != nil || rpm < 0 {
			log.Fatalf("Invalid EXPORT_REQUESTS_PER_MINUTE value: '%s'.", exportRPMEnv)
		}
		exportRPM = rpm
	}

	if exportRetriesEnv != "" {
		retries, err := strconv.Atoi(exportRetriesEnv)
		if err != nil || retries < 0 {
			log.Fatalf("Invalid EXPORT_MAX_RETRIES value: '%s'.", exportRetriesEnv)
		}
		exportMaxRetries = retries
	}

	if llmRPMEnv != "" {
		rpm, err := strconv.ParseFloat(llmRPMEnv, 64)
		if err != nil || rpm < 0 {
			log.Fatalf("Invalid LLM_REQUESTS_PER_MINUTE value: '%s'.", llmRPMEnv)
		}
		llmRPM = rpm
	}

	if llmRetriesEnv != "" {
		retries, err := strconv.Atoi(llmRetriesEnv)
		if err != nil || retries < 0 {
			log.Fatalf("Invalid LLM_MAX_RETRIES value: '%s'.", llmRetriesEnv)
		}
		llmMaxRetries = retries
	}

	if workersEnv != "" {
		n, err := strconv.Atoi(workersEnv)
		if err != nil || n < 1 {
			log.Fatalf("Invalid EXTRACTION_WORKERS value: '%s'. Must be at least 1.", workersEnv)
		}
		extractionWorkers = n
	}

	if visionLlmProvider != "" && visionLlmProvider != "openai" && visionLlmProvider != "ollama" {
		log.Fatal("Please set the VISION_LLM_PROVIDER environment variable to 'openai' or 'ollama'.")
	}

	if visionLlmProvider == "openai" && openaiAPIKey == "" && openaiBaseURL == "" {
		log.Fatal("Please set the OPENAI_API_KEY environment variable for OpenAI provider.")
	}
}

// loadTemplates loads the naming and prompt templates from files or uses default templates
func loadTemplates() {
	templateMutex.Lock()
	defer templateMutex.Unlock()

	// Ensure prompts directory exists
	if err := os.MkdirAll(promptsDir, os.ModePerm); err != nil {
		log.Fatalf("Failed to create prompts directory: %v", err)
	}

	imageNameTemplate = loadTemplate("image_name", defaultImageNameTemplate)
	tableNameTemplate = loadTemplate("table_name", defaultTableNameTemplate)
	downloadNameTemplate = loadTemplate("download_name", defaultDownloadNameTemplate)
	altTextTemplate = loadTemplate("alt_text_prompt", defaultAltTextTemplate)
}

func loadTemplate(name, fallback string) *template.Template {
	path := filepath.Join(promptsDir, name+".tmpl")
	content, err := os.ReadFile(path)
	if err != nil {
		log.Errorf("Could not read %s, using default template: %v", path, err)
		content = []byte(fallback)
		if err := os.WriteFile(path, content, 0644); err != nil {
			log.Fatalf("Failed to write default %s template to disk: %v", name, err)
		}
	}
	t, err := template.New(name).Funcs(sprig.FuncMap()).Parse(string(content))
	if err != nil {
		log.Fatalf("Failed to parse %s template: %v", name, err)
	}
	return t
}

// createVisionLLM creates the vision model used for alt text suggestions. It returns
// nil when no provider is configured.
func createVisionLLM() (llms.Model, error) {
	var model llms.Model
	var err error

	switch strings.ToLower(visionLlmProvider) {
	case "openai":
		token := openaiAPIKey
		if token == "" {
			token = constants.DummyAPIKey
		}
		opts := []openai.Option{
			openai.WithModel(visionLlmModel),
			openai.WithToken(token),
		}
		if openaiBaseURL != "" {
			opts = append(opts, openai.WithBaseURL(openaiBaseURL))
		}
		model, err = openai.New(opts...)
	case "ollama":
		host := envOrDefault("OLLAMA_HOST", "http://127.0.0.1:11434")
		model, err = ollama.New(
			ollama.WithModel(visionLlmModel),
			ollama.WithServerURL(host),
		)
	default:
		log.Infoln("Vision LLM not enabled, alt text suggestions are unavailable")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create %s vision model: %w", visionLlmProvider, err)
	}

	return NewRateLimitedLLM(model, RateLimitConfig{
		RequestsPerMinute: llmRPM,
		MaxRetries:        llmMaxRetries,
		BackoffMaxWait:    30 * time.Second,
	}), nil
}
