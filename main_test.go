package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-tagger/extract"
	"pdf-tagger/regions"
)

func TestLoadTemplatesWritesDefaults(t *testing.T) {
	setupTestRouter(t)

	for name, want := range map[string]string{
		"image_name.tmpl":      defaultImageNameTemplate,
		"table_name.tmpl":      defaultTableNameTemplate,
		"download_name.tmpl":   defaultDownloadNameTemplate,
		"alt_text_prompt.tmpl": defaultAltTextTemplate,
	} {
		content, err := os.ReadFile(filepath.Join(promptsDir, name))
		require.NoError(t, err, name)
		assert.Equal(t, want, string(content), name)
	}
}

func TestLoadTemplatesPrefersFiles(t *testing.T) {
	setupTestRouter(t)
	require.NoError(t, os.WriteFile(filepath.Join(promptsDir, "table_name.tmpl"), []byte("Grid {{.Rows}}x{{.Cols}} on page {{.Page}}"), 0644))

	loadTemplates()

	assert.Equal(t, "Grid 3x4 on page 2", regionNamer(extract.NameData{Kind: regions.KindTable, Page: 2, Rows: 3, Cols: 4}))
}

func TestRegionNamer(t *testing.T) {
	setupTestRouter(t)

	tests := []struct {
		name string
		data extract.NameData
		want string
	}{
		{"image", extract.NameData{Kind: regions.KindImage, Page: 3, Index: 2}, "Image 2 (page 3)"},
		{"table", extract.NameData{Kind: regions.KindTable, Page: 1, Rows: 3, Cols: 4}, "Table with 3 rows, 4 columns"},
		{"text blocks keep the built-in name", extract.NameData{Kind: regions.KindText, Page: 1, Index: 1}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, regionNamer(tc.data))
		})
	}
}

func TestDownloadName(t *testing.T) {
	setupTestRouter(t)

	tests := []struct {
		name         string
		templateName string
		want         string
	}{
		{"no template", "", "tagged_pdf_example.pdf"},
		{"template name", "Annual Report 2024", "annual_report_2024_tagged.pdf"},
		{"path separators are dropped", "../../etc/passwd", "passwd_tagged.pdf"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, downloadName(tc.templateName))
		})
	}
}

func TestValidateEnvVars(t *testing.T) {
	saved := []interface{}{viewportScaleEnv, exportRPMEnv, exportRetriesEnv, llmRPMEnv, llmRetriesEnv, workersEnv, visionLlmProvider,
		viewportScale, exportRPM, exportMaxRetries, llmRPM, llmMaxRetries, extractionWorkers}
	t.Cleanup(func() {
		viewportScaleEnv, exportRPMEnv, exportRetriesEnv = saved[0].(string), saved[1].(string), saved[2].(string)
		llmRPMEnv, llmRetriesEnv, workersEnv, visionLlmProvider = saved[3].(string), saved[4].(string), saved[5].(string), saved[6].(string)
		viewportScale, exportRPM, exportMaxRetries = saved[7].(float64), saved[8].(int), saved[9].(int)
		llmRPM, llmMaxRetries, extractionWorkers = saved[10].(float64), saved[11].(int), saved[12].(int)
	})

	viewportScaleEnv = "2"
	exportRPMEnv = "30"
	exportRetriesEnv = "0"
	llmRPMEnv = "12.5"
	llmRetriesEnv = "5"
	workersEnv = "4"
	visionLlmProvider = "ollama"

	validateEnvVars()

	assert.Equal(t, 2.0, viewportScale)
	assert.Equal(t, 30, exportRPM)
	assert.Equal(t, 0, exportMaxRetries)
	assert.Equal(t, 12.5, llmRPM)
	assert.Equal(t, 5, llmMaxRetries)
	assert.Equal(t, 4, extractionWorkers)
}

func TestCreateVisionLLMDisabled(t *testing.T) {
	saved := visionLlmProvider
	t.Cleanup(func() { visionLlmProvider = saved })
	visionLlmProvider = ""

	model, err := createVisionLLM()
	require.NoError(t, err)
	assert.Nil(t, model)
}
