package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-tagger/regions"
)

func TestLoadSettingsCreatesDefaults(t *testing.T) {
	setupTestRouter(t)

	loadSettings()

	assert.Equal(t, defaultSettings(), currentSettings())
	data, err := os.ReadFile(filepath.Join(configDir, settingsFile))
	require.NoError(t, err)
	var onDisk Settings
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, "sv", onDisk.DefaultLanguage)
	assert.Equal(t, regions.TagParagraph, onDisk.DefaultTag)
	assert.Equal(t, 20.0, onDisk.DuplicateTolerance)
}

func TestLoadSettingsFromFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Settings
	}{
		{
			name:    "partial file keeps defaults for missing keys",
			content: `{"default_language": "en", "auto_detect_text_blocks": true}`,
			want: Settings{
				DefaultLanguage:      "en",
				DefaultTag:           regions.TagParagraph,
				DuplicateTolerance:   regions.DefaultDuplicateTolerance,
				AutoDetectTextBlocks: true,
			},
		},
		{
			name:    "corrupt file",
			content: `{"default_language": `,
			want:    defaultSettings(),
		},
		{
			name:    "unknown tag",
			content: `{"default_tag": "Banner"}`,
			want:    defaultSettings(),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setupTestRouter(t)
			require.NoError(t, os.MkdirAll(configDir, 0755))
			require.NoError(t, os.WriteFile(filepath.Join(configDir, settingsFile), []byte(tc.content), 0644))

			loadSettings()
			assert.Equal(t, tc.want, currentSettings())
		})
	}
}

func TestSettingsHandlers(t *testing.T) {
	router := setupTestRouter(t)
	router.GET("/api/settings", getSettingsHandler)
	router.POST("/api/settings", updateSettingsHandler)

	post := func(body string) *httptest.ResponseRecorder {
		req, _ := http.NewRequest(http.MethodPost, "/api/settings", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := post(`{"default_tag": "H2", "duplicate_tolerance": 5}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, regions.TagH2, currentSettings().DefaultTag)
	assert.Equal(t, 5.0, currentSettings().DuplicateTolerance)
	assert.Equal(t, "sv", currentSettings().DefaultLanguage)

	data, err := os.ReadFile(filepath.Join(configDir, settingsFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"H2"`)

	for _, body := range []string{
		`{"duplicate_tolerance": -1}`,
		`{"default_language": " "}`,
		`{"default_tag": "Banner"}`,
		`not json`,
	} {
		assert.Equal(t, http.StatusBadRequest, post(body).Code, body)
	}
	assert.Equal(t, regions.TagH2, currentSettings().DefaultTag)

	req, _ := http.NewRequest(http.MethodGet, "/api/settings", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var got Settings
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, currentSettings(), got)
}
