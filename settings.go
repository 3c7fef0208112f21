package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"pdf-tagger/internal/constants"
	"pdf-tagger/regions"
)

const settingsFile = "settings.json"

var (
	settings      Settings
	settingsMutex sync.RWMutex
)

func defaultSettings() Settings {
	return Settings{
		DefaultLanguage:      constants.DefaultLanguage,
		DefaultTag:           regions.TagParagraph,
		DuplicateTolerance:   regions.DefaultDuplicateTolerance,
		AutoDetectTextBlocks: false,
	}
}

// currentSettings returns a copy of the active settings.
func currentSettings() Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settings
}

// saveSettings saves the current settings to the settings.json file.
func saveSettings() error {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	return saveSettingsLocked()
}

// saveSettingsLocked performs the actual saving without locking the mutex.
// This is to be called from functions that already hold the lock.
func saveSettingsLocked() error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(configDir, settingsFile), data, 0644)
}

// loadSettings loads the settings from settings.json, creating it with defaults if it doesn't exist or is corrupt.
func loadSettings() {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settingsPath := filepath.Join(configDir, settingsFile)
	data, err := os.ReadFile(settingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Infof("Settings file not found at %s, creating with default values.", settingsPath)
			settings = defaultSettings()
			if err := saveSettingsLocked(); err != nil {
				log.Fatalf("Failed to create default settings file: %v", err)
			}
		} else {
			log.Warnf("Failed to read settings file: %v. Loading default settings.", err)
			settings = defaultSettings()
		}
		return
	}

	loaded := defaultSettings()
	if err := json.Unmarshal(data, &loaded); err != nil {
		log.Warnf("Failed to parse settings file, please check its format. Loading default settings. Error: %v", err)
		settings = defaultSettings()
		return
	}
	if err := validateSettings(loaded); err != nil {
		log.Warnf("Invalid settings file: %v. Loading default settings.", err)
		settings = defaultSettings()
		return
	}
	settings = loaded

	log.Info("Successfully loaded settings from settings.json")
}

func validateSettings(s Settings) error {
	if strings.TrimSpace(s.DefaultLanguage) == "" {
		return fmt.Errorf("default_language must not be empty")
	}
	if !s.DefaultTag.Valid() {
		return fmt.Errorf("unknown default_tag %q", s.DefaultTag)
	}
	if s.DuplicateTolerance < 0 {
		return fmt.Errorf("duplicate_tolerance must not be negative")
	}
	return nil
}

// getSettingsHandler handles the GET /api/settings endpoint
func getSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, currentSettings())
}

// updateSettingsHandler handles the POST /api/settings endpoint
func updateSettingsHandler(c *gin.Context) {
	next := currentSettings()
	if err := c.ShouldBindJSON(&next); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		return
	}
	if err := validateSettings(next); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	settings = next
	if err := saveSettingsLocked(); err != nil {
		log.Errorf("Failed to save settings: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}
