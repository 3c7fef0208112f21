package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateStore(t *testing.T) {
	db, err := openDB(filepath.Join(t.TempDir(), "templates.db"))
	require.NoError(t, err)

	first := Template{Name: "Invoice", JSONData: `{"templateName":"Invoice"}`, PDFBlob: "JVBERi0="}
	require.NoError(t, SaveTemplate(db, &first))
	require.NotZero(t, first.ID)

	second := Template{Name: "Letter", JSONData: `{}`, PDFBlob: "JVBERi0="}
	require.NoError(t, SaveTemplate(db, &second))

	// same name replaces the content and keeps the id
	replacement := Template{Name: "Invoice", JSONData: `{"templateName":"Invoice v2"}`, PDFBlob: "JVBERi0x"}
	require.NoError(t, SaveTemplate(db, &replacement))
	assert.Equal(t, first.ID, replacement.ID)

	got, err := GetTemplate(db, first.ID)
	require.NoError(t, err)
	assert.Equal(t, `{"templateName":"Invoice v2"}`, got.JSONData)
	assert.Equal(t, "JVBERi0x", got.PDFBlob)

	list, err := ListTemplates(db)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, tmpl := range list {
		assert.Empty(t, tmpl.PDFBlob, "listing leaves payloads out")
	}

	require.NoError(t, DeleteTemplate(db, second.ID))
	assert.ErrorIs(t, DeleteTemplate(db, second.ID), ErrTemplateNotFound)
	_, err = GetTemplate(db, second.ID)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}
