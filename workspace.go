package main

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pdf-tagger/extract"
	"pdf-tagger/internal/constants"
	"pdf-tagger/pdfsource"
	"pdf-tagger/regions"
	"pdf-tagger/render"
)

// PDFSource is a loaded PDF as the editor uses it: read by the extractors and
// painted by the render scheduler.
type PDFSource interface {
	extract.Document
	render.Rasterizer
	Close() error
}

// openPDF parses an uploaded PDF. Tests replace it with a fake.
var openPDF = func(data []byte) (PDFSource, error) {
	doc, err := pdfsource.Open(data)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Workspace is one loaded PDF together with its region tree.
type Workspace struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	Tree         *regions.Tree
	Resolver     *regions.Resolver
	Surface      *render.Surface
	mu           sync.RWMutex
	fileName     string
	templateName string
	pdf          []byte
	source       PDFSource
	generation   uint64
	jobID        string
}

// WorkspaceStore holds the open workspaces.
type WorkspaceStore struct {
	sync.RWMutex
	workspaces map[string]*Workspace
}

func NewWorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{workspaces: make(map[string]*Workspace)}
}

// Create opens data as a new workspace.
func (store *WorkspaceStore) Create(name, fileName string, data []byte) (*Workspace, error) {
	source, err := openPDF(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	id := uuid.New().String()
	tree := regions.NewTree()
	ws := &Workspace{
		ID:        id,
		Name:      name,
		CreatedAt: time.Now(),
		Tree:      tree,
		Resolver:  regions.NewResolver(tree),
		Surface:   render.NewSurface(constants.PageSurfacePrefix + ":" + id),
		fileName:  fileName,
		pdf:       data,
		source:    source,
	}
	ws.generation = 1

	store.Lock()
	store.workspaces[id] = ws
	store.Unlock()

	log.WithFields(logrus.Fields{"workspace_id": id, "pages": source.NumPages()}).Info("Workspace created")
	return ws, nil
}

func (store *WorkspaceStore) Get(id string) (*Workspace, bool) {
	store.RLock()
	defer store.RUnlock()
	ws, ok := store.workspaces[id]
	return ws, ok
}

// Delete closes and forgets a workspace.
func (store *WorkspaceStore) Delete(id string) bool {
	store.Lock()
	ws, ok := store.workspaces[id]
	delete(store.workspaces, id)
	store.Unlock()
	if !ok {
		return false
	}

	ws.mu.Lock()
	defer ws.mu.Unlock()
	if err := ws.source.Close(); err != nil {
		log.WithError(err).WithField("workspace_id", id).Warn("Failed to close PDF source")
	}
	ws.Surface.Clear()
	return true
}

// List returns the open workspaces, newest first.
func (store *WorkspaceStore) List() []*Workspace {
	store.RLock()
	defer store.RUnlock()

	out := make([]*Workspace, 0, len(store.workspaces))
	for _, ws := range store.workspaces {
		out = append(out, ws)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Reload swaps in a new PDF. The region tree is cleared and the generation bumped,
// so results of extraction jobs started for the previous PDF are discarded.
func (ws *Workspace) Reload(fileName string, data []byte) (uint64, error) {
	source, err := openPDF(data)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}

	ws.mu.Lock()
	old := ws.source
	ws.source = source
	ws.pdf = data
	ws.fileName = fileName
	ws.generation++
	gen := ws.generation
	ws.Resolver.Discard()
	err = ws.Tree.Replace(nil)
	ws.mu.Unlock()

	if cerr := old.Close(); cerr != nil {
		log.WithError(cerr).WithField("workspace_id", ws.ID).Warn("Failed to close previous PDF source")
	}
	ws.Surface.Clear()
	if err != nil {
		return 0, err
	}
	return gen, nil
}

// applyDetected seeds the tree with detected regions if gen is still the live load.
// It reports false when the regions belong to a superseded load.
func (ws *Workspace) applyDetected(gen uint64, found []regions.Region, tolerance float64) ([]regions.Region, bool) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if ws.generation != gen {
		return nil, false
	}
	return ws.Tree.SeedDetected(found, tolerance), true
}

// Source returns the current PDF source and the generation it belongs to.
func (ws *Workspace) Source() (PDFSource, uint64) {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.source, ws.generation
}

// PDF returns the bytes of the current PDF.
func (ws *Workspace) PDF() []byte {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.pdf
}

// IsCurrent reports whether gen is still the live load of ws.
func (ws *Workspace) IsCurrent(gen uint64) bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.generation == gen
}

func (ws *Workspace) FileName() string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.fileName
}

func (ws *Workspace) TemplateName() string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.templateName
}

func (ws *Workspace) SetTemplateName(name string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.templateName = name
}

func (ws *Workspace) setJob(jobID string) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.jobID = jobID
}

func (ws *Workspace) currentJob() string {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.jobID
}

// Summary builds the API view of ws.
func (ws *Workspace) Summary(scale float64) DocumentSummary {
	source, _ := ws.Source()
	summary := DocumentSummary{
		ID:           ws.ID,
		Name:         ws.Name,
		FileName:     ws.FileName(),
		TemplateName: ws.TemplateName(),
		PageCount:    source.NumPages(),
		RegionCount:  ws.Tree.Len(),
		Scale:        scale,
		CreatedAt:    ws.CreatedAt,
	}
	for page := 1; page <= summary.PageCount; page++ {
		vp, err := source.Viewport(page, scale)
		if err != nil {
			log.WithError(err).WithFields(logrus.Fields{"workspace_id": ws.ID, "page": page}).Warn("No viewport for page")
			continue
		}
		summary.Pages = append(summary.Pages, PageInfo{Number: page, Viewport: vp})
	}
	if jobID := ws.currentJob(); jobID != "" {
		if job, ok := jobStore.getJob(jobID); ok {
			info := job.info()
			summary.Job = &info
		}
	}
	return summary
}

// regionNamer names detected regions with the image and table templates.
func regionNamer(d extract.NameData) string {
	templateMutex.RLock()
	defer templateMutex.RUnlock()

	var tmpl *template.Template
	switch d.Kind {
	case regions.KindImage:
		tmpl = imageNameTemplate
	case regions.KindTable:
		tmpl = tableNameTemplate
	}
	if tmpl == nil {
		return ""
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		log.WithError(err).Errorf("Failed to execute %s template", tmpl.Name())
		return ""
	}
	return buf.String()
}

// extractionOptions returns the detector settings for the current editor settings.
func extractionOptions() extract.Options {
	opts := extract.DefaultOptions()
	opts.DetectText = currentSettings().AutoDetectTextBlocks
	opts.Namer = regionNamer
	return opts
}
