package constants

// DummyAPIKey is used as a placeholder when connecting to OpenAI-compatible services
// that don't require authentication. Many services expect a token in the request
// header but don't validate it.
const DummyAPIKey = "not-needed"

// PageSurfacePrefix names the render surface that shows a workspace's current page.
// The workspace id is appended so workspaces never supersede each other's paints.
const PageSurfacePrefix = "page-canvas"

// DefaultViewportScale is the zoom the editor renders pages at.
const DefaultViewportScale = 1.5

// DefaultLanguage is the language set on new text regions.
const DefaultLanguage = "sv"

// DefaultDownloadName is the file name offered for an exported PDF.
const DefaultDownloadName = "tagged_pdf_example.pdf"
