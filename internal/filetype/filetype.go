// Package filetype maps source filenames to icons and viewing policy by
// extension.
package filetype

import (
	"path"
	"strings"
)

// Icon names follow the Material Symbols set the stylesheet loads.
type Icon string

const (
	IconPDF      Icon = "picture_as_pdf"
	IconWord     Icon = "description"
	IconDocument Icon = "article"
	IconFile     Icon = "draft"
)

func ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

// IconFor picks the list glyph for a source file.
func IconFor(filename string) Icon {
	switch ext(filename) {
	case "pdf":
		return IconPDF
	case "doc", "docx":
		return IconWord
	case "txt", "csv", "md", "json", "html", "htm":
		return IconDocument
	default:
		return IconFile
	}
}

// ViewableInTab reports whether double-clicking the source should open it in
// a new browser tab.
func ViewableInTab(filename string) bool {
	switch ext(filename) {
	case "pdf", "html", "htm", "md", "txt":
		return true
	}
	return false
}

// Allowed reports whether the backend will accept the file for upload; the
// sources panel filters rejects up front instead of round-tripping them.
func Allowed(filename string) bool {
	switch ext(filename) {
	case "txt", "pdf", "docx", "doc", "csv", "md", "html", "json":
		return true
	}
	return false
}
