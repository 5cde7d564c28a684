package ingest

import (
	"path/filepath"
	"strings"
)

// Kind is the pipeline a file is routed to.
type Kind string

const (
	KindText        Kind = "text"
	KindCAD         Kind = "cad"
	KindUnsupported Kind = "unsupported"
)

// textExts are the extensions handled by the text pipeline. Plain text
// is read directly; the rest go through the converter service.
var textExts = map[string]struct{}{
	".txt":  {},
	".md":   {},
	".pdf":  {},
	".docx": {},
	".pptx": {},
	".html": {},
	".csv":  {},
}

// cadExts are the extensions handled by the CAD pipeline.
var cadExts = map[string]struct{}{
	".step": {},
	".stp":  {},
	".iges": {},
	".igs":  {},
}

// Classify routes a path to a pipeline by its extension,
// case-insensitively.
func Classify(path string) Kind {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := textExts[ext]; ok {
		return KindText
	}
	if _, ok := cadExts[ext]; ok {
		return KindCAD
	}
	return KindUnsupported
}
