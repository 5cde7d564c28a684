package ingest

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{path: "notes.txt", want: KindText},
		{path: "readme.md", want: KindText},
		{path: "manual.pdf", want: KindText},
		{path: "report.docx", want: KindText},
		{path: "slides.pptx", want: KindText},
		{path: "page.html", want: KindText},
		{path: "data.csv", want: KindText},
		{path: "bracket.step", want: KindCAD},
		{path: "bracket.stp", want: KindCAD},
		{path: "housing.iges", want: KindCAD},
		{path: "housing.igs", want: KindCAD},
		{path: "MANUAL.PDF", want: KindText},
		{path: "Bracket.STEP", want: KindCAD},
		{path: "/deep/path/to/file.md", want: KindText},
		{path: "archive.zip", want: KindUnsupported},
		{path: "binary.xyz", want: KindUnsupported},
		{path: "no_extension", want: KindUnsupported},
		{path: "", want: KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Classify(tt.path); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}
