package workgraph

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindDirExplicit(t *testing.T) {
	project := t.TempDir()
	wgDir := filepath.Join(project, DirName)
	if err := os.MkdirAll(wgDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tests := []struct {
		name  string
		start string
		want  string
	}{
		{name: "project root", start: project, want: wgDir},
		{name: "workgraph dir itself", start: wgDir, want: wgDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindDir(tt.start)
			if err != nil {
				t.Fatalf("FindDir: %v", err)
			}
			if got != tt.want {
				t.Errorf("FindDir(%q) = %q, want %q", tt.start, got, tt.want)
			}
		})
	}
}

func TestFindDirMissing(t *testing.T) {
	if _, err := FindDir(t.TempDir()); err == nil {
		t.Fatal("expected error for project without a workgraph dir")
	}
}

func TestLogReaderMissingFile(t *testing.T) {
	reader := NewLogReader(t.TempDir())
	records, err := reader.Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %v, want empty", records)
	}
}

func TestLogReaderSkipsMalformedLines(t *testing.T) {
	wgDir := t.TempDir()
	content := `{"kind":"task","id":"t1","status":"open"}
not json at all
{"kind":"edge","id":"e1"}
{"kind":"task","id":"t2","status":"done"}

{broken
`
	if err := os.WriteFile(filepath.Join(wgDir, GraphLogName), []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := NewLogReader(wgDir).Records()
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3: %v", len(records), records)
	}
	if records[0].ID != "t1" || records[0].Status != "open" {
		t.Errorf("record 0 = %+v", records[0])
	}
	if records[2].ID != "t2" || records[2].Status != "done" {
		t.Errorf("record 2 = %+v", records[2])
	}
}
