package workgraph

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/dbmcco/redrift/internal/models"
)

// GraphLogName is the append-only record log inside a workgraph dir.
const GraphLogName = "graph.jsonl"

// LogReader reads the workgraph record log as newline-delimited JSON.
// It implements secondary.TaskLogReader.
type LogReader struct {
	wgDir string
}

// NewLogReader creates a reader bound to one workgraph directory.
func NewLogReader(wgDir string) *LogReader {
	return &LogReader{wgDir: wgDir}
}

// Records returns every decodable record in log order. Malformed lines
// are skipped; a log that does not exist yet yields an empty slice, so a
// project using redrift for the first time audits cleanly.
func (r *LogReader) Records() ([]models.TaskRecord, error) {
	fp, err := os.Open(filepath.Join(r.wgDir, GraphLogName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer fp.Close()

	var records []models.TaskRecord
	scanner := bufio.NewScanner(fp)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec models.TaskRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}
	return records, nil
}
