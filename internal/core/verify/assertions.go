package verify

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dbmcco/redrift/internal/models"
)

// skipDirs are tool-state and dependency directories excluded from
// pattern-assertion tree walks, matched against project-relative paths.
var skipDirs = map[string]bool{
	".git":                     true,
	".workgraph/.coredrift":    true,
	".workgraph/.speedrift":    true,
	".workgraph/.specdrift":    true,
	".workgraph/.datadrift":    true,
	".workgraph/.archdrift":    true,
	".workgraph/.depsdrift":    true,
	".workgraph/.uxdrift":      true,
	".workgraph/.therapydrift": true,
	".workgraph/.yagnidrift":   true,
	".workgraph/.redrift":      true,
	"node_modules":             true,
	".next":                    true,
	".venv":                    true,
	"venv":                     true,
	"__pycache__":              true,
}

// defaultIncludes is the glob include-list applied when an assertion does
// not restrict its file set.
var defaultIncludes = []string{
	"**/*.py", "**/*.ts", "**/*.tsx", "**/*.js", "**/*.jsx", "**/*.md", "**/*.toml",
}

// runAssertion dispatches one assertion by kind. Every outcome, including
// malformed assertions and unknown kinds, is a result row, never an error.
func runAssertion(projectDir string, a models.Assertion) models.AssertionResult {
	switch a.Kind {
	case models.AssertMaxLines:
		return assertMaxLines(projectDir, a)
	case models.AssertFileExists:
		return assertFileExists(projectDir, a)
	case models.AssertForbidPattern:
		return patternAssertion(projectDir, a, false)
	case models.AssertRequirePattern:
		return patternAssertion(projectDir, a, true)
	}

	kind := a.Kind
	if kind == "" {
		kind = "unknown"
	}
	display := a.Kind
	if display == "" {
		display = "<missing>"
	}
	return models.AssertionResult{
		Kind:    kind,
		OK:      false,
		Summary: fmt.Sprintf("unsupported assertion kind: %s", display),
		Details: map[string]any{"assertion": a.Raw},
	}
}

func assertFileExists(projectDir string, a models.Assertion) models.AssertionResult {
	if a.Path == "" {
		return models.AssertionResult{
			Kind:    models.AssertFileExists,
			OK:      false,
			Summary: "file_exists assertion requires path",
			Details: map[string]any{},
		}
	}

	_, err := os.Stat(filepath.Join(projectDir, a.Path))
	ok := err == nil
	state := "missing"
	if ok {
		state = "exists"
	}
	return models.AssertionResult{
		Kind:    models.AssertFileExists,
		OK:      ok,
		Summary: fmt.Sprintf("%s: %s", a.Path, state),
		Details: map[string]any{"path": a.Path},
	}
}

func assertMaxLines(projectDir string, a models.Assertion) models.AssertionResult {
	if a.Path == "" || a.Max <= 0 {
		return models.AssertionResult{
			Kind:    models.AssertMaxLines,
			OK:      false,
			Summary: "max_lines assertion requires path + positive max",
			Details: map[string]any{"path": a.Path, "max": a.Max},
		}
	}

	fp, err := os.Open(filepath.Join(projectDir, a.Path))
	if err != nil {
		return models.AssertionResult{
			Kind:    models.AssertMaxLines,
			OK:      false,
			Summary: "file not found for max_lines assertion",
			Details: map[string]any{"path": a.Path, "max": a.Max},
		}
	}
	defer fp.Close()

	lines, err := countLines(fp)
	if err != nil {
		return models.AssertionResult{
			Kind:    models.AssertMaxLines,
			OK:      false,
			Summary: fmt.Sprintf("failed to read %s: %v", a.Path, err),
			Details: map[string]any{"path": a.Path, "max": a.Max},
		}
	}

	return models.AssertionResult{
		Kind:    models.AssertMaxLines,
		OK:      lines <= a.Max,
		Summary: fmt.Sprintf("%s: %d lines (max %d)", a.Path, lines, a.Max),
		Details: map[string]any{"path": a.Path, "lines": lines, "max": a.Max},
	}
}

// countLines streams newline-delimited lines without decoding the whole
// file into one string. A trailing line without a final newline counts.
func countLines(r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	lines := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lines++
		}
		if err == io.EOF {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
	}
}

type patternHit struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

func patternAssertion(projectDir string, a models.Assertion, requireHit bool) models.AssertionResult {
	kind := models.AssertForbidPattern
	if requireHit {
		kind = models.AssertRequirePattern
	}

	include := a.Include
	if len(include) == 0 {
		include = defaultIncludes
	}

	pattern := strings.TrimSpace(a.Pattern)
	if pattern == "" {
		return models.AssertionResult{
			Kind:    kind,
			OK:      false,
			Summary: fmt.Sprintf("%s assertion requires pattern", kind),
			Details: map[string]any{"include": include},
		}
	}

	rx, err := regexp.Compile("(?m)" + pattern)
	if err != nil {
		return models.AssertionResult{
			Kind:    kind,
			OK:      false,
			Summary: fmt.Sprintf("invalid regex pattern: %v", err),
			Details: map[string]any{"pattern": pattern},
		}
	}

	hits := []patternHit{}
	for _, rel := range walkFiles(projectDir, include) {
		content, err := os.ReadFile(filepath.Join(projectDir, rel))
		if err != nil {
			continue
		}
		loc := rx.FindIndex(content)
		if loc == nil {
			continue
		}
		line := 1 + strings.Count(string(content[:loc[0]]), "\n")
		hits = append(hits, patternHit{Path: rel, Line: line})
		if !requireHit {
			// One hit is enough to fail a forbid assertion.
			break
		}
	}

	var ok bool
	var summary string
	if requireHit {
		ok = len(hits) > 0
		if ok {
			summary = "require_pattern matched"
		} else {
			summary = "require_pattern did not match"
		}
	} else {
		ok = len(hits) == 0
		if ok {
			summary = "forbid_pattern clean"
		} else {
			summary = "forbid_pattern matched"
		}
	}

	if len(hits) > 20 {
		hits = hits[:20]
	}
	return models.AssertionResult{
		Kind:    kind,
		OK:      ok,
		Summary: summary,
		Details: map[string]any{"pattern": pattern, "include": include, "hits": hits},
	}
}

// walkFiles returns project-relative paths of candidate files for pattern
// assertions: a synchronous recursive walk, minus the skip directories,
// restricted to the include globs. Paths use forward slashes regardless
// of platform.
func walkFiles(projectDir string, include []string) []string {
	var out []string
	_ = filepath.WalkDir(projectDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(projectDir, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if skipDirs[rel] {
				return filepath.SkipDir
			}
			return nil
		}

		for _, pat := range include {
			if match, _ := doublestar.Match(pat, rel); match {
				out = append(out, rel)
				break
			}
		}
		return nil
	})
	return out
}
