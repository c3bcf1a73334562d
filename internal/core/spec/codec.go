// Package spec extracts and decodes the redrift contract block embedded
// in a task description, and re-encodes it for generated follow-up tasks.
// Extraction and decoding are pure; no filesystem or store access happens
// here.
package spec

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dbmcco/redrift/internal/models"
)

// FenceInfo is the info-string tag marking the contract block.
const FenceInfo = "redrift"

var fenceRe = regexp.MustCompile("(?s)```redrift[ \t]*\n(.*?)\n```")

// ExtractBlock scans free text for the first fenced block tagged with the
// contract info-string and returns its trimmed body. The second result is
// false when no block is present; callers treat that as "no contract",
// not an error.
func ExtractBlock(description string) (string, bool) {
	m := fenceRe.FindStringSubmatch(description)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// Decode parses a contract block body into a Spec, applying defaults for
// absent keys and coercing loosely-typed values. A body that fails to
// parse as TOML is a hard error; callers must not downgrade it to a
// finding.
func Decode(body string) (*models.Spec, error) {
	var raw map[string]any
	if err := toml.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse redrift block: %w", err)
	}
	return fromRaw(raw), nil
}

func fromRaw(raw map[string]any) *models.Spec {
	s := &models.Spec{
		Schema:               asInt(raw["schema"], models.SupportedSchema),
		ArtifactRoot:         strings.TrimSpace(asString(raw["artifact_root"])),
		CreatePhaseFollowups: asBool(raw["create_phase_followups"], true),
		VerifyRequired:       asBool(raw["verify_required"], true),
		VerifyCommands:       asStringList(raw["verify_commands"]),
		VerifyAssertions:     asAssertionList(raw["verify_assertions"]),
		MaxFollowupDepth:     asInt(raw["max_followup_depth"], 1),
	}
	if s.ArtifactRoot == "" {
		s.ArtifactRoot = models.DefaultArtifactRoot
	}
	if s.MaxFollowupDepth < 0 {
		s.MaxFollowupDepth = 0
	}

	artifacts := asStringList(raw["required_artifacts"])
	if artifacts == nil {
		artifacts = append([]string(nil), models.DefaultRequiredArtifacts...)
	}
	s.RequiredArtifacts = normalizeArtifacts(artifacts)

	return s
}

// normalizeArtifacts trims entries, strips leading slashes, and drops
// blanks while preserving order.
func normalizeArtifacts(in []string) []string {
	out := make([]string, 0, len(in))
	for _, rel := range in {
		rel = strings.TrimPrefix(strings.TrimSpace(rel), "/")
		if rel == "" {
			continue
		}
		out = append(out, rel)
	}
	return out
}

func asInt(v any, fallback int) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i
		}
	}
	return fallback
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asBool(v any, fallback bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return fallback
}

// asStringList coerces a TOML array into trimmed, non-empty strings.
// Returns nil (not an empty slice) when the key was absent so callers can
// distinguish "unset" from "explicitly empty".
func asStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s := strings.TrimSpace(asString(item))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func asAssertionList(v any) []models.Assertion {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]models.Assertion, 0, len(items))
	for _, item := range items {
		table, ok := item.(map[string]any)
		if !ok {
			continue
		}
		kind := strings.ToLower(strings.TrimSpace(asString(table["kind"])))
		if kind == "" {
			kind = strings.ToLower(strings.TrimSpace(asString(table["type"])))
		}
		out = append(out, models.Assertion{
			Kind:    kind,
			Path:    strings.TrimSpace(asString(table["path"])),
			Max:     asInt(table["max"], 0),
			Pattern: asString(table["pattern"]),
			Include: asStringList(table["include"]),
			Raw:     table,
		})
	}
	return out
}
