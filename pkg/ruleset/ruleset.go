// Package ruleset loads rule sets and line builds from YAML or JSON
// documents and rejects structurally broken ones before they reach an
// evaluator.
package ruleset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dukex/lineforge/pkg/graph"
	"github.com/dukex/lineforge/pkg/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrInvalidDocument is returned for documents that cannot be decoded.
var ErrInvalidDocument = errors.New("invalid document")

var validate = validator.New()

// Document is the on-disk shape of a rule set. A bare list of rules is
// accepted too.
type Document struct {
	Rules []models.ValidationRule `json:"rules"`
}

// FormatFromPath picks the format by file extension; anything that is not
// .json is read as YAML, which also covers JSON.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}

	return FormatYAML
}

// LoadRules decodes and checks a rule set.
func LoadRules(r io.Reader, format Format) ([]models.ValidationRule, error) {
	raw, err := toJSON(r, format)
	if err != nil {
		return nil, err
	}

	var rules []models.ValidationRule

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(raw, &rules)
	} else {
		var doc Document

		err = json.Unmarshal(raw, &doc)
		rules = doc.Rules
	}

	if err != nil {
		return nil, fmt.Errorf("%w: rules: %w", ErrInvalidDocument, err)
	}

	if err := CheckRules(rules); err != nil {
		return nil, err
	}

	return rules, nil
}

// CheckRules verifies every rule is well formed and ids are unique.
func CheckRules(rules []models.ValidationRule) error {
	seen := make(map[string]bool, len(rules))

	for i, rule := range rules {
		if err := validate.Struct(rule); err != nil {
			return fmt.Errorf("%w: rule #%d: %w", models.ErrRuleInvalid, i, err)
		}

		if seen[rule.ID] {
			return fmt.Errorf("%w: duplicate rule id %q", models.ErrRuleInvalid, rule.ID)
		}

		seen[rule.ID] = true

		if err := rule.Check(); err != nil {
			return err
		}
	}

	return nil
}

// LoadBuild decodes a line build and checks its work units and graph. A
// missing status means draft.
func LoadBuild(r io.Reader, format Format) (*models.LineBuild, error) {
	raw, err := toJSON(r, format)
	if err != nil {
		return nil, err
	}

	var build models.LineBuild
	if err := json.Unmarshal(raw, &build); err != nil {
		return nil, fmt.Errorf("%w: line build: %w", ErrInvalidDocument, err)
	}

	if build.Status == "" {
		build.Status = models.BuildStatusDraft
	}

	if err := CheckBuild(&build); err != nil {
		return nil, err
	}

	return &build, nil
}

// CheckBuild verifies field constraints, unique unit ids and that the
// dependency graph has no self references, dangling ids or cycles.
func CheckBuild(build *models.LineBuild) error {
	if err := validate.Struct(build); err != nil {
		return fmt.Errorf("%w: line build: %w", ErrInvalidDocument, err)
	}

	seen := make(map[string]bool, len(build.WorkUnits))

	for _, unit := range build.WorkUnits {
		if seen[unit.ID] {
			return fmt.Errorf("%w: duplicate work unit id %q", ErrInvalidDocument, unit.ID)
		}

		seen[unit.ID] = true
	}

	for _, unit := range build.WorkUnits {
		if err := graph.ValidateNewEdge(build, unit.ID, unit.DependsOn); err != nil {
			return err
		}
	}

	return nil
}

// LoadRulesFile reads a rule set from path.
func LoadRulesFile(path string) ([]models.ValidationRule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	return LoadRules(f, FormatFromPath(path))
}

// LoadBuildFile reads a line build from path.
func LoadBuildFile(path string) (*models.LineBuild, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open build file: %w", err)
	}
	defer f.Close()

	return LoadBuild(f, FormatFromPath(path))
}

// toJSON normalizes a document to JSON so the models' JSON decoding rules
// apply to YAML input as well.
func toJSON(r io.Reader, format Format) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	if format == FormatJSON {
		if !json.Valid(data) {
			return nil, fmt.Errorf("%w: malformed JSON", ErrInvalidDocument)
		}

		return data, nil
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	out, err := json.Marshal(jsonCompatible(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	return out, nil
}

// jsonCompatible rewrites YAML maps with non-string keys so encoding/json
// accepts them.
func jsonCompatible(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			node[k] = jsonCompatible(child)
		}

		return node
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[fmt.Sprint(k)] = jsonCompatible(child)
		}

		return out
	case []any:
		for i, child := range node {
			node[i] = jsonCompatible(child)
		}

		return node
	default:
		return v
	}
}
