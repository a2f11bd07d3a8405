package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// JSONFile reads a JSON document and flattens it into environment keys.
type JSONFile struct {
	path string
}

// NewJSONFile creates a JSON file source.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Name implements resolver.Resolver.
func (j *JSONFile) Name() string {
	return "json_file:" + j.path
}

// Metadata implements resolver.Resolver.
func (j *JSONFile) Metadata() map[string]interface{} {
	return map[string]interface{}{"path": j.path}
}

// Load implements resolver.Resolver.
func (j *JSONFile) Load(ctx context.Context) (map[string]string, error) {
	return j.LoadSync()
}

// LoadSync implements resolver.SyncResolver.
func (j *JSONFile) LoadSync() (map[string]string, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid JSON: %w", j.path, err)
	}
	return Flatten(doc), nil
}

// YAMLFile reads a YAML document and flattens it into environment keys.
type YAMLFile struct {
	path string
}

// NewYAMLFile creates a YAML file source.
func NewYAMLFile(path string) *YAMLFile {
	return &YAMLFile{path: path}
}

// Name implements resolver.Resolver.
func (y *YAMLFile) Name() string {
	return "yaml_file:" + y.path
}

// Metadata implements resolver.Resolver.
func (y *YAMLFile) Metadata() map[string]interface{} {
	return map[string]interface{}{"path": y.path}
}

// Load implements resolver.Resolver.
func (y *YAMLFile) Load(ctx context.Context) (map[string]string, error) {
	return y.LoadSync()
}

// LoadSync implements resolver.SyncResolver.
func (y *YAMLFile) LoadSync() (map[string]string, error) {
	data, err := os.ReadFile(y.path)
	if err != nil {
		return nil, err
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: invalid YAML: %w", y.path, err)
	}
	normalized, _ := normalizeYAML(doc).(map[string]interface{})
	return Flatten(normalized), nil
}
