// Package config loads a YAML source-file into a set of model.DataSource
// values: one top-level mapping entry per source name, each either a
// single descriptor shape or a mapping of named sub-sections sharing that
// shape.
//
// Parsing uses gopkg.in/yaml.v3: read the whole file, unmarshal into a
// typed Go value, validate, done. There is no runtime write path.
package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/kluzzebass/logspan/internal/extract"
	"github.com/kluzzebass/logspan/internal/model"
)

// ErrInvalidConfig wraps a configuration-time validation failure, so
// callers can distinguish it from I/O or YAML-syntax errors via errors.As.
type ErrInvalidConfig struct {
	Detail string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Detail)
}

// descriptorShape is the YAML shape of a single descriptor, shared by a
// top-level source block and a nested sub-section.
type descriptorShape struct {
	Paths             []string `yaml:"paths"`
	Include           []string `yaml:"include"`
	Exclude           []string `yaml:"exclude"`
	FileTimeIsEndTime *bool    `yaml:"file_time_is_end_time"`
	Extractor         string   `yaml:"extractor"`
	IndexType         string   `yaml:"index_type"`
	IndexPath         string   `yaml:"index_path"`
	Indexer           string   `yaml:"indexer"`
	ReindexCron       string   `yaml:"reindex_cron"`
}

// isDescriptorShape reports whether a raw YAML mapping looks like a
// descriptor (has a "paths" key) rather than a mapping of sub-sections.
func isDescriptorShape(raw map[string]yaml.Node) bool {
	_, ok := raw["paths"]
	return ok
}

// Load reads and validates the source file at path, returning one
// model.DataSource per top-level YAML key.
func Load(path string) (map[string]*model.DataSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var root map[string]map[string]yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sources := make(map[string]*model.DataSource, len(root))
	for sourceName, raw := range root {
		ds, err := loadSource(sourceName, raw)
		if err != nil {
			return nil, err
		}
		sources[sourceName] = ds
	}

	if err := validateIndexPathUniqueness(sources); err != nil {
		return nil, err
	}

	return sources, nil
}

// loadSource builds a single DataSource from its raw YAML mapping, which
// is either a descriptor shape directly or a mapping of named
// sub-sections each holding a descriptor shape.
func loadSource(sourceName string, raw map[string]yaml.Node) (*model.DataSource, error) {
	if isDescriptorShape(raw) {
		shape, err := decodeDescriptorShape(raw)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", sourceName, err)
		}
		desc, err := toDescriptor(sourceName, sourceName, shape)
		if err != nil {
			return nil, err
		}
		return &model.DataSource{Name: sourceName, Descriptors: []*model.Descriptor{desc}}, nil
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	descriptors := make([]*model.Descriptor, 0, len(names))
	for _, subName := range names {
		var subRaw map[string]yaml.Node
		subNode := raw[subName]
		if err := subNode.Decode(&subRaw); err != nil {
			return nil, fmt.Errorf("source %q sub-section %q: %w", sourceName, subName, err)
		}
		shape, err := decodeDescriptorShape(subRaw)
		if err != nil {
			return nil, fmt.Errorf("source %q sub-section %q: %w", sourceName, subName, err)
		}
		desc, err := toDescriptor(sourceName, subName, shape)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, desc)
	}
	return &model.DataSource{Name: sourceName, Descriptors: descriptors}, nil
}

func decodeDescriptorShape(raw map[string]yaml.Node) (descriptorShape, error) {
	var shape descriptorShape
	node := mapToNode(raw)
	if err := node.Decode(&shape); err != nil {
		return shape, fmt.Errorf("decode descriptor: %w", err)
	}
	return shape, nil
}

// mapToNode rebuilds a mapping yaml.Node from a decoded map so it can be
// re-decoded into the strongly typed descriptorShape.
func mapToNode(raw map[string]yaml.Node) yaml.Node {
	node := yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyNode := yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}
		valNode := raw[k]
		node.Content = append(node.Content, &keyNode, &valNode)
	}
	return node
}

// toDescriptor converts a decoded shape into a model.Descriptor, applying
// defaults (file_time_is_end_time: true, index_type: sqlite) and
// validating the extractor name against the registry.
func toDescriptor(sourceName, name string, shape descriptorShape) (*model.Descriptor, error) {
	if err := extract.Lookup(shape.Extractor); err != nil {
		return nil, fmt.Errorf("source %q descriptor %q: %w", sourceName, name, &ErrInvalidConfig{Detail: err.Error()})
	}

	fileTimeIsEndTime := true
	if shape.FileTimeIsEndTime != nil {
		fileTimeIsEndTime = *shape.FileTimeIsEndTime
	}

	indexType := model.IndexSQLite
	switch shape.IndexType {
	case "", string(model.IndexSQLite):
		indexType = model.IndexSQLite
	case string(model.IndexSQLiteNFS):
		indexType = model.IndexSQLiteNFS
	default:
		return nil, &ErrInvalidConfig{Detail: fmt.Sprintf("source %q descriptor %q: unknown index_type %q", sourceName, name, shape.IndexType)}
	}

	return &model.Descriptor{
		Name:              name,
		Source:            sourceName,
		Paths:             shape.Paths,
		Include:           shape.Include,
		Exclude:           shape.Exclude,
		FileTimeIsEndTime: fileTimeIsEndTime,
		Extractor:         shape.Extractor,
		IndexType:         indexType,
		IndexPath:         shape.IndexPath,
		Indexer:           shape.Indexer,
		ReindexCron:       shape.ReindexCron,
	}, nil
}

// validateIndexPathUniqueness enforces that two descriptors in different
// sources may not share an index_path (descriptors within one source may,
// deliberately, to model a shared index).
func validateIndexPathUniqueness(sources map[string]*model.DataSource) error {
	owner := make(map[string]string) // index_path -> source name
	for sourceName, ds := range sources {
		for _, desc := range ds.Descriptors {
			if desc.IndexPath == "" {
				continue
			}
			if existing, ok := owner[desc.IndexPath]; ok && existing != sourceName {
				return &ErrInvalidConfig{Detail: fmt.Sprintf(
					"index_path %q is shared by sources %q and %q", desc.IndexPath, existing, sourceName)}
			}
			owner[desc.IndexPath] = sourceName
		}
	}
	return nil
}
