package catalog

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-cardform/pkg/mask"
	"github.com/goliatone/go-cardform/pkg/model"
	"github.com/goliatone/go-cardform/pkg/resolver"
)

type documentFile struct {
	FieldSets map[string][]model.FieldDefinition `json:"fieldSets" yaml:"fieldSets"`
	Products  []productFile                      `json:"products" yaml:"products"`
	Ranges    []Range                            `json:"ranges" yaml:"ranges"`
}

type productFile struct {
	model.NetworkProduct `yaml:",inline"`
	FieldSet             string `json:"fieldSet,omitempty" yaml:"fieldSet,omitempty"`
}

// LoadFS walks fsys and merges every JSON/YAML catalog file into one
// catalog. Field sets are shared across files; products and ranges are
// validated once everything has been read.
func LoadFS(fsys fs.FS, options ...Option) (*Catalog, error) {
	if fsys == nil {
		return New(nil, nil, options...)
	}

	fieldSets := make(map[string][]model.FieldDefinition)
	var (
		products []productFile
		ranges   []Range
	)
	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isCatalogFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("catalog: read %s: %w", path, err)
		}
		doc, err := parseDocument(data, path)
		if err != nil {
			return err
		}
		for name, defs := range doc.FieldSets {
			if _, exists := fieldSets[name]; exists {
				return fmt.Errorf("catalog: duplicate field set %q (file %s)", name, path)
			}
			fieldSets[name] = defs
		}
		products = append(products, doc.Products...)
		ranges = append(ranges, doc.Ranges...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	resolved := make([]model.NetworkProduct, 0, len(products))
	for _, raw := range products {
		product, err := normaliseProduct(raw, fieldSets)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, product)
	}
	return New(resolved, ranges, options...)
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("catalog: file %s is empty", source)
	}
	if strings.EqualFold(filepath.Ext(source), ".json") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return documentFile{}, fmt.Errorf("catalog: parse %s: %w", source, err)
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("catalog: parse %s: %w", source, err)
	}
	return doc, nil
}

func normaliseProduct(raw productFile, fieldSets map[string][]model.FieldDefinition) (model.NetworkProduct, error) {
	product := raw.NetworkProduct
	if name := strings.TrimSpace(raw.FieldSet); name != "" {
		shared, ok := fieldSets[name]
		if !ok {
			return model.NetworkProduct{}, fmt.Errorf("catalog: product %q references unknown field set %q", product.ID, name)
		}
		product.Fields = append(append([]model.FieldDefinition(nil), shared...), product.Fields...)
	}

	seen := make(map[string]struct{}, len(product.Fields))
	for i, def := range product.Fields {
		if def.ID == "" {
			return model.NetworkProduct{}, fmt.Errorf("catalog: product %q field %d has no id", product.ID, i)
		}
		if _, dup := seen[def.ID]; dup {
			return model.NetworkProduct{}, fmt.Errorf("catalog: product %q defines field %q twice", product.ID, def.ID)
		}
		seen[def.ID] = struct{}{}
		if def.Kind == "" {
			product.Fields[i].Kind = model.KindText
		} else if !def.Kind.Valid() {
			return model.NetworkProduct{}, fmt.Errorf("catalog: product %q field %q has unknown kind %q", product.ID, def.ID, def.Kind)
		}
		if _, err := mask.Parse(def.MaskPattern); err != nil {
			return model.NetworkProduct{}, fmt.Errorf("catalog: product %q field %q: %w", product.ID, def.ID, err)
		}
	}

	if err := model.Decorate(&product, resolver.Sanitizer{}); err != nil {
		return model.NetworkProduct{}, fmt.Errorf("catalog: product %q: %w", product.ID, err)
	}
	return product, nil
}

func isCatalogFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
