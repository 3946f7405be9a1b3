package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/rag-builder-assistant/internal/core/domain"
)

type fileFormat struct {
	Topics []domain.Topic `yaml:"topics"`
}

// LoadFile reads a topic table from YAML:
//
//	topics:
//	  - topic: chunking
//	    keywords: [chunk, overlap]
//
// An empty path returns the built-in table.
func LoadFile(path string) (domain.Taxonomy, error) {
	if path == "" {
		return domain.DefaultTaxonomy(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Taxonomy{}, fmt.Errorf("read taxonomy: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (domain.Taxonomy, error) {
	var file fileFormat
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.Taxonomy{}, fmt.Errorf("parse taxonomy: %w", err)
	}
	taxonomy := domain.NewTaxonomy(file.Topics)
	if taxonomy.Len() == 0 {
		return domain.Taxonomy{}, fmt.Errorf("parse taxonomy: no topics with keywords")
	}
	return taxonomy, nil
}
