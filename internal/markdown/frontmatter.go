package markdown

import (
	"bytes"
	"fmt"
	"maps"

	"github.com/adrg/frontmatter"
)

// FrontMatter is the metadata block of a static page.
type FrontMatter struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Locale      string         `yaml:"locale"`
	Custom      map[string]any `yaml:",inline"`
}

// ParseFrontMatter splits source into its metadata and markdown body.
// Sources without a front matter block yield empty metadata.
func ParseFrontMatter(source []byte) (FrontMatter, []byte, error) {
	var meta FrontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &meta)
	if err != nil {
		return FrontMatter{}, nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	custom := make(map[string]any, len(meta.Custom))
	maps.Copy(custom, meta.Custom)
	meta.Custom = custom
	return meta, body, nil
}
