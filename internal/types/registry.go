package types

// RegistrySchema is the literal schema marker carried by every registry file.
const RegistrySchema = "brain://registry/v2"

// RegistryVersion is the registry document version.
const RegistryVersion = "2.0"

// RegistryEntry is the denormalized projection of one entity.
type RegistryEntry struct {
	Ref                string     `yaml:"ref" json:"ref"`
	Type               EntityType `yaml:"type" json:"type"`
	Status             Status     `yaml:"status,omitempty" json:"status,omitempty"`
	Version            int        `yaml:"version" json:"version"`
	Updated            string     `yaml:"updated,omitempty" json:"updated,omitempty"`
	Aliases            []string   `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Role               string     `yaml:"role,omitempty" json:"role,omitempty"`
	Team               string     `yaml:"team,omitempty" json:"team,omitempty"`
	Owner              string     `yaml:"owner,omitempty" json:"owner,omitempty"`
	RelationshipsCount int        `yaml:"relationships_count" json:"relationships_count"`
	Confidence         float64    `yaml:"confidence" json:"confidence"`
}

// RegistryStats aggregates counts over the registry.
type RegistryStats struct {
	Total    int            `yaml:"total" json:"total"`
	ByType   map[string]int `yaml:"by_type" json:"by_type"`
	ByStatus map[string]int `yaml:"by_status" json:"by_status"`
	V2Format int            `yaml:"v2_format" json:"v2_format"`
}

// Registry is a rebuildable projection over the entity store. It is never
// the source of truth; anything here can be re-derived from entity files.
type Registry struct {
	Schema     string                    `yaml:"schema" json:"schema"`
	Version    string                    `yaml:"version" json:"version"`
	Generated  string                    `yaml:"generated" json:"generated"`
	Entities   map[string]*RegistryEntry `yaml:"entities" json:"entities"`
	AliasIndex map[string]string         `yaml:"alias_index" json:"alias_index"`
	Stats      RegistryStats             `yaml:"stats" json:"stats"`
}

// NewRegistry returns an empty registry with schema markers set.
func NewRegistry() *Registry {
	return &Registry{
		Schema:     RegistrySchema,
		Version:    RegistryVersion,
		Entities:   make(map[string]*RegistryEntry),
		AliasIndex: make(map[string]string),
		Stats: RegistryStats{
			ByType:   make(map[string]int),
			ByStatus: make(map[string]int),
		},
	}
}

// SlugForAlias resolves a lower-cased alias to a slug, if indexed.
func (r *Registry) SlugForAlias(alias string) (string, bool) {
	slug, ok := r.AliasIndex[alias]
	return slug, ok
}
