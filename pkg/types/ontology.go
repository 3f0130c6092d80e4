package types

// TypeDef declares one permitted entity or relation type name for an
// ontology, with extraction guidance.
type TypeDef struct {
	Name        string   `yaml:"name" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Examples    []string `yaml:"examples,omitempty" json:"examples,omitempty"`
}

// Ontology is an immutable extraction schema loaded from configuration
// at startup and referenced by Memory.OntologyName.
type Ontology struct {
	Name              string    `yaml:"name" json:"name"`
	EntityTypes       []TypeDef `yaml:"entity_types" json:"entity_types"`
	RelationTypes     []TypeDef `yaml:"relation_types" json:"relation_types"`
	PriorityEntities  []string  `yaml:"priority_entities,omitempty" json:"priority_entities,omitempty"`
	PriorityRelations []string  `yaml:"priority_relations,omitempty" json:"priority_relations,omitempty"`
	Instructions      string    `yaml:"instructions,omitempty" json:"instructions,omitempty"`
	MaxEntities       int       `yaml:"max_entities,omitempty" json:"max_entities,omitempty"`
	MaxRelations      int       `yaml:"max_relations,omitempty" json:"max_relations,omitempty"`
}

// HasEntityType reports whether name is declared by the ontology.
func (o *Ontology) HasEntityType(name string) bool {
	for _, t := range o.EntityTypes {
		if t.Name == name {
			return true
		}
	}
	return false
}

// NormalizeEntityType coerces name to "Other" if the ontology does not
// declare it, per the spec's type-coercion rule.
func (o *Ontology) NormalizeEntityType(name string) string {
	if name == "" || !o.HasEntityType(name) {
		return OtherEntityType
	}
	return name
}
