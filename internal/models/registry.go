package models

// RegistryEntry is one person, place, event or comment in a standOff list.
type RegistryEntry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Registries holds the per-kind standOff entries collected from a section.
// Each id appears at most once per list.
type Registries struct {
	People      []RegistryEntry `json:"people,omitempty"`
	Places      []RegistryEntry `json:"places,omitempty"`
	Events      []RegistryEntry `json:"events,omitempty"`
	Annotations []RegistryEntry `json:"annotations,omitempty"`
}

// Empty reports whether all four lists are empty.
func (r Registries) Empty() bool {
	return len(r.People) == 0 && len(r.Places) == 0 && len(r.Events) == 0 && len(r.Annotations) == 0
}

// Len returns the total number of entries.
func (r Registries) Len() int {
	return len(r.People) + len(r.Places) + len(r.Events) + len(r.Annotations)
}

// SectionTEI is the serialized form of one section: its <div> body and the
// registries it contributes to the document standOff.
type SectionTEI struct {
	SectionID  string     `json:"section_id"`
	Body       string     `json:"body"`
	Registries Registries `json:"registries"`
}
