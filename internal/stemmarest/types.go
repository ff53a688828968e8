package stemmarest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is an upstream identifier. The collation service emits ids both as JSON
// strings and as numbers depending on the endpoint, so both decode to the same
// canonical string.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %s", string(b))
	}
	*id = ID(n.String())
	return nil
}

// Canonical returns the id with numeric forms normalized ("007" and "7" compare
// equal), so node lookups match regardless of how an endpoint encoded it.
func (id ID) Canonical() string {
	s := strings.TrimSpace(string(id))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return strconv.FormatInt(n, 10)
	}
	return s
}

func (id ID) String() string { return string(id) }

// Section is an entry of GET {base}/sections.
type Section struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

// Witness is an entry of GET {base}/witnesses.
type Witness struct {
	ID    ID     `json:"id,omitempty"`
	Sigil string `json:"sigil"`
}

// Reading is an entry of GET {base}/section/{id}/readings.
type Reading struct {
	ID         ID       `json:"id"`
	Rank       int      `json:"rank"`
	Text       string   `json:"text"`
	NormalForm string   `json:"normal_form,omitempty"`
	IsLemma    bool     `json:"is_lemma"`
	IsStart    bool     `json:"is_start"`
	IsEnd      bool     `json:"is_end"`
	JoinNext   bool     `json:"join_next"`
	JoinPrior  bool     `json:"join_prior"`
	Witnesses  []string `json:"witnesses,omitempty"`
}

// Link types on annotation records.
const (
	LinkBegin = "BEGIN"
	LinkEnd   = "END"
)

// Link connects an annotation to a reading or another annotation.
type Link struct {
	Type   string `json:"type"`
	Target ID     `json:"target"`
}

// Properties holds the free-form properties of an annotation record.
type Properties struct {
	Text       string `json:"text,omitempty"`
	Language   string `json:"language,omitempty"`
	Href       string `json:"href,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// AnnotationRecord is an entry of GET {base}/section/{id}/annotations.
type AnnotationRecord struct {
	ID         ID         `json:"id"`
	Label      string     `json:"label"`
	Properties Properties `json:"properties"`
	Links      []Link     `json:"links"`
}

// LinkTarget returns the target of the first link of the given type.
func (a *AnnotationRecord) LinkTarget(linkType string) (ID, bool) {
	for _, l := range a.Links {
		if l.Type == linkType {
			return l.Target, true
		}
	}
	return "", false
}

// LemmaText is the response of GET {base}/section/{id}/lemmatext.
type LemmaText struct {
	Text string `json:"text"`
}
