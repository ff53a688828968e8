package tei

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/antchfx/xmlquery"

	"github.com/hyperjump/stemmaflat/internal/models"
)

// DefaultTitle is the edition title used when none is configured.
const DefaultTitle = "The Chronicle of Matthew of Edessa Eclectic Edition"

// Document is a complete lemma edition.
type Document struct {
	Title    string
	Sections []models.SectionTEI
}

const header = `<?xml version="1.0" encoding="utf-8"?>
<?xml-model href="http://www.tei-c.org/release/xml/tei/custom/schema/relaxng/tei_all.rng" type="application/xml" schematypens="http://relaxng.org/ns/structure/1.0"?>
<TEI xmlns="http://www.tei-c.org/ns/1.0">
    <teiHeader xml:id="header">
        <fileDesc>
            <titleStmt>
                <title>%s</title>
            </titleStmt>
            <publicationStmt>
                <p/>
            </publicationStmt>
            <sourceDesc>
                <p/>
            </sourceDesc>
        </fileDesc>
    </teiHeader>
    <text xml:id="lemma">
        <body xml:lang="hy">`

// WriteDocument writes doc as TEI-XML. Sections appear in slice order and
// their registry fragments are merged in the same order into standOff; a
// standOff list with no entries is omitted.
func WriteDocument(w io.Writer, doc Document) error {
	title := doc.Title
	if title == "" {
		title = DefaultTitle
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, header, escape(title))
	for _, s := range doc.Sections {
		bw.WriteString(s.Body)
	}
	bw.WriteString("\n" + indent(2) + "</body>\n" + indent(1) + "</text>\n" + indent(1) + "<standOff>")

	lists := MergeRegistryLists(doc.Sections)
	for _, l := range []struct{ element, content string }{
		{"listPerson", lists.People},
		{"listPlace", lists.Places},
		{"listEvent", lists.Events},
		{"listAnnotation", lists.Annotations},
	} {
		if l.content == "" {
			continue
		}
		fmt.Fprintf(bw, "\n%s<%s>\n%s%s</%s>", indent(2), l.element, l.content, indent(2), l.element)
	}
	bw.WriteString("\n" + indent(1) + "</standOff>\n</TEI>\n")
	return bw.Flush()
}

// Render returns the document as bytes.
func Render(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteDocument(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Validate checks that data is a well-formed TEI document with a lemma body.
func Validate(data []byte) error {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("parsing TEI: %w", err)
	}
	root := childElement(doc, "TEI")
	if root == nil {
		return fmt.Errorf("root element is not TEI")
	}
	if childElement(childElement(root, "text"), "body") == nil {
		return fmt.Errorf("TEI document has no text body")
	}
	return nil
}

func childElement(n *xmlquery.Node, name string) *xmlquery.Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode && c.Data == name {
			return c
		}
	}
	return nil
}
