package normalize

import (
	"fmt"
	"html"
	"regexp"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// StripTags removes inline markup such as <i> or <span class="x"> from s.
// Entities are left untouched; PlainText decodes them as well.
func StripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// PlainText returns s without markup and with entities decoded, ready to be
// escaped once for XML output.
func PlainText(s string) string {
	return html.UnescapeString(StripTags(s))
}

// SectionAnnotations is the typed view of a section's annotation records.
type SectionAnnotations struct {
	Titles      models.Titles
	Annotations []models.Annotation
	Warnings    []models.Warning
}

// Annotations splits a section's annotation records into titles and aligned
// annotations. Aligned annotations are grouped by kind in the fixed order
// comment, person, place, date, event; that order decides tag nesting later.
// Records without a BEGIN or END link are skipped with a warning, as is a
// missing title language.
func Annotations(sectionID string, records []stemmarest.AnnotationRecord) SectionAnnotations {
	var out SectionAnnotations
	byLabel := make(map[string][]stemmarest.AnnotationRecord)
	for _, rec := range records {
		byLabel[rec.Label] = append(byLabel[rec.Label], rec)
	}

	out.Titles, out.Warnings = Titles(sectionID, byLabel[models.LabelTitle])

	for _, label := range models.AlignedLabels {
		kind, _ := models.KindForLabel(label)
		for _, rec := range byLabel[label] {
			a, err := annotationRef(rec, kind)
			if err != nil {
				out.Warnings = append(out.Warnings, models.Warning{
					Kind:         models.WarningMissingLink,
					SectionID:    sectionID,
					AnnotationID: rec.ID.String(),
					Detail:       err.Error(),
				})
				continue
			}
			out.Annotations = append(out.Annotations, a)
		}
	}
	return out
}

func annotationRef(rec stemmarest.AnnotationRecord, kind models.AnnotationKind) (models.Annotation, error) {
	begin, ok := rec.LinkTarget(stemmarest.LinkBegin)
	if !ok {
		return models.Annotation{}, fmt.Errorf("%s annotation has no %s link", rec.Label, stemmarest.LinkBegin)
	}
	end, ok := rec.LinkTarget(stemmarest.LinkEnd)
	if !ok {
		return models.Annotation{}, fmt.Errorf("%s annotation has no %s link", rec.Label, stemmarest.LinkEnd)
	}
	return models.Annotation{
		ID:          rec.ID.String(),
		Kind:        kind,
		BeginNodeID: begin.Canonical(),
		EndNodeID:   end.Canonical(),
		Text:        StripTags(rec.Properties.Text),
	}, nil
}

// Titles picks the English and Armenian titles from TITLE records. A missing
// language leaves that title empty and is reported.
func Titles(sectionID string, recs []stemmarest.AnnotationRecord) (models.Titles, []models.Warning) {
	var t models.Titles
	if len(recs) == 0 {
		return t, []models.Warning{{
			Kind:      models.WarningMissingTitle,
			SectionID: sectionID,
			Detail:    "no title for section",
		}}
	}
	for _, rec := range recs {
		switch rec.Properties.Language {
		case "en":
			if t.English == "" {
				t.English = rec.Properties.Text
			}
		case "hy":
			if t.Armenian == "" {
				t.Armenian = rec.Properties.Text
			}
		}
	}
	var warnings []models.Warning
	if t.English == "" {
		warnings = append(warnings, models.Warning{
			Kind: models.WarningMissingTitle, SectionID: sectionID, Detail: "no English title",
		})
	}
	if t.Armenian == "" {
		warnings = append(warnings, models.Warning{
			Kind: models.WarningMissingTitle, SectionID: sectionID, Detail: "no Armenian title",
		})
	}
	return t, warnings
}
