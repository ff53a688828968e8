// Package gazetteer resolves PLACE annotations to coordinates using Pleiades,
// GeoNames and the Syriaca.org gazetteer.
package gazetteer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
)

// LocationsFile is the name of the generated gazetteer file.
const LocationsFile = "locations.json"

// SyriacaProvenance is recorded for places found through Syriaca.org.
const SyriacaProvenance = "http://syriaca.org/"

// Source is the subset of the collation client the resolver uses.
type Source interface {
	TraditionAnnotations(ctx context.Context, label string) ([]stemmarest.AnnotationRecord, error)
	GetJSON(ctx context.Context, rawURL string, v interface{}) error
	GetBody(ctx context.Context, rawURL string) ([]byte, error)
}

// Location is one entry of locations.json.
type Location struct {
	ID                  string            `json:"id"`
	Title               string            `json:"title"`
	Provenance          string            `json:"provenance"`
	RepresentativePoint json.RawMessage   `json:"representativePoint,omitempty"`
	Geometry            json.RawMessage   `json:"geometry"`
	Links               []stemmarest.Link `json:"links"`
}

// Resolver looks places up in the online gazetteers.
type Resolver struct {
	src              Source
	geonamesURL      string
	geonamesUsername string
	concurrency      int
	logger           *zap.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithGeonames sets the GeoNames getJSON endpoint and account name.
func WithGeonames(endpoint, username string) ResolverOption {
	return func(r *Resolver) {
		if endpoint != "" {
			r.geonamesURL = endpoint
		}
		r.geonamesUsername = username
	}
}

// WithConcurrency bounds how many places are resolved at once.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets a logger.
func WithLogger(l *zap.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver.
func NewResolver(src Source, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		src:         src,
		geonamesURL: "http://api.geonames.org/getJSON",
		concurrency: 4,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// Generate fetches the tradition's PLACE annotations, resolves them and writes
// locations.json to outDir.
func (r *Resolver) Generate(ctx context.Context, outDir string) (*models.Report, error) {
	report := &models.Report{
		RunID:     uuid.New().String(),
		Command:   "locations",
		OutputDir: outDir,
		Started:   time.Now(),
	}
	defer func() { report.Finished = time.Now() }()

	places, err := r.src.TraditionAnnotations(ctx, models.LabelPlace)
	if err != nil {
		return report, fmt.Errorf("fetch places: %w", err)
	}
	locations, warnings := r.Resolve(ctx, places)
	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Warn(warnings...)

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return report, fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.Marshal(locations)
	if err != nil {
		return report, fmt.Errorf("encode locations: %w", err)
	}
	path := filepath.Join(outDir, LocationsFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return report, fmt.Errorf("write %s: %w", LocationsFile, err)
	}
	report.Files = append(report.Files, path)

	r.logger.Info("locations written",
		zap.String("path", path),
		zap.Int("places", len(places)),
		zap.Int("locations", len(locations)))
	return report, nil
}

// Resolve looks up every place with an href. Results keep the order of
// places; places that cannot be resolved are reported and left out.
func (r *Resolver) Resolve(ctx context.Context, places []stemmarest.AnnotationRecord) ([]Location, []models.Warning) {
	found := make([]*Location, len(places))
	failed := make([]*models.Warning, len(places))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, p := range places {
		href := strings.TrimSpace(p.Properties.Href)
		if href == "" {
			r.logger.Debug("place has no href", zap.String("annotation", p.ID.String()))
			continue
		}
		i, p := i, p
		g.Go(func() error {
			loc, err := r.resolve(ctx, href, p)
			if err != nil {
				failed[i] = &models.Warning{
					Kind:         models.WarningGazetteer,
					AnnotationID: p.ID.String(),
					Detail:       err.Error(),
				}
				return nil
			}
			found[i] = loc
			return nil
		})
	}
	_ = g.Wait()

	var (
		locations = make([]Location, 0, len(places))
		warnings  []models.Warning
	)
	for i := range places {
		if found[i] != nil {
			locations = append(locations, *found[i])
		}
		if failed[i] != nil {
			warnings = append(warnings, *failed[i])
		}
	}
	return locations, warnings
}

func (r *Resolver) resolve(ctx context.Context, href string, place stemmarest.AnnotationRecord) (*Location, error) {
	switch {
	case strings.Contains(href, "pleiades"):
		return r.pleiades(ctx, href, place, "")
	case strings.Contains(href, "geonames"):
		return r.geonames(ctx, href, place)
	case strings.Contains(href, "syriaca"):
		return r.syriaca(ctx, href, place)
	}
	return nil, fmt.Errorf("no gazetteer for %s", href)
}

type pleiadesRecord struct {
	ID         stemmarest.ID   `json:"id"`
	Provenance string          `json:"provenance"`
	ReprPoint  json.RawMessage `json:"reprPoint"`
	Features   json.RawMessage `json:"features"`
}

// pleiades fetches a Pleiades place. A non-empty provenance overrides the one
// in the record.
func (r *Resolver) pleiades(ctx context.Context, href string, place stemmarest.AnnotationRecord, provenance string) (*Location, error) {
	var rec pleiadesRecord
	if err := r.src.GetJSON(ctx, PleiadesJSONURL(href), &rec); err != nil {
		return nil, err
	}
	if provenance == "" {
		provenance = rec.Provenance
	}
	return &Location{
		ID:                  rec.ID.String(),
		Title:               place.Properties.Identifier,
		Provenance:          provenance,
		RepresentativePoint: rec.ReprPoint,
		Geometry:            rawOrNull(rec.Features),
		Links:               place.Links,
	}, nil
}

// PleiadesJSONURL returns the JSON representation URL of a Pleiades place page.
func PleiadesJSONURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if !strings.HasSuffix(strings.TrimRight(u.Path, "/"), "/json") {
		u.Path = strings.TrimRight(u.Path, "/") + "/json"
	}
	return u.String()
}

type geonamesRecord struct {
	GeonameID   stemmarest.ID   `json:"geonameId"`
	Lat         json.RawMessage `json:"lat"`
	Lng         json.RawMessage `json:"lng"`
	FclName     string          `json:"fclName"`
	FcodeName   string          `json:"fcodeName"`
	CountryName string          `json:"countryName"`
	AdminName1  string          `json:"adminName1"`
}

type pointFeature struct {
	Geometry struct {
		Type        string            `json:"type"`
		Coordinates []json.RawMessage `json:"coordinates"`
	} `json:"geometry"`
	Properties struct {
		Snippet     string `json:"snippet"`
		Description string `json:"description"`
		Link        string `json:"link"`
	} `json:"properties"`
}

// GeonamesID extracts the numeric id from a GeoNames page URL such as
// https://www.geonames.org/298795/sanliurfa.html.
func GeonamesID(href string) (string, bool) {
	parts := strings.Split(href, "/")
	if len(parts) < 4 || parts[3] == "" {
		return "", false
	}
	return parts[3], true
}

func (r *Resolver) geonames(ctx context.Context, href string, place stemmarest.AnnotationRecord) (*Location, error) {
	id, ok := GeonamesID(href)
	if !ok {
		return nil, fmt.Errorf("no geonames id in %s", href)
	}
	q := url.Values{"id": {id}}
	if r.geonamesUsername != "" {
		q.Set("username", r.geonamesUsername)
	}
	var rec geonamesRecord
	if err := r.src.GetJSON(ctx, r.geonamesURL+"?"+q.Encode(), &rec); err != nil {
		return nil, err
	}

	var f pointFeature
	f.Geometry.Type = "Point"
	f.Geometry.Coordinates = []json.RawMessage{rawOrNull(rec.Lng), rawOrNull(rec.Lat)}
	f.Properties.Snippet = rec.FclName + ", " + rec.FcodeName
	f.Properties.Description = "country: " + rec.CountryName + " admin: " + rec.AdminName1
	f.Properties.Link = href
	geometry, err := json.Marshal([]pointFeature{f})
	if err != nil {
		return nil, err
	}
	return &Location{
		ID:         rec.GeonameID.String(),
		Title:      place.Properties.Identifier,
		Provenance: "geonames.org",
		Geometry:   geometry,
		Links:      place.Links,
	}, nil
}

func (r *Resolver) syriaca(ctx context.Context, href string, place stemmarest.AnnotationRecord) (*Location, error) {
	body, err := r.src.GetBody(ctx, href)
	if err != nil {
		return nil, err
	}
	link, err := FindPleiadesLink(body)
	if err != nil {
		return nil, err
	}
	if link == "" {
		return nil, fmt.Errorf("no pleiades link on %s", href)
	}
	return r.pleiades(ctx, link, place, SyriacaProvenance)
}

// FindPleiadesLink returns the href of the first anchor on an HTML page that
// points at Pleiades, or "".
func FindPleiadesLink(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(bytes.TrimSpace(page)))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	link, _ := doc.Find(`a[href*="pleiades"]`).First().Attr("href")
	return link, nil
}

func rawOrNull(m json.RawMessage) json.RawMessage {
	if len(m) == 0 {
		return json.RawMessage("null")
	}
	return m
}
