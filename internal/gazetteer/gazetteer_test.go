package gazetteer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/stemmarest"
)

func place(id, href, identifier string) stemmarest.AnnotationRecord {
	return stemmarest.AnnotationRecord{
		ID:         stemmarest.ID(id),
		Label:      models.LabelPlace,
		Properties: stemmarest.Properties{Href: href, Identifier: identifier},
		Links:      []stemmarest.Link{{Type: "PLACEREF", Target: stemmarest.ID("r" + id)}},
	}
}

func gazetteerServer(t *testing.T) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pleiades/places/658457/json":
			fmt.Fprint(w, `{"id": "658457", "provenance": "Pleiades", "reprPoint": [38.79, 37.15], "features": [{"type": "Feature"}]}`)
		case "/pleiades/places/2/json":
			fmt.Fprint(w, `{"id": "2", "provenance": "Pleiades", "reprPoint": [1, 2], "features": []}`)
		case "/getJSON":
			if r.URL.Query().Get("id") != "298795" || r.URL.Query().Get("username") != "demo" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"geonameId": 298795, "lat": "37.16", "lng": "38.79", "fclName": "city, village,...",
				"fcodeName": "seat of a first-order administrative division", "countryName": "Turkey", "adminName1": "Şanlıurfa"}`)
		case "/syriaca/place/78":
			fmt.Fprintf(w, `
				<html><body>
				<a href="http://example.org/other">other</a>
				<a href="%s/pleiades/places/2">Pleiades</a>
				<a href="%s/pleiades/places/3">second</a>
				</body></html>`, srv.URL, srv.URL)
		case "/syriaca/place/79":
			fmt.Fprint(w, `<html><body><a href="/nowhere">none</a></body></html>`)
		case "/tradition/t/annotations":
			if r.URL.Query().Get("label") != "PLACE" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fmt.Fprintf(w, `[{"id": 1, "label": "PLACE", "properties": {"href": "%s/pleiades/places/658457", "identifier": "Edessa"}, "links": []}]`, srv.URL)
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

func TestResolve(t *testing.T) {
	srv := gazetteerServer(t)
	defer srv.Close()

	client := stemmarest.NewClient(srv.URL, stemmarest.WithRetries(1))
	r := NewResolver(client, WithGeonames(srv.URL+"/getJSON", "demo"), WithConcurrency(2))

	places := []stemmarest.AnnotationRecord{
		place("1", srv.URL+"/pleiades/places/658457", "Edessa"),
		place("2", srv.URL+"/298795/geonames-sanliurfa.html", "Urfa"),
		place("3", srv.URL+"/syriaca/place/78", "Samosata"),
		place("4", "", "nowhere"),
		place("5", srv.URL+"/syriaca/place/79", "Lost"),
		place("6", "http://example.org/unknown", "Unknown"),
	}
	locations, warnings := r.Resolve(context.Background(), places)

	if len(locations) != 3 {
		t.Fatalf("locations = %+v", locations)
	}
	pl := locations[0]
	if pl.ID != "658457" || pl.Title != "Edessa" || pl.Provenance != "Pleiades" {
		t.Errorf("pleiades = %+v", pl)
	}
	if string(pl.RepresentativePoint) != "[38.79, 37.15]" {
		t.Errorf("reprPoint = %s", pl.RepresentativePoint)
	}
	if len(pl.Links) != 1 || pl.Links[0].Target != "r1" {
		t.Errorf("links = %+v", pl.Links)
	}

	gn := locations[1]
	if gn.ID != "298795" || gn.Provenance != "geonames.org" {
		t.Errorf("geonames = %+v", gn)
	}
	var features []pointFeature
	if err := json.Unmarshal(gn.Geometry, &features); err != nil {
		t.Fatal(err)
	}
	if len(features) != 1 || features[0].Geometry.Type != "Point" {
		t.Fatalf("features = %+v", features)
	}
	if string(features[0].Geometry.Coordinates[0]) != `"38.79"` || string(features[0].Geometry.Coordinates[1]) != `"37.16"` {
		t.Errorf("coordinates = %s", features[0].Geometry.Coordinates)
	}
	if features[0].Properties.Description != "country: Turkey admin: Şanlıurfa" {
		t.Errorf("description = %q", features[0].Properties.Description)
	}

	sy := locations[2]
	if sy.ID != "2" || sy.Provenance != SyriacaProvenance || sy.Title != "Samosata" {
		t.Errorf("syriaca = %+v", sy)
	}

	if len(warnings) != 2 {
		t.Fatalf("warnings = %+v", warnings)
	}
	if warnings[0].AnnotationID != "5" || warnings[1].AnnotationID != "6" {
		t.Errorf("warnings = %+v", warnings)
	}
	for _, w := range warnings {
		if w.Kind != models.WarningGazetteer {
			t.Errorf("kind = %s", w.Kind)
		}
	}
}

func TestGenerate(t *testing.T) {
	srv := gazetteerServer(t)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "data_1")
	client := stemmarest.NewClient(srv.URL + "/tradition/t")
	report, err := NewResolver(client).Generate(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Warnings) != 0 || len(report.Files) != 1 {
		t.Errorf("report = %+v", report)
	}
	data, err := os.ReadFile(filepath.Join(dir, LocationsFile))
	if err != nil {
		t.Fatal(err)
	}
	var locs []Location
	if err := json.Unmarshal(data, &locs); err != nil {
		t.Fatal(err)
	}
	if len(locs) != 1 || locs[0].Title != "Edessa" {
		t.Errorf("locations = %s", data)
	}
}

func TestPleiadesJSONURL(t *testing.T) {
	tests := map[string]string{
		"https://pleiades.stoa.org/places/658457":       "https://pleiades.stoa.org/places/658457/json",
		"https://pleiades.stoa.org/places/658457/":      "https://pleiades.stoa.org/places/658457/json",
		"https://pleiades.stoa.org/places/658457/json":  "https://pleiades.stoa.org/places/658457/json",
		"https://pleiades.stoa.org/places/658457/json/": "https://pleiades.stoa.org/places/658457/json/",
	}
	for in, want := range tests {
		if got := PleiadesJSONURL(in); got != want {
			t.Errorf("PleiadesJSONURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGeonamesID(t *testing.T) {
	if id, ok := GeonamesID("https://www.geonames.org/298795/sanliurfa.html"); !ok || id != "298795" {
		t.Errorf("id = %q, %v", id, ok)
	}
	if _, ok := GeonamesID("geonames"); ok {
		t.Error("short url should not yield an id")
	}
}

func TestFindPleiadesLink(t *testing.T) {
	link, err := FindPleiadesLink([]byte(`  <p><a>no href</a><a href="https://pleiades.stoa.org/places/1">p</a></p>  `))
	if err != nil {
		t.Fatal(err)
	}
	if link != "https://pleiades.stoa.org/places/1" {
		t.Errorf("link = %q", link)
	}
}
