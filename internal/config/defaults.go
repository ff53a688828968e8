package config

import "time"

// DefaultEditionTitle is the TEI header title used when none is configured.
const DefaultEditionTitle = "The Chronicle of Matthew of Edessa Eclectic Edition"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Output.Root == "" {
		cfg.Output.Root = "./public/data"
	}
	if cfg.Fetch.Concurrency == 0 {
		cfg.Fetch.Concurrency = 4
	}
	if cfg.Fetch.RateLimit == 0 {
		cfg.Fetch.RateLimit = 10
	}
	if cfg.Fetch.Burst == 0 {
		cfg.Fetch.Burst = cfg.Fetch.Concurrency
	}
	if cfg.Fetch.Retries == 0 {
		cfg.Fetch.Retries = 4
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 60 * time.Second
	}
	if cfg.Fetch.CacheTTL == 0 {
		cfg.Fetch.CacheTTL = 10 * time.Minute
	}
	if cfg.Edition.Title == "" {
		cfg.Edition.Title = DefaultEditionTitle
	}
	if cfg.Gazetteer.GeonamesURL == "" {
		cfg.Gazetteer.GeonamesURL = "http://api.geonames.org/getJSON"
	}
	if cfg.Graphs.DotBinary == "" {
		cfg.Graphs.DotBinary = "dot"
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 2
	}
	if cfg.Search.SnippetLength == 0 {
		cfg.Search.SnippetLength = 240
	}
	cfg.Search.Ranking.ApplyDefaults()
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/stemmaflat/runs.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "/usr/local/var/stemmaflat/indices/bleve"
	}
}
