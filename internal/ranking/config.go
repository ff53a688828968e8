package ranking

// Config holds the score multipliers of the ranker.
type Config struct {
	PhraseMatchMultiplier  float64 `yaml:"phrase_match_multiplier"`  // default: 1.3
	AllWordsMultiplier     float64 `yaml:"all_words_multiplier"`     // default: 1.0
	PartialMatchMultiplier float64 `yaml:"partial_match_multiplier"` // default: 0.7
	// TitleMatchMultiplier applies on top when every term is in the title.
	TitleMatchMultiplier float64 `yaml:"title_match_multiplier"` // default: 1.2
}

// DefaultConfig returns the default ranking configuration.
func DefaultConfig() *Config {
	return &Config{
		PhraseMatchMultiplier:  1.3,
		AllWordsMultiplier:     1.0,
		PartialMatchMultiplier: 0.7,
		TitleMatchMultiplier:   1.2,
	}
}

// ApplyDefaults fills zero values with defaults.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.PhraseMatchMultiplier == 0 {
		c.PhraseMatchMultiplier = d.PhraseMatchMultiplier
	}
	if c.AllWordsMultiplier == 0 {
		c.AllWordsMultiplier = d.AllWordsMultiplier
	}
	if c.PartialMatchMultiplier == 0 {
		c.PartialMatchMultiplier = d.PartialMatchMultiplier
	}
	if c.TitleMatchMultiplier == 0 {
		c.TitleMatchMultiplier = d.TitleMatchMultiplier
	}
}
