package models

import "time"

// Language labels as they appear in the first emphasised cell of a
// translation table row.
const (
	LanguageEnglish    = "English"
	LanguageJapanese   = "Japanese"
	LanguageVietnamese = "Vietnamese"
)

// TranslationRecord is the normalized naming data extracted from one detail
// page. Field order and JSON keys are part of the output contract; fields are
// never omitted, unmatched languages stay "".
type TranslationRecord struct {
	Item       string `json:"item"`
	English    string `json:"English"`
	Japanese   string `json:"Japanese"`
	Vietnamese string `json:"Vietnamese"`
}

// Set assigns a translation for the given language label, overwriting any
// previous value. It reports false for labels outside the supported set.
func (r *TranslationRecord) Set(language, value string) bool {
	switch language {
	case LanguageEnglish:
		r.English = value
	case LanguageJapanese:
		r.Japanese = value
	case LanguageVietnamese:
		r.Vietnamese = value
	default:
		return false
	}
	return true
}

// HasTranslations reports whether at least one language field is populated.
func (r TranslationRecord) HasTranslations() bool {
	return r.English != "" || r.Japanese != "" || r.Vietnamese != ""
}

// ExtractOutcome classifies how much of a detail page could be extracted.
type ExtractOutcome string

const (
	// ExtractComplete means the translation table was found and parsed.
	ExtractComplete ExtractOutcome = "complete"

	// ExtractPartial means the table never materialised (or the DOM could
	// not be read); only the item name is populated.
	ExtractPartial ExtractOutcome = "partial"
)

// RunReport is the result of one run: the ordered records (RunResult) plus
// bookkeeping about what was skipped along the way.
type RunReport struct {
	IndexURL   string `json:"index_url"`
	HrefPrefix string `json:"href_prefix"`

	// Records are in link visit order; items whose navigation failed are
	// omitted rather than padded.
	Records []TranslationRecord `json:"records"`

	LinksFound   int  `json:"links_found"`
	ItemsFailed  int  `json:"items_failed"`
	ItemsPartial int  `json:"items_partial"`
	Canceled     bool `json:"canceled"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
