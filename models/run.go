package models

// Run job statuses.
const (
	RunStatusProcessing = "processing"
	RunStatusCompleted  = "completed"
	RunStatusFailed     = "failed"
)

// RunRequest is the payload for POST /api/v1/runs.
type RunRequest struct {
	// IndexURL overrides the configured index page.
	IndexURL string `json:"index_url,omitempty" binding:"omitempty,url"`

	// HrefPrefix overrides the configured detail link prefix (e.g. "/wiki/").
	HrefPrefix string `json:"href_prefix,omitempty"`

	// MaxItems caps the number of detail pages visited. 0 keeps the
	// configured value.
	MaxItems int `json:"max_items,omitempty" binding:"omitempty,min=1,max=5000"`

	// MaxAge (in milliseconds) allows serving a cached report for the same
	// index URL and prefix. 0 disables the cache lookup.
	MaxAge int `json:"max_age_ms,omitempty" binding:"omitempty,min=0"`

	WebhookURL    string `json:"webhook_url,omitempty" binding:"omitempty,url"`
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// RunResponse is the immediate response for POST /api/v1/runs.
type RunResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Error  *ErrorDetail `json:"error,omitempty"`
}

// RunStatusResponse is the response for GET /api/v1/runs/:id.
type RunStatusResponse struct {
	ID          string       `json:"id"`
	Status      string       `json:"status"`
	CacheStatus string       `json:"cache_status,omitempty"`
	Report      *RunReport   `json:"report,omitempty"`
	Error       *ErrorDetail `json:"error,omitempty"`
}

// RunJob tracks a run started through the API.
type RunJob struct {
	ID            string
	Status        string
	CacheStatus   string
	Report        *RunReport
	Error         *ErrorDetail
	CreatedAt     int64 // unix timestamp
	WebhookURL    string
	WebhookSecret string
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	RunActive bool   `json:"run_active"`
	Version   string `json:"version"`

	// CachedReports is the number of reports the API can serve from cache.
	CachedReports int `json:"cached_reports"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}
