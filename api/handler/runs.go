package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/langtable/cache"
	"github.com/use-agent/langtable/config"
	"github.com/use-agent/langtable/models"
	"github.com/use-agent/langtable/webhook"
)

// jobTTL is how long finished jobs stay queryable.
const jobTTL = time.Hour

// RunFunc executes one crawl. req has IndexURL and HrefPrefix filled in.
type RunFunc func(ctx context.Context, req models.RunRequest) (*models.RunReport, error)

// RunDefaults fill in request fields the caller left empty.
type RunDefaults struct {
	IndexURL   string
	HrefPrefix string

	// MaxItems is the configured item cap (0 = unlimited).
	MaxItems int
}

// Runs serves the run endpoints. At most one run executes at a time.
type Runs struct {
	run      RunFunc
	cache    *cache.Cache
	notifier *webhook.Notifier
	defaults RunDefaults
	baseCtx  context.Context
	now      func() time.Time

	active atomic.Bool
	wg     sync.WaitGroup

	mu   sync.Mutex
	jobs map[string]*models.RunJob
}

// NewRuns creates the run handlers. Runs started through them stop when
// ctx is canceled. cc and notifier may be nil.
func NewRuns(ctx context.Context, run RunFunc, cc *cache.Cache, notifier *webhook.Notifier, defaults RunDefaults) *Runs {
	return &Runs{
		run:      run,
		cache:    cc,
		notifier: notifier,
		defaults: defaults,
		baseCtx:  ctx,
		now:      time.Now,
		jobs:     make(map[string]*models.RunJob),
	}
}

// Active reports whether a run is in progress.
func (h *Runs) Active() bool {
	return h.active.Load()
}

// CachedReports returns the number of reports in the cache.
func (h *Runs) CachedReports() int {
	if h.cache == nil {
		return 0
	}
	return h.cache.Len()
}

// Wait blocks until the in-flight run, if any, has finished.
func (h *Runs) Wait() {
	h.wg.Wait()
}

// Post returns a handler for POST /api/v1/runs.
func (h *Runs) Post() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			errorJSON(c, http.StatusBadRequest, models.ErrCodeInvalidInput, "invalid request body: "+err.Error())
			return
		}
		if req.IndexURL == "" {
			req.IndexURL = h.defaults.IndexURL
		}
		if req.HrefPrefix == "" {
			req.HrefPrefix = h.defaults.HrefPrefix
		}
		if err := config.ValidateIndexURL(req.IndexURL); err != nil {
			errorJSON(c, http.StatusBadRequest, models.ErrCodeInvalidInput, models.ToDetail(err).Message)
			return
		}

		job := &models.RunJob{
			ID:            "run-" + randomID(),
			Status:        models.RunStatusProcessing,
			CreatedAt:     h.now().Unix(),
			WebhookURL:    req.WebhookURL,
			WebhookSecret: req.WebhookSecret,
		}

		maxItems := req.MaxItems
		if maxItems == 0 {
			maxItems = h.defaults.MaxItems
		}
		key := cache.Key(req.IndexURL, req.HrefPrefix, maxItems)
		if h.cache != nil {
			if report, ok := h.cache.Get(key, req.MaxAge); ok {
				job.Status = models.RunStatusCompleted
				job.CacheStatus = "hit"
				job.Report = report
				resp := models.RunResponse{ID: job.ID, Status: job.Status}
				h.store(job)
				h.notify(job)
				c.JSON(http.StatusOK, resp)
				return
			}
		}

		if !h.active.CompareAndSwap(false, true) {
			errorJSON(c, http.StatusConflict, models.ErrCodeRunActive, "a run is already in progress")
			return
		}
		h.store(job)
		resp := models.RunResponse{ID: job.ID, Status: job.Status}

		h.wg.Add(1)
		go h.execute(job, req, key)

		c.JSON(http.StatusAccepted, resp)
	}
}

// Get returns a handler for GET /api/v1/runs/:id.
func (h *Runs) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.mu.Lock()
		job, ok := h.jobs[c.Param("id")]
		var resp models.RunStatusResponse
		if ok {
			resp = models.RunStatusResponse{
				ID:          job.ID,
				Status:      job.Status,
				CacheStatus: job.CacheStatus,
				Report:      job.Report,
				Error:       job.Error,
			}
		}
		h.mu.Unlock()

		if !ok {
			errorJSON(c, http.StatusNotFound, models.ErrCodeInvalidInput, "run not found")
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

// execute runs the crawl in the background and records the outcome.
func (h *Runs) execute(job *models.RunJob, req models.RunRequest, key string) {
	defer h.wg.Done()
	defer h.active.Store(false)

	report, err := h.run(h.baseCtx, req)

	h.mu.Lock()
	job.Report = report
	if err != nil {
		job.Status = models.RunStatusFailed
		job.Error = models.ToDetail(err)
	} else {
		job.Status = models.RunStatusCompleted
		job.CacheStatus = "miss"
	}
	h.mu.Unlock()

	if err == nil && h.cache != nil && !report.Canceled {
		h.cache.Set(key, report)
	}

	slog.Info("run job finished", "id", job.ID, "status", job.Status)
	h.notify(job)
}

// store saves job and drops finished jobs older than jobTTL.
func (h *Runs) store(job *models.RunJob) {
	cutoff := h.now().Add(-jobTTL).Unix()

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, j := range h.jobs {
		if j.Status != models.RunStatusProcessing && j.CreatedAt < cutoff {
			delete(h.jobs, id)
		}
	}
	h.jobs[job.ID] = job
}

func (h *Runs) notify(job *models.RunJob) {
	if h.notifier == nil || job.WebhookURL == "" {
		return
	}

	h.mu.Lock()
	event := &webhook.Event{
		Type:      webhook.EventRunCompleted,
		RunID:     job.ID,
		Timestamp: h.now().Unix(),
		Data: models.RunStatusResponse{
			ID:          job.ID,
			Status:      job.Status,
			CacheStatus: job.CacheStatus,
			Report:      job.Report,
			Error:       job.Error,
		},
	}
	if job.Status == models.RunStatusFailed {
		event.Type = webhook.EventRunFailed
	}
	url, secret := job.WebhookURL, job.WebhookSecret
	h.mu.Unlock()

	h.notifier.DeliverAsync(url, secret, event)
}

func errorJSON(c *gin.Context, status int, code, msg string) {
	c.JSON(status, models.ErrorResponse{Error: &models.ErrorDetail{Code: code, Message: msg}})
}

// randomID returns a 16-character hex string.
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
