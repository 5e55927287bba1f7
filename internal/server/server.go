// Package server exposes the rendered reminder data over local HTTP: the ICS
// feed for calendar clients and a JSON view of upcoming reminders for
// scripting against.
package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/tartampluch/go-perks/internal/config"
	"github.com/tartampluch/go-perks/internal/plan"
)

// cacheItem stores one rendered body and its HTTP caching metadata.
type cacheItem struct {
	data         []byte
	contentType  string
	etag         string
	lastModified string // RFC1123 format required by HTTP headers
}

// upcomingEntry is the JSON projection of a planned reminder.
type upcomingEntry struct {
	Key      string    `json:"key"`
	Type     string    `json:"type"`
	EntityID string    `json:"entity_id"`
	CycleID  string    `json:"cycle_id"`
	FireAt   time.Time `json:"fire_at"`
	Title    string    `json:"title"`
}

// FeedServer serves the ICS feed and the upcoming-reminders JSON view.
type FeedServer struct {
	// Both caches use atomic.Pointer for lock-free reads. Content is read
	// frequently by clients but replaced only once per refresh pass, so this
	// beats a RWMutex on the hot path (HTTP GET).
	feed     atomic.Pointer[cacheItem]
	upcoming atomic.Pointer[cacheItem]
	Port     string
}

// NewFeedServer creates a new instance of the server.
func NewFeedServer(port string) *FeedServer {
	return &FeedServer{
		Port: port,
	}
}

// Start initializes the HTTP server and blocks until the context is cancelled.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleFeed)
	mux.HandleFunc(config.RouteUpcoming, s.handleUpcoming)

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      mux,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// UpdateFeed atomically replaces the served ICS content.
func (s *FeedServer) UpdateFeed(data []byte) {
	s.feed.Store(newCacheItem(data, config.MimeTextCalendar))

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(data),
	)
}

// UpdateUpcoming atomically replaces the JSON view with the given plan.
// Candidates are assumed already sorted by dedupe key.
func (s *FeedServer) UpdateUpcoming(candidates []plan.Candidate) error {
	entries := make([]upcomingEntry, 0, len(candidates))
	for _, c := range candidates {
		entries = append(entries, upcomingEntry{
			Key:      c.DedupeKey,
			Type:     c.Type,
			EntityID: c.EntityID,
			CycleID:  c.CycleID,
			FireAt:   c.FireAt,
			Title:    c.Title,
		})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrPayloadEncode, err)
	}

	s.upcoming.Store(newCacheItem(data, config.MimeJSON))
	return nil
}

func newCacheItem(data []byte, contentType string) *cacheItem {
	hash := sha256.Sum256(data)
	return &cacheItem{
		data:         data,
		contentType:  contentType,
		etag:         fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:])),
		lastModified: time.Now().UTC().Format(http.TimeFormat),
	}
}

func (s *FeedServer) handleFeed(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, s.feed.Load())
}

func (s *FeedServer) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	s.serveCached(w, r, s.upcoming.Load())
}

// serveCached writes the cached body with conditional-request support.
func (s *FeedServer) serveCached(w http.ResponseWriter, r *http.Request, item *cacheItem) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return
	}

	// Nothing rendered yet: the first refresh pass has not completed.
	if item == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return
	}

	w.Header().Set(config.HeaderContentType, item.contentType)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, item.etag)
	w.Header().Set(config.HeaderLastModified, item.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == item.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, item.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(item.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
