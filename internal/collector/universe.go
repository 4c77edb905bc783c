package collector

import (
	"context"
	"os"
	"strings"
	"sync"

	"SmartPick/internal/logger"
	"SmartPick/internal/model"
	"SmartPick/internal/store"
)

// Lister returns one page of the upstream instrument listing.
type Lister interface {
	FetchPage(ctx context.Context, page int) ([]model.Instrument, error)
}

// Universe resolves the instruments to scan and memoizes the first non-empty result.
type Universe struct {
	lister         Lister
	cacheFile      string
	excludedPrefix string
	maxPages       int

	mu   sync.Mutex
	list []model.Instrument
}

// NewUniverse creates a Universe backed by lister and a local cache file.
func NewUniverse(lister Lister, cacheFile, excludedPrefix string, maxPages int) *Universe {
	return &Universe{
		lister:         lister,
		cacheFile:      cacheFile,
		excludedPrefix: excludedPrefix,
		maxPages:       maxPages,
	}
}

// Instruments returns the cached list, loading it from the cache file or upstream on first use.
// An empty result means the universe could not be resolved this time.
func (u *Universe) Instruments(ctx context.Context) []model.Instrument {
	u.mu.Lock()
	defer u.mu.Unlock()

	if len(u.list) > 0 {
		return clone(u.list)
	}
	if list := u.loadCache(); len(list) > 0 {
		u.list = list
		return clone(list)
	}
	return u.fetchLocked(ctx)
}

// Refresh drops the memoized list and cache file, then refetches from upstream.
func (u *Universe) Refresh(ctx context.Context) []model.Instrument {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.list = nil
	if u.cacheFile != "" {
		if err := os.Remove(u.cacheFile); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove universe cache %s: %v", u.cacheFile, err)
		}
	}
	return u.fetchLocked(ctx)
}

func (u *Universe) loadCache() []model.Instrument {
	if u.cacheFile == "" {
		return nil
	}
	var cached []model.Instrument
	if err := store.ReadJSON(u.cacheFile, &cached); err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Ignoring unreadable universe cache: %v", err)
		}
		return nil
	}
	list := u.filter(cached)
	if len(list) > 0 {
		logger.Info("Loaded %d instruments from %s", len(list), u.cacheFile)
	}
	return list
}

func (u *Universe) fetchLocked(ctx context.Context) []model.Instrument {
	logger.Info("Fetching A-share listing from upstream...")
	var all []model.Instrument
	for page := 1; page <= u.maxPages; page++ {
		items, err := u.lister.FetchPage(ctx, page)
		if err != nil {
			logger.Error("Universe fetch aborted at page %d: %v", page, err)
			return []model.Instrument{}
		}
		if len(items) == 0 {
			break
		}
		all = append(all, u.filter(items)...)
	}
	if len(all) == 0 {
		logger.Warn("Universe listing returned no instruments")
		return []model.Instrument{}
	}

	if u.cacheFile != "" {
		if err := store.WriteJSON(u.cacheFile, all); err != nil {
			logger.Warn("Failed to write universe cache: %v", err)
		}
	}
	logger.Info("Universe updated: %d instruments (excluded prefix %q)", len(all), u.excludedPrefix)
	u.list = all
	return clone(all)
}

func (u *Universe) filter(in []model.Instrument) []model.Instrument {
	out := make([]model.Instrument, 0, len(in))
	for _, inst := range in {
		if u.excludedPrefix != "" && strings.HasPrefix(inst.Code, u.excludedPrefix) {
			continue
		}
		out = append(out, inst)
	}
	return out
}

func clone(in []model.Instrument) []model.Instrument {
	out := make([]model.Instrument, len(in))
	copy(out, in)
	return out
}
