package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/pders01/treehole/internal/api"
	"github.com/pders01/treehole/internal/config"
	"github.com/pders01/treehole/internal/debuglog"
	"github.com/pders01/treehole/internal/query"
	"github.com/pders01/treehole/internal/search"
	"github.com/pders01/treehole/internal/session"
	"github.com/pders01/treehole/internal/storage"
	"github.com/pders01/treehole/internal/validation"
)

// env is everything a command needs to talk to the server and the local
// archive.
type env struct {
	cfg     *config.Config
	store   *storage.Store
	session *session.Context
	client  *api.Client
	index   search.Searcher
	closers []func() error
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

func setupLogging(cfg *config.Config) {
	level := debuglog.ParseLogLevel(cfg.Log.Level)
	if debug {
		level = debuglog.LevelDebug
	}
	err := debuglog.SetupWithOptions(debuglog.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		// The TUI owns stdout; logging is best effort.
		debuglog.SetLevel(debuglog.LevelOff)
	}
}

// openEnv loads config, opens the store and restores the session. The bleve
// index is only opened when withIndex is set since it is slow to build.
func openEnv(withIndex bool) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)

	paths := validation.NewSecurePathHandler()
	dbFile, err := paths.DBPath(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}
	if err := paths.EnsureParent(dbFile); err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}

	store, err := storage.NewStore(dbFile, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, store: store, closers: []func() error{store.Close, debuglog.Close}}

	e.session = session.New(store)
	if err := e.session.Restore(); err != nil {
		debuglog.Warnf("%v", err)
	}

	e.client, err = api.NewClient(cfg, e.session)
	if err != nil {
		e.Close()
		return nil, err
	}

	if withIndex {
		e.index = openIndex(paths, store, cfg.Database.SearchIndex)
		if c, ok := e.index.(interface{ Close() error }); ok {
			e.closers = append([]func() error{c.Close}, e.closers...)
		}
	}
	return e, nil
}

// openIndex prefers the bleve index and falls back to scanning the store.
func openIndex(paths *validation.PathHandler, store *storage.Store, indexPath string) search.Searcher {
	path, err := paths.IndexPath(indexPath)
	if err == nil {
		var engine *search.BleveEngine
		engine, err = search.NewBleveEngine(store, path)
		if err == nil {
			return engine
		}
	}
	debuglog.Warnf("search index unavailable, scanning archive instead: %v", err)
	return search.NewEngine(store)
}

func (e *env) Close() {
	var errs []error
	for _, c := range e.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		debuglog.Warnf("closing: %v", err)
	}
}

// initialQuery starts from the last saved query, or the configured page
// size, and applies any query flags the user set.
func (e *env) initialQuery(changed func(string) bool) (query.State, error) {
	allowed := e.cfg.Feed.AllowedPageSizes()
	base := query.Default()
	if s, err := base.WithPageSizeFrom(e.cfg.Feed.PageSize, allowed); err == nil {
		base = s
	} else if !slices.Contains(allowed, base.PageSize) {
		base, _ = base.WithPageSizeFrom(allowed[0], allowed)
	}
	if saved, ok, err := e.store.LoadQuery(); err != nil {
		debuglog.Warnf("loading saved query: %v", err)
	} else if ok {
		if !slices.Contains(allowed, saved.PageSize) {
			debuglog.Infof("saved page size %d no longer allowed, using %d", saved.PageSize, base.PageSize)
			saved.PageSize = base.PageSize
			saved.Page = 0
		}
		base = saved
	}
	return seedQuery(base, changed, allowed)
}

func seedQuery(q query.State, changed func(string) bool, allowed []int) (query.State, error) {
	var err error
	if changed("size") {
		if q, err = q.WithPageSizeFrom(flagSize, allowed); err != nil {
			return q, err
		}
	}
	if changed("field") {
		f, perr := query.ParseSortField(flagField)
		if perr != nil {
			return q, perr
		}
		if q, err = q.WithSortField(f); err != nil {
			return q, err
		}
	}
	if changed("sort") {
		d, perr := query.ParseDirection(flagSort)
		if perr != nil {
			return q, perr
		}
		if q, err = q.WithDirection(d); err != nil {
			return q, err
		}
	}
	if changed("like-range") {
		r, perr := query.ParseLikeRange(flagLikeRange)
		if perr != nil {
			return q, perr
		}
		if q, err = q.WithLikeRange(r); err != nil {
			return q, err
		}
	}
	if changed("page") {
		if q, err = q.WithPage(flagPage - 1); err != nil {
			return q, err
		}
	}
	return q, nil
}
