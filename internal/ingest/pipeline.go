// Package ingest implements the watch -> parse -> index pipeline of
// : a debounced filesystem watcher feeding a per-path
// serialized dispatcher that drives the byte-offset incremental parse
// algorithm against the active storage backend.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/yologdev/yocore/internal/clock"
	"github.com/yologdev/yocore/internal/config"
	"github.com/yologdev/yocore/internal/events"
	"github.com/yologdev/yocore/internal/model"
	"github.com/yologdev/yocore/internal/parser"
	"github.com/yologdev/yocore/internal/storage"
)

// Pipeline drives the per-file incremental parse algorithm.
type Pipeline struct {
	Storage storage.Backend
	Parsers *parser.Registry
	WatcherBus *events.Bus[events.WatcherEvent]
	Clock clock.Clock
	Watches []config.WatchConfig

	// EnqueueAI is called after every successful parse that changed the
	// file. Nil disables AI enqueueing entirely. The pipeline does not
	// check AI feature flags or backend mode itself; the callback the
	// service installs applies that gating.
	EnqueueAI func(ctx context.Context, projectID, sessionID string, messageCount int)
}

// ProcessPath runs the full incremental parse algorithm against a single
// file path, as triggered by one debounced filesystem event.
func (p *Pipeline) ProcessPath(ctx context.Context, filePath string) error {
	watch, ok := p.matchWatch(filePath)
	if !ok {
		return fmt.Errorf("no watch root configured for %s", filePath)
	}

	projectRoot, projectName := resolveProjectBoundary(watch.Path, filePath)
	project, err := p.Storage.UpsertProject(ctx, projectRoot, projectName)
	if err != nil {
		return err
	}

	session, err := p.Storage.FindOrCreateSession(ctx, project.ID, filePath, string(watch.Parser))
	if err != nil {
		return err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		p.WatcherBus.Publish(events.NewWatcherErrorEvent(events.WatcherError{FilePath: filePath, Error: err.Error()}))
		return err
	}

	prevSize := session.FileSize
	size := info.Size()

	switch {
	case size < prevSize:
		if err := p.fullParse(ctx, session, filePath, size); err != nil {
			p.WatcherBus.Publish(events.NewWatcherErrorEvent(events.WatcherError{FilePath: filePath, Error: err.Error()}))
			return err
		}
	case size > prevSize:
		if prevSize == 0 {
			p.WatcherBus.Publish(events.NewSessionNewEvent(events.SessionNew{
				ProjectID: project.ID, FilePath: filePath, FileName: filepath.Base(filePath),
			}))
		}
		if err := p.incrementalParse(ctx, session, filePath, prevSize, size); err != nil {
			p.WatcherBus.Publish(events.NewWatcherErrorEvent(events.WatcherError{FilePath: filePath, Error: err.Error()}))
			return err
		}
	default:
		return nil
	}

	p.WatcherBus.Publish(events.NewSessionChangedEvent(events.SessionChanged{
		SessionID: session.ID, FilePath: filePath, PrevSize: prevSize, NewSize: size,
	}))

	updated, err := p.Storage.GetSession(ctx, session.ID)
	if err != nil {
		return err
	}
	p.WatcherBus.Publish(events.NewSessionParsedEvent(events.SessionParsed{
		SessionID: session.ID, MessageCount: updated.MessageCount,
	}))

	if p.EnqueueAI != nil {
		p.EnqueueAI(ctx, project.ID, session.ID, updated.MessageCount)
	}

	return nil
}

// fullParse performs a complete re-parse from offset 0, used on truncation
// detection.
func (p *Pipeline) fullParse(ctx context.Context, session *model.Session, filePath string, size int64) error {
	parserImpl, err := p.Parsers.Get(session.AITool)
	if err != nil {
		return err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := parserImpl.Parse(f, parser.ResumePoint{})
	if err != nil {
		return err
	}

	if err := p.Storage.ReplaceSessionMessages(ctx, session.ID, result.Messages, size); err != nil {
		return err
	}
	if result.Title != "" {
		_ = p.Storage.SetSessionTitle(ctx, session.ID, result.Title)
	}
	return nil
}

// incrementalParse parses only the bytes appended since the last
// observation.
func (p *Pipeline) incrementalParse(ctx context.Context, session *model.Session, filePath string, prevSize, size int64) error {
	parserImpl, err := p.Parsers.Get(session.AITool)
	if err != nil {
		return err
	}

	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Seek(prevSize, io.SeekStart); err != nil {
		return err
	}
	limited := io.LimitReader(f, size-prevSize)

	result, err := parserImpl.Parse(limited, parser.ResumePoint{ByteOffset: prevSize, MaxSequence: session.MaxSequence})
	if err != nil {
		return err
	}

	if err := p.Storage.AppendSessionMessages(ctx, session.ID, result.Messages, size); err != nil {
		return err
	}
	if session.Title == "" && result.Title != "" {
		_ = p.Storage.SetSessionTitle(ctx, session.ID, result.Title)
	}
	return nil
}

// matchWatch finds the configured, enabled watch root that contains
// filePath, preferring the longest (most specific) match.
func (p *Pipeline) matchWatch(filePath string) (config.WatchConfig, bool) {
	var best config.WatchConfig
	found := false
	for _, w := range p.Watches {
		if !w.Enabled {
			continue
		}
		if strings.HasPrefix(filePath, w.Path) && (!found || len(w.Path) > len(best.Path)) {
			best = w
			found = true
		}
	}
	return best, found
}

// resolveProjectBoundary treats the directory directly under watchRoot
// that contains filePath as the project. A file lying directly in
// watchRoot belongs to watchRoot itself.
func resolveProjectBoundary(watchRoot, filePath string) (folderPath, name string) {
	rel, err := filepath.Rel(watchRoot, filePath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return watchRoot, filepath.Base(watchRoot)
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if len(parts) < 2 {
		return watchRoot, filepath.Base(watchRoot)
	}
	projectDir := filepath.Join(watchRoot, parts[0])
	return projectDir, parts[0]
}
