package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/towerman/internal/play"
	"github.com/DoyleJ11/towerman/internal/session"
	"github.com/DoyleJ11/towerman/internal/uploads"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".heic"}

// capture uploads every image in o.upload, one play per image, starting from
// the opening kickoff. Rejected uploads are retried once at the end.
func capture(ctx context.Context, s *session.Session, o options, log *zap.Logger) error {
	files, err := images(o.upload)
	if err != nil {
		return err
	}
	if o.game != "" {
		if err := s.StartGame(ctx, o.game); err != nil {
			return err
		}
	}
	if err := s.StartCapturing(ctx); err != nil {
		return err
	}
	defer func() { _ = s.StopCapturing(context.WithoutCancel(ctx)) }()

	tagger := play.NewTagger()
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		name, err := s.UploadPhoto(ctx, tagger.Play(), 0, data)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		log.Debug("sent photo", zap.String("file", path), zap.String("name", name))
		tagger.Next()
	}

	if !waitUploads(ctx, s) {
		n, err := s.RetryFailed(ctx)
		if err != nil {
			log.Warn("retrying failed uploads", zap.Error(err))
			return nil
		}
		log.Info("retried failed uploads", zap.Int("count", n))
	}
	return nil
}

// waitUploads reports whether the batch completed without failures.
func waitUploads(ctx context.Context, s *session.Session) bool {
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		snap := s.Uploads()
		if len(snap.Tasks) == 0 {
			return true
		}
		pending := slices.ContainsFunc(snap.Tasks, func(t uploads.Task) bool { return !t.Done && !t.Failed() })
		if !pending {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}
}

func images(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}
