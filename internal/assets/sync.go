package assets

import (
	"context"
	"time"

	"github.com/flashnote/syncd/internal/model"
	"github.com/rs/zerolog"
)

const (
	maxAssetRetries         = 3
	defaultRetryBaseBackoff = 1 * time.Second
)

// Result reports which referenced assets failed after retry, so the
// caller can emit imageUploadFailed/imageDownloadFailed without failing
// the note sync itself (spec §4.7).
type Result struct {
	Copied int
	Failed []string
}

// Syncer copies a note's referenced assets between local storage and the
// remote, tolerating per-asset failure.
type Syncer struct {
	Local    LocalStore
	Remote   RemoteStore
	RootPath string
	Log      zerolog.Logger

	// RetryBaseBackoff overrides the 1s linear backoff unit between
	// per-asset retries; zero means use the spec default.
	RetryBaseBackoff time.Duration
}

func (s *Syncer) retryBackoff() time.Duration {
	if s.RetryBaseBackoff > 0 {
		return s.RetryBaseBackoff
	}
	return defaultRetryBaseBackoff
}

// UploadMissing uploads every asset n references that's absent on the
// remote. Upload targets have their parent directory created on demand.
func (s *Syncer) UploadMissing(ctx context.Context, n model.Note) Result {
	refs := ExtractReferences(n)
	var res Result

	for _, rel := range refs {
		remotePath := s.RootPath + rel
		exists, err := s.Remote.Exists(ctx, remotePath)
		if err != nil {
			res.Failed = append(res.Failed, rel)
			continue
		}
		if exists {
			continue
		}

		if err := s.uploadOne(ctx, rel, remotePath); err != nil {
			s.Log.Warn().Err(err).Str("path", rel).Msg("assets: upload failed after retry")
			res.Failed = append(res.Failed, rel)
			continue
		}
		res.Copied++
	}
	return res
}

func (s *Syncer) uploadOne(ctx context.Context, rel, remotePath string) error {
	data, err := s.Local.Read(ctx, rel)
	if err != nil {
		return err
	}

	dir := remotePath[:len(remotePath)-len(rel[lastSlash(rel)+1:])]
	if err := s.Remote.CreateDirectory(ctx, dir); err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= maxAssetRetries; attempt++ {
		if lastErr != nil {
			if serr := sleepCtx(ctx, time.Duration(attempt-1)*s.retryBackoff()); serr != nil {
				return serr
			}
		}
		if err := s.Remote.UploadBinary(ctx, remotePath, data); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

// DownloadMissing downloads every asset n references that's absent
// locally.
func (s *Syncer) DownloadMissing(ctx context.Context, n model.Note) Result {
	refs := ExtractReferences(n)
	var res Result

	for _, rel := range refs {
		exists, err := s.Local.Exists(ctx, rel)
		if err != nil {
			res.Failed = append(res.Failed, rel)
			continue
		}
		if exists {
			continue
		}

		if err := s.downloadOne(ctx, rel); err != nil {
			s.Log.Warn().Err(err).Str("path", rel).Msg("assets: download failed after retry")
			res.Failed = append(res.Failed, rel)
			continue
		}
		res.Copied++
	}
	return res
}

func (s *Syncer) downloadOne(ctx context.Context, rel string) error {
	remotePath := s.RootPath + rel

	var lastErr error
	for attempt := 1; attempt <= maxAssetRetries; attempt++ {
		if lastErr != nil {
			if serr := sleepCtx(ctx, time.Duration(attempt-1)*s.retryBackoff()); serr != nil {
				return serr
			}
		}
		data, err := s.Remote.DownloadBinary(ctx, remotePath)
		if err != nil {
			lastErr = err
			continue
		}
		return s.Local.Write(ctx, rel, data)
	}
	return lastErr
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
