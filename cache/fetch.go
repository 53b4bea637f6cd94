package cache

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/mongo-bridge/errors"
)

// localPath reports whether source names a file on this machine and returns
// its path. Sources without a scheme, with a file scheme, or with a single
// letter scheme (a Windows drive) are local.
func localPath(source string) (string, bool) {
	if rest, ok := strings.CutPrefix(source, "file://"); ok {
		return rest, true
	}
	u, err := url.Parse(source)
	if err != nil || len(u.Scheme) <= 1 {
		return source, true
	}
	return "", false
}

func (m *Manager) fetch(ctx context.Context, log *zap.Logger, name, source, target string) error {
	if from, ok := localPath(source); ok {
		log.Info("copying binary", zap.String("from", from))
		return m.copyLocal(name, from, target)
	}
	log.Info("downloading binary", zap.String("url", source))
	return m.download(ctx, name, source, target)
}

func (m *Manager) copyLocal(name, from, target string) error {
	src, err := os.Open(from)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return errors.SourceMissing(name, from)
		}
		return errors.New(errors.PhaseCache, errors.KindIO).
			Path(from).
			Cause(err).
			Detail("open source").
			Build()
	}
	defer src.Close()

	if err := writeAtomic(target, src); err != nil {
		return errors.New(errors.PhaseCache, errors.KindIO).
			Path(target).
			Cause(err).
			Detail("copy %q from %s", name, from).
			Build()
	}
	return nil
}

func (m *Manager) download(ctx context.Context, name, source, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return errors.Download(name, source, 0, err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return errors.Download(name, source, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return errors.Download(name, source, resp.StatusCode, nil)
	}

	if err := writeAtomic(target, resp.Body); err != nil {
		return errors.Download(name, source, 0, err)
	}
	return nil
}

// writeAtomic streams r into a temporary file next to target and renames it
// into place. On failure no file is left at target.
func writeAtomic(target string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), filepath.Base(target)+".*.partial")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, err = io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpName, 0o755)
	}
	if err == nil {
		err = os.Rename(tmpName, target)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
