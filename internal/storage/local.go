package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const sweepLockName = ".sweep.lock"

// LocalStorage implements Storage on local disk. It does not support S3
// operations unless wrapped with S3Storage.
type LocalStorage struct {
	root string
	now  func() time.Time
}

// NewLocalStorage creates a LocalStorage rooted at workDir, creating the
// area directories if needed. If workDir is empty, a mediaforge directory
// under os.TempDir() is used.
func NewLocalStorage(workDir string) (*LocalStorage, error) {
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "mediaforge")
	}
	root, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve work directory: %w", err)
	}

	for _, a := range Areas {
		if err := os.MkdirAll(filepath.Join(root, string(a)), 0750); err != nil {
			return nil, fmt.Errorf("create %s directory: %w", a, err)
		}
	}

	return &LocalStorage{root: root, now: time.Now}, nil
}

// Root returns the work directory.
func (s *LocalStorage) Root() string {
	return s.root
}

// UniqueName returns yyyyMMddHHmmss_<8 hex><ext>. ext is lower-cased and
// gains a leading dot if missing.
func (s *LocalStorage) UniqueName(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return s.now().UTC().Format("20060102150405") + "_" + id + ext
}

// Path resolves name inside area.
func (s *LocalStorage) Path(area Area, name string) (string, error) {
	if !validArea(area) {
		return "", fmt.Errorf("%w: %q", ErrUnknownArea, area)
	}
	if err := checkName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, string(area), name), nil
}

func validArea(a Area) bool {
	for _, known := range Areas {
		if a == known {
			return true
		}
	}
	return false
}

func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// SaveUpload writes data into the input area under a unique name.
func (s *LocalStorage) SaveUpload(ctx context.Context, originalName string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	name := s.UniqueName(filepath.Ext(filepath.Base(originalName)))
	path, err := s.Path(AreaInput, name)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600) // #nosec G304 - path is built from a generated name
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close upload file: %w", err)
	}

	return name, nil
}

// Open reads name from area.
func (s *LocalStorage) Open(ctx context.Context, area Area, name string) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	path, err := s.Path(area, name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path) // #nosec G304 - path is confined to the area directory
	if err != nil {
		return nil, fmt.Errorf("open %s file: %w", area, err)
	}
	return f, nil
}

// Cleanup removes each name from every area. Missing files are not errors.
func (s *LocalStorage) Cleanup(ctx context.Context, names []string) error {
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("context cancelled: %w", err))
			break
		}
		if name == "" {
			continue
		}
		for _, a := range Areas {
			path, err := s.Path(a, name)
			if err != nil {
				errs = append(errs, err)
				break
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s/%s: %w", a, name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Sweep removes regular files older than maxAge from every area, except
// names listed in keep. Only one sweep runs at a time across processes
// sharing the work directory; a concurrent call returns ErrSweepLocked.
func (s *LocalStorage) Sweep(ctx context.Context, maxAge time.Duration, keep ...string) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	kept := make(map[string]struct{}, len(keep))
	for _, name := range keep {
		kept[name] = struct{}{}
	}

	lock := flock.New(filepath.Join(s.root, sweepLockName))
	ok, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		return 0, ErrSweepLocked
	}
	defer func() { _ = lock.Unlock() }()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, a := range Areas {
		dir := filepath.Join(s.root, string(a))
		entries, err := os.ReadDir(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s directory: %w", a, err))
			continue
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return removed, errors.Join(append(errs, err)...)
			}
			if !e.Type().IsRegular() {
				continue
			}
			if _, ok := kept[e.Name()]; ok {
				continue
			}
			info, err := e.Info()
			if err != nil || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("remove %s/%s: %w", a, e.Name(), err))
				continue
			}
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

// Publish is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _, _ string) (string, error) {
	return "", ErrS3NotConfigured
}
