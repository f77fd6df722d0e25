package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/config"
)

// MaxDocumentSize caps what File.Read accepts.
const MaxDocumentSize = 1024 * 1024 // 1MB

// File is a configuration file whose signature is its modification time
// and size.
type File struct {
	path   string
	format config.Format
}

// NewFile picks the format from the extension.
func NewFile(path string) (*File, error) {
	f, err := config.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return &File{path: path, format: f}, nil
}

// NewFileWithFormat skips extension detection.
func NewFileWithFormat(path string, format config.Format) *File {
	return &File{path: path, format: format}
}

func (f *File) Path() string          { return f.path }
func (f *File) Format() config.Format { return f.format }

func (f *File) Signature(context.Context) (Signature, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %v", hlog.ErrSourceRead, err)
	}
	return Signature{ModTime: info.ModTime(), Size: info.Size()}, nil
}

func (f *File) Read(context.Context) ([]byte, error) {
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hlog.ErrSourceRead, err)
	}
	defer fh.Close()

	data, err := io.ReadAll(io.LimitReader(fh, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", hlog.ErrSourceRead, f.path, err)
	}
	if len(data) > MaxDocumentSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", hlog.ErrSourceRead, f.path, MaxDocumentSize)
	}
	return data, nil
}

// Watch watches the parent directory, so editors that replace the file
// (write to temp, rename) keep being noticed. The channel has room for one
// pending signal; bursts collapse into it. The watcher stops with ctx.
func (f *File) Watch(ctx context.Context, onErr func(error)) (<-chan struct{}, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	target := filepath.Clean(f.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		_ = w.Close()
		return nil, err
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				select {
				case ch <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if onErr != nil {
					onErr(fmt.Errorf("watch %s: %w", target, err))
				}
			}
		}
	}()
	return ch, nil
}
