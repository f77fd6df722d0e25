package reload

import (
	"context"
	"fmt"

	"github.com/trickstertwo/hlog"
	"github.com/trickstertwo/hlog/config"
	"github.com/trickstertwo/hlog/source"
)

// Setup performs the initial synchronous load and returns a Handle serving
// it, plus a Reloader when the document asks for a refresh rate (nil
// otherwise). Nothing is installed and no goroutine is started.
//
// A document that cannot be read, parsed or built is reported and replaced
// by hlog.OffConfig, so startup never fails on a bad configuration. A
// signature that cannot be read at startup is reported and left zero, so the
// first successful poll reloads.
func Setup(ctx context.Context, src source.Source, creator *config.Creator, opts ...Option) (*hlog.Handle, *Reloader) {
	if creator == nil {
		creator = config.DefaultCreator()
	}
	var set settings
	for _, o := range opts {
		o(&set)
	}

	var errs []error
	sig, err := src.Signature(ctx)
	if err != nil {
		errs = append(errs, err)
		sig = source.Signature{}
	}

	var h *hlog.Handle
	loaded, err := load(ctx, src, creator, set.parseOpts)
	if err != nil {
		errs = append(errs, err)
		off, offErr := hlog.NewState(hlog.OffConfig())
		if offErr != nil {
			panic(fmt.Sprintf("hlog: off configuration rejected: %v", offErr))
		}
		h = hlog.NewHandleWithState(off, set.handleOpts...)
	} else {
		h = hlog.NewHandleWithState(loaded.State, set.handleOpts...)
	}
	for _, err := range errs {
		h.Report(err)
	}

	if loaded == nil || loaded.RefreshRate <= 0 {
		return h, nil
	}
	return h, New(h, src, creator, loaded.RefreshRate, sig, opts...)
}

// InitWithSource is Setup followed by hlog.Install. When the document asks
// for a refresh rate the Reloader is started in the background and stops
// with ctx. The only error is hlog.ErrAlreadyInstalled, in which case the
// new Handle is closed and nothing is started.
func InitWithSource(ctx context.Context, src source.Source, creator *config.Creator, opts ...Option) (*hlog.Handle, *Reloader, error) {
	h, r := Setup(ctx, src, creator, opts...)
	if err := hlog.Install(h); err != nil {
		_ = h.Close()
		return nil, nil, err
	}
	if r != nil {
		go func() { _ = r.Run(ctx) }()
	}
	return h, r, nil
}

// InitFile is InitWithSource for a YAML or TOML file.
func InitFile(ctx context.Context, path string, creator *config.Creator, opts ...Option) (*hlog.Handle, *Reloader, error) {
	src, err := source.NewFile(path)
	if err != nil {
		return nil, nil, err
	}
	return InitWithSource(ctx, src, creator, opts...)
}
