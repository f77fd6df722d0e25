package hlog

// Builder separates construction from representation (Builder pattern).
//
//	h, err := hlog.NewBuilder().
//		WithAppender("stdout", writer.New(os.Stdout, writer.Options{})).
//		WithRoot(hlog.LevelInfo, "stdout").
//		AddLogger(hlog.LoggerConfig{Name: "app.db", Level: hlog.LevelDebug, Additive: true}).
//		Build()
type Builder struct {
	cfg  Config
	opts []Option
}

func NewBuilder() *Builder {
	return &Builder{cfg: Config{Root: RootConfig{Level: LevelInfo}}}
}

func (b *Builder) WithAppender(name string, a Appender) *Builder {
	b.cfg.Appenders = append(b.cfg.Appenders, NamedAppender{Name: name, Appender: a})
	return b
}

// WithRoot sets the root threshold and appenders.
func (b *Builder) WithRoot(level Level, appenders ...string) *Builder {
	b.cfg.Root = RootConfig{Level: level, Appenders: appenders}
	return b
}

func (b *Builder) AddLogger(l LoggerConfig) *Builder {
	b.cfg.Loggers = append(b.cfg.Loggers, l)
	return b
}

func (b *Builder) AddObserver(o Observer) *Builder {
	b.opts = append(b.opts, WithObservers(o))
	return b
}

func (b *Builder) WithOptions(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Config returns the configuration assembled so far.
func (b *Builder) Config() Config { return b.cfg }

// Build constructs the Handle (Factory + Builder).
func (b *Builder) Build() (*Handle, error) {
	return NewHandle(b.cfg, b.opts...)
}
