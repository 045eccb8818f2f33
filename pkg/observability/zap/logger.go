package zap

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	ubzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wxve/chat-site/pkg/observability"
	"github.com/wxve/chat-site/pkg/sanitization"
)

const (
	levelDebug = "debug"
	levelInfo  = "info"
	levelWarn  = "warn"
	levelError = "error"

	defaultBufferSize = 64
	defaultMaxRetries = 3
)

type Option func(*loggerOptions)

type loggerOptions struct {
	initErr error

	zapLogger *ubzap.Logger
	output    zapcore.WriteSyncer
	notifier  observability.ErrorNotifier
}

// WithZapLogger uses an existing zap logger instead of building a core from
// the LoggerConfig format and level.
func WithZapLogger(logger *ubzap.Logger) Option {
	return func(opts *loggerOptions) {
		opts.zapLogger = logger
	}
}

// WithOutput replaces the default stderr sink of the built-in core.
func WithOutput(ws zapcore.WriteSyncer) Option {
	return func(opts *loggerOptions) {
		opts.output = ws
	}
}

// WithErrorNotifier forwards every Error entry to notifier from a background
// worker.
func WithErrorNotifier(notifier observability.ErrorNotifier) Option {
	return func(opts *loggerOptions) {
		opts.notifier = notifier
	}
}

// sink is shared by a logger and every logger derived from it.
type sink struct {
	base *ubzap.Logger

	notifier   observability.ErrorNotifier
	retryDelay time.Duration
	maxRetries int

	queueMu sync.Mutex
	queue   chan observability.LogEntry
	pending sync.WaitGroup

	closeOnce sync.Once
	closed    atomic.Bool

	logged     atomic.Int64
	dropped    atomic.Int64
	flushes    atomic.Int64
	failures   atomic.Int64
	lastFlush  atomic.Int64
	flushNanos atomic.Int64
	lastError  atomic.Value
}

type Logger struct {
	sink *sink
	log  *ubzap.Logger

	fields map[string]any
	runID  string
	stack  string
}

var _ observability.StructuredLogger = (*Logger)(nil)

func NewZapLogger(config observability.LoggerConfig, options ...Option) (observability.StructuredLogger, error) {
	cfg := normalizeLoggerConfig(config)

	opts := &loggerOptions{}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	if opts.initErr != nil {
		return nil, opts.initErr
	}

	base := opts.zapLogger
	if base == nil {
		built, err := buildZapLogger(cfg, opts.output)
		if err != nil {
			return nil, err
		}
		base = built
	}

	s := &sink{
		base:       base,
		notifier:   opts.notifier,
		retryDelay: cfg.RetryDelay,
		maxRetries: cfg.MaxRetries,
	}
	s.lastError.Store("")
	if s.notifier != nil {
		s.queue = make(chan observability.LogEntry, cfg.BufferSize)
		go s.drain(s.queue)
	}

	return &Logger{sink: s, log: base, fields: map[string]any{}}, nil
}

func normalizeLoggerConfig(cfg observability.LoggerConfig) observability.LoggerConfig {
	if strings.TrimSpace(cfg.Format) == "" {
		cfg.Format = "console"
		if os.Getenv("CI") != "" {
			cfg.Format = "json"
		}
	}
	if strings.TrimSpace(cfg.Level) == "" {
		cfg.Level = levelInfo
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return cfg
}

func buildZapLogger(cfg observability.LoggerConfig, output zapcore.WriteSyncer) (*ubzap.Logger, error) {
	level, err := parseZapLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if output == nil {
		output = zapcore.AddSync(os.Stderr)
	}

	enc := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		MessageKey:     "message",
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	if cfg.EnableCaller {
		enc.CallerKey = "caller"
		enc.EncodeCaller = zapcore.ShortCallerEncoder
	}

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "console":
		encoder = zapcore.NewConsoleEncoder(enc)
	case "json":
		encoder = zapcore.NewJSONEncoder(enc)
	default:
		return nil, errors.New("zap: unsupported log format")
	}

	var zopts []ubzap.Option
	if cfg.EnableCaller {
		zopts = append(zopts, ubzap.AddCaller())
	}
	if cfg.EnableStack {
		zopts = append(zopts, ubzap.AddStacktrace(zapcore.ErrorLevel))
	}
	return ubzap.New(zapcore.NewCore(encoder, output, level), zopts...), nil
}

func parseZapLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case levelDebug:
		return zapcore.DebugLevel, nil
	case levelInfo, "":
		return zapcore.InfoLevel, nil
	case levelWarn, "warning":
		return zapcore.WarnLevel, nil
	case levelError:
		return zapcore.ErrorLevel, nil
	default:
		return 0, errors.New("zap: unsupported log level")
	}
}

func (l *Logger) Debug(message string, fields ...map[string]any) {
	l.emit(levelDebug, message, fields)
}
func (l *Logger) Info(message string, fields ...map[string]any) {
	l.emit(levelInfo, message, fields)
}
func (l *Logger) Warn(message string, fields ...map[string]any) {
	l.emit(levelWarn, message, fields)
}
func (l *Logger) Error(message string, fields ...map[string]any) {
	l.emit(levelError, message, fields)
}

func (l *Logger) WithField(key string, value any) observability.StructuredLogger {
	return l.WithFields(map[string]any{key: value})
}

func (l *Logger) WithFields(fields map[string]any) observability.StructuredLogger {
	next := l.derive()
	for k, v := range fields {
		next.fields[k] = v
	}
	next.log = next.log.With(zapFields(fields)...)
	return next
}

func (l *Logger) WithRunID(runID string) observability.StructuredLogger {
	next := l.derive()
	next.runID = runID
	next.log = next.log.With(ubzap.String("run_id", sanitization.SanitizeLogString(runID)))
	return next
}

func (l *Logger) WithStack(stack string) observability.StructuredLogger {
	next := l.derive()
	next.stack = stack
	next.log = next.log.With(ubzap.String("stack", sanitization.SanitizeLogString(stack)))
	return next
}

// Flush syncs the zap core and waits, bounded by ctx, for queued
// notifications to be delivered.
func (l *Logger) Flush(ctx context.Context) error {
	if l == nil || l.sink == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	s := l.sink
	s.flushes.Add(1)
	err := s.base.Sync()
	if err != nil {
		s.recordError(err)
	}
	s.waitPending(ctx)

	s.lastFlush.Store(time.Now().UnixNano())
	s.flushNanos.Add(time.Since(start).Nanoseconds())
	return err
}

func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.close()
}

func (l *Logger) IsHealthy() bool {
	if l == nil || l.sink == nil || l.sink.closed.Load() {
		return false
	}
	return l.sink.lastErrorString() == ""
}

func (l *Logger) GetStats() observability.LoggerStats {
	if l == nil || l.sink == nil {
		return observability.LoggerStats{}
	}
	s := l.sink
	flushes := s.flushes.Load()
	var avg time.Duration
	if flushes > 0 {
		avg = time.Duration(s.flushNanos.Load() / flushes)
	}
	return observability.LoggerStats{
		LastFlush:      time.Unix(0, s.lastFlush.Load()),
		LastError:      s.lastErrorString(),
		EntriesLogged:  s.logged.Load(),
		EntriesDropped: s.dropped.Load(),
		FlushCount:     flushes,
		ErrorCount:     s.failures.Load(),
		AverageFlush:   avg,
	}
}

func (l *Logger) derive() *Logger {
	fields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{sink: l.sink, log: l.log, fields: fields, runID: l.runID, stack: l.stack}
}

func (l *Logger) emit(level, message string, sets []map[string]any) {
	if l == nil || l.sink == nil || l.log == nil || l.sink.closed.Load() {
		return
	}

	message = sanitization.SanitizeLogString(message)
	call := map[string]any{}
	for _, set := range sets {
		for k, v := range set {
			call[k] = v
		}
	}

	fields := zapFields(call)
	switch level {
	case levelDebug:
		l.log.Debug(message, fields...)
	case levelWarn:
		l.log.Warn(message, fields...)
	case levelError:
		l.log.Error(message, fields...)
	default:
		l.log.Info(message, fields...)
	}
	l.sink.logged.Add(1)

	if level == levelError && l.sink.notifier != nil {
		l.sink.enqueue(l.entry(level, message, call))
	}
}

func (l *Logger) entry(level, message string, call map[string]any) observability.LogEntry {
	merged := make(map[string]any, len(l.fields)+len(call))
	for k, v := range l.fields {
		merged[k] = sanitization.SanitizeFieldValue(k, v)
	}
	for k, v := range call {
		merged[k] = sanitization.SanitizeFieldValue(k, v)
	}
	return observability.LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Fields:    merged,
		RunID:     l.runID,
		Stack:     l.stack,
	}
}

func zapFields(fields map[string]any) []ubzap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]ubzap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, ubzap.Any(k, sanitization.SanitizeFieldValue(k, v)))
	}
	return out
}

// enqueue never blocks the caller; entries are dropped when the queue is full.
func (s *sink) enqueue(entry observability.LogEntry) {
	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.closed.Load() || s.queue == nil {
		s.dropped.Add(1)
		return
	}

	s.pending.Add(1)
	select {
	case s.queue <- entry:
	default:
		s.pending.Done()
		s.dropped.Add(1)
	}
}

// drain owns its channel; close() clears s.queue before the worker may have
// started reading.
func (s *sink) drain(queue <-chan observability.LogEntry) {
	for entry := range queue {
		if err := s.deliver(entry); err != nil {
			s.recordError(err)
		}
		s.pending.Done()
	}
}

func (s *sink) deliver(entry observability.LogEntry) error {
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err = s.notifier.Notify(context.Background(), entry); err == nil {
			return nil
		}
		if attempt < s.maxRetries-1 {
			time.Sleep(s.retryDelay)
		}
	}
	return err
}

func (s *sink) waitPending(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
	case <-done:
	}
}

func (s *sink) close() error {
	var err error
	s.closeOnce.Do(func() {
		s.queueMu.Lock()
		s.closed.Store(true)
		if s.queue != nil {
			close(s.queue)
			s.queue = nil
		}
		s.queueMu.Unlock()

		s.pending.Wait()
		if err = s.base.Sync(); err != nil {
			s.recordError(err)
		}
	})
	return err
}

func (s *sink) recordError(err error) {
	s.failures.Add(1)
	s.lastError.Store(err.Error())
}

func (s *sink) lastErrorString() string {
	v, _ := s.lastError.Load().(string)
	return v
}
