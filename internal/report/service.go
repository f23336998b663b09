package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/frahmantamala/asubt-console/internal"
	"github.com/frahmantamala/asubt-console/internal/core/common/validation"
	"github.com/frahmantamala/asubt-console/internal/notify"
	"github.com/frahmantamala/asubt-console/internal/obs"
	"github.com/frahmantamala/asubt-console/internal/screen"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	MsgGenerated      = "Отчёт сформирован"
	MsgGenerateFailed = "Не удалось сформировать отчёт"
	MsgExported       = "Отчёт экспортирован"
	MsgExportFailed   = "Не удалось экспортировать отчёт"
)

type Remote interface {
	Fetch(ctx context.Context, typ Type) (*Report, error)
	Export(ctx context.Context, typ Type, format Format) (*ExportResult, error)
}

type Notifier interface {
	Success(ctx context.Context, screen, title, message string)
	Failure(ctx context.Context, screen, message string, err error)
}

type ServiceAPI interface {
	Mount(ctx context.Context)
	Unmount()
	Generate(ctx context.Context, typ Type) (*Report, error)
	Cached(typ Type) (*Report, bool)
	Show(typ Type) (*Report, bool)
	Current() *Report
	Export(ctx context.Context, format Format) (*Export, error)
}

// Export is the outcome of an export. Artifact is nil for formats the
// client does not render, such as pdf.
type Export struct {
	Message  string
	Artifact *Artifact
}

type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Metrics   *obs.Metrics
	Now       func() time.Time
}

// Service is the reports screen controller.
type Service struct {
	remote   Remote
	notifier Notifier
	logger   *slog.Logger
	metrics  *obs.Metrics
	now      func() time.Time

	lifetime *screen.Lifetime
	inflight screen.InFlight
	cache    *expirable.LRU[Type, *Report]

	mu      sync.RWMutex
	current *Report
}

func NewService(remote Remote, notifier Notifier, logger *slog.Logger, opts Options) *Service {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 16
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		remote:   remote,
		notifier: notifier,
		logger:   logger.With("screen", Screen),
		metrics:  opts.Metrics,
		now:      opts.Now,
		lifetime: screen.New(Screen),
		cache:    expirable.NewLRU[Type, *Report](opts.CacheSize, nil, opts.CacheTTL),
	}
}

func (s *Service) Mount(ctx context.Context) {
	s.lifetime.Mount(ctx)
}

func (s *Service) Unmount() {
	s.lifetime.Unmount()
}

// Current is the report on screen, nil before the first successful Generate.
func (s *Service) Current() *Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Cached returns the last report generated for typ while it is fresh.
func (s *Service) Cached(typ Type) (*Report, bool) {
	rep, ok := s.cache.Get(typ)
	if ok {
		s.metrics.CacheHit()
	} else {
		s.metrics.CacheMiss()
	}
	return rep, ok
}

// Show puts the cached report of typ on screen, so a later Export uses it.
func (s *Service) Show(typ Type) (*Report, bool) {
	rep, ok := s.Cached(typ)
	if !ok {
		return nil, false
	}
	s.mu.Lock()
	s.current = rep
	s.mu.Unlock()
	return rep, true
}

// Generate fetches a report of typ and shows it. A failure keeps the report
// already shown.
func (s *Service) Generate(ctx context.Context, typ Type) (*Report, error) {
	release, ok := s.inflight.Acquire("generate")
	if !ok {
		return nil, internal.ErrSubmissionInFlight
	}
	defer release()

	if !typ.Valid() {
		err := internal.NewValidationFieldError("type", fmt.Sprintf("unknown report type %q", typ), internal.ErrCodeInvalidInput)
		s.notifier.Failure(ctx, Screen, MsgGenerateFailed, err)
		return nil, err
	}

	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	rep, err := s.remote.Fetch(rctx, typ)
	if !token.Current() {
		return nil, context.Canceled
	}
	if err != nil {
		s.notifier.Failure(ctx, Screen, MsgGenerateFailed, err)
		return nil, err
	}

	s.mu.Lock()
	s.current = rep
	s.mu.Unlock()
	s.cache.Add(typ, rep)

	s.logger.Info("report generated", "type", typ, "generated_at", rep.GeneratedAt)
	s.notifier.Success(ctx, Screen, notify.TitleSuccess, MsgGenerated)
	return rep, nil
}

// Export asks the server to prepare the current report in format and
// builds the downloadable artifact. json is the server's report object,
// csv is rendered from the report on screen.
func (s *Service) Export(ctx context.Context, format Format) (*Export, error) {
	cur := s.Current()
	if cur == nil {
		s.notifier.Failure(ctx, Screen, MsgExportFailed, internal.ErrReportNotGenerated)
		return nil, internal.ErrReportNotGenerated
	}

	release, ok := s.inflight.Acquire("export")
	if !ok {
		return nil, internal.ErrSubmissionInFlight
	}
	defer release()

	if !format.Valid() {
		err := internal.NewValidationFieldError("format", fmt.Sprintf("unknown export format %q", format), internal.ErrCodeInvalidInput)
		s.notifier.Failure(ctx, Screen, MsgExportFailed, err)
		return nil, err
	}

	rctx, token, done := s.lifetime.Bind(ctx)
	defer done()

	res, err := s.remote.Export(rctx, cur.Type, format)
	if !token.Current() {
		return nil, context.Canceled
	}
	var artifact *Artifact
	if err == nil {
		artifact, err = s.artifact(cur, format, res)
	}
	if err != nil {
		s.notifier.Failure(ctx, Screen, MsgExportFailed, err)
		return nil, err
	}

	out := &Export{Message: res.Message, Artifact: artifact}
	if out.Message == "" {
		out.Message = MsgExported
	}
	s.logger.Info("report exported", "type", cur.Type, "format", format)
	s.notifier.Success(ctx, Screen, notify.TitleSuccess, out.Message)
	return out, nil
}

func (s *Service) artifact(cur *Report, format Format, res *ExportResult) (*Artifact, error) {
	name := fmt.Sprintf("report_%s_%s.%s", cur.Type, s.now().Format(validation.DateLayout), format)

	switch format {
	case FormatJSON:
		var buf bytes.Buffer
		if err := json.Indent(&buf, res.Report, "", "  "); err != nil {
			return nil, internal.NewProtocolError("Malformed export report", internal.ErrCodeMalformedBody, err)
		}
		return &Artifact{Filename: name, ContentType: "application/json", Body: buf.Bytes()}, nil
	case FormatCSV:
		body, err := ToCSV(cur)
		if err != nil {
			return nil, internal.NewServerError("CSV rendering failed", http.StatusInternalServerError).WithCause(err)
		}
		return &Artifact{Filename: name, ContentType: "text/csv; charset=utf-8", Body: body}, nil
	}
	return nil, nil
}
