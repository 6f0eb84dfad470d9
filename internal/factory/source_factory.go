package factory

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"pledgetally/internal/config"
	"pledgetally/internal/gmail"
	"pledgetally/internal/imapsource"
	"pledgetally/internal/mbox"
	"pledgetally/internal/scan"
	"pledgetally/internal/store"
)

// SourceFactory creates message sources and scan services based on
// configuration
type SourceFactory struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *store.SQLiteStore
}

// NewSourceFactory creates a new source factory. st may be nil when the
// store is disabled.
func NewSourceFactory(cfg *config.Config, logger zerolog.Logger, st *store.SQLiteStore) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
		store:  st,
	}
}

// SourceType returns the configured source type
func (f *SourceFactory) SourceType() string {
	return f.cfg.GetString("source.type")
}

// Create builds the configured source. Gmail authorization, if needed,
// prompts on the terminal.
func (f *SourceFactory) Create(ctx context.Context) (scan.Source, error) {
	return f.CreateInteractive(ctx, nil, nil)
}

// CreateInteractive builds the configured source, routing any Gmail
// authorization prompt through the given channels.
func (f *SourceFactory) CreateInteractive(ctx context.Context, uiEvents chan<- interface{}, userResponses <-chan string) (scan.Source, error) {
	operator := f.cfg.GetString("operator.address")

	switch t := f.SourceType(); t {
	case config.SourceGmail:
		svc, err := gmail.NewServiceInteractive(ctx, f.cfg.GetString("gmail.config_dir"), uiEvents, userResponses)
		if err != nil {
			return nil, err
		}
		var cache gmail.MessageCache
		if f.store != nil {
			cache = f.store
		}
		return gmail.NewSource(svc, cache, f.cfg.GetInt("gmail.workers"), f.logger), nil

	case config.SourceIMAP:
		return imapsource.New(imapsource.Config{
			Server:   f.cfg.GetString("imap.server"),
			Username: f.cfg.GetString("imap.username"),
			Password: f.cfg.GetString("imap.password"),
			Mailbox:  f.cfg.GetString("imap.mailbox"),
			Operator: operator,
		}, f.logger), nil

	case config.SourceMbox:
		return mbox.New(f.cfg.GetString("mbox.path"), operator, f.logger), nil

	default:
		return nil, fmt.Errorf("unsupported source type: %s", t)
	}
}

// NewScanService wraps src in a scan service using the configured options.
func (f *SourceFactory) NewScanService(src scan.Source) *scan.Service {
	var st scan.ReportStore
	if f.store != nil {
		st = f.store
	}
	return scan.NewService(src, st, f.logger, scan.Options{
		Operator:     f.cfg.GetString("operator.address"),
		LenientRange: f.cfg.GetBool("scan.lenient_range"),
	})
}
