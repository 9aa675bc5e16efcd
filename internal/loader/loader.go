// Package loader builds prediction snapshots from the ledger source and the
// model artifacts, installs them into the service and keeps them fresh.
package loader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Dan9191/repayment-predictor/internal/artifacts"
	"github.com/Dan9191/repayment-predictor/internal/ledger"
	"github.com/Dan9191/repayment-predictor/internal/metrics"
	"github.com/Dan9191/repayment-predictor/internal/predictor"
	"github.com/Dan9191/repayment-predictor/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReloadTimeout bounds a single reload
const ReloadTimeout = 2 * time.Minute

// Installer receives freshly loaded snapshots
type Installer interface {
	Install(snap *service.Snapshot) error
	Ready() bool
}

// Notifier is told about failed reloads
type Notifier interface {
	SendReloadFailure(cause error, at time.Time, serving bool) error
}

// Loader loads the ledger and model artifacts
type Loader struct {
	source     ledger.Source
	modelPath  string
	scalerPath string
	target     Installer
	notifier   Notifier
	log        *logrus.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewLoader initializes a new loader. notifier may be nil.
func NewLoader(source ledger.Source, modelPath, scalerPath string, target Installer, notifier Notifier, log *logrus.Logger) *Loader {
	return &Loader{
		source:     source,
		modelPath:  modelPath,
		scalerPath: scalerPath,
		target:     target,
		notifier:   notifier,
		log:        log,
	}
}

// Reload loads a complete snapshot and installs it. On failure the
// previously installed snapshot stays in place.
func (l *Loader) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	start := time.Now()
	snap, err := l.build(ctx)
	if err == nil {
		err = l.target.Install(snap)
	}
	if err != nil {
		metrics.ObserveReload(err, 0, 0)
		l.log.WithError(err).Error("Failed to load ledger and model artifacts")
		l.alert(err, start)
		return err
	}

	metrics.ObserveReload(nil, snap.Ledger.Size(), snap.Ledger.Borrowers())
	l.log.WithFields(logrus.Fields{
		"payments": snap.Ledger.Size(),
		"duration": time.Since(start).String(),
	}).Info("Ledger and model artifacts loaded")
	return nil
}

func (l *Loader) build(ctx context.Context) (*service.Snapshot, error) {
	scaler, err := artifacts.LoadScaler(l.scalerPath)
	if err != nil {
		return nil, err
	}
	model, err := artifacts.LoadModel(l.modelPath, scaler.FeatureNames)
	if err != nil {
		return nil, err
	}
	p, err := predictor.New(scaler, model, scaler.FeatureNames)
	if err != nil {
		return nil, err
	}
	led, err := l.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	return &service.Snapshot{Ledger: led, Predictor: p, LoadedAt: time.Now()}, nil
}

func (l *Loader) alert(cause error, at time.Time) {
	if l.notifier == nil {
		return
	}
	if err := l.notifier.SendReloadFailure(cause, at, l.target.Ready()); err != nil {
		l.log.WithError(err).Warn("Failed to send reload alert")
	}
}

// Start schedules periodic reloads using a cron spec such as "@every 15m"
func (l *Loader) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), ReloadTimeout)
		defer cancel()
		_ = l.Reload(ctx)
	})
	if err != nil {
		return fmt.Errorf("invalid reload schedule %q: %w", schedule, err)
	}
	c.Start()
	l.cron = c
	l.log.Infof("Reload scheduled: %s", schedule)
	return nil
}

// Stop halts scheduled reloads and waits for a running one to finish
func (l *Loader) Stop() {
	if l.cron == nil {
		return
	}
	<-l.cron.Stop().Done()
}
