package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Dan9191/repayment-predictor/internal/ledger"
	"github.com/Dan9191/repayment-predictor/internal/models"
	"github.com/Dan9191/repayment-predictor/internal/predictor"
	"github.com/Dan9191/repayment-predictor/internal/service"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	modelPath  = "../artifacts/testdata/forest.pmml"
	scalerPath = "../artifacts/testdata/scaler.json"
)

type fakeSource struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeSource) Load(context.Context) (*ledger.Ledger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return ledger.New([]models.PaymentRecord{
		{BorrowerID: 1, DueDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Status: models.StatusOnTime},
	}, nil), nil
}

func (f *fakeSource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	causes  []error
	serving []bool
}

func (n *fakeNotifier) SendReloadFailure(cause error, _ time.Time, serving bool) error {
	n.causes = append(n.causes, cause)
	n.serving = append(n.serving, serving)
	return nil
}

func newService() *service.Service {
	log, _ := test.NewNullLogger()
	return service.NewService(predictor.DefaultThresholds(), log)
}

func TestReload_InstallsSnapshot(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := newService()
	l := NewLoader(&fakeSource{}, modelPath, scalerPath, svc, nil, log)

	require.NoError(t, l.Reload(context.Background()))

	assert.True(t, svc.Ready())
	result, err := svc.GetPrediction(1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.PredictedRepaymentPercentage, 0.0)
	assert.LessOrEqual(t, result.PredictedRepaymentPercentage, 100.0)
}

func TestReload_FailureKeepsPreviousSnapshot(t *testing.T) {
	log, _ := test.NewNullLogger()
	svc := newService()
	src := &fakeSource{}
	notifier := &fakeNotifier{}
	l := NewLoader(src, modelPath, scalerPath, svc, notifier, log)

	require.NoError(t, l.Reload(context.Background()))
	installed := svc.Snapshot()

	src.err = errors.New("database is down")
	err := l.Reload(context.Background())

	assert.ErrorContains(t, err, "database is down")
	assert.Same(t, installed, svc.Snapshot())
	require.Len(t, notifier.causes, 1)
	assert.True(t, notifier.serving[0])
}

func TestReload_MissingArtifactsLeavesServiceNotReady(t *testing.T) {
	log, hook := test.NewNullLogger()
	svc := newService()
	notifier := &fakeNotifier{}
	l := NewLoader(&fakeSource{}, "missing.pmml", scalerPath, svc, notifier, log)

	err := l.Reload(context.Background())

	assert.Error(t, err)
	assert.False(t, svc.Ready())
	require.Len(t, notifier.serving, 1)
	assert.False(t, notifier.serving[0])
	assert.Equal(t, "Failed to load ledger and model artifacts", hook.LastEntry().Message)

	_, err = svc.GetPrediction(1)
	assert.ErrorIs(t, err, service.ErrServiceNotReady)
}

func TestStart_RunsScheduledReloads(t *testing.T) {
	log, _ := test.NewNullLogger()
	src := &fakeSource{}
	l := NewLoader(src, modelPath, scalerPath, newService(), nil, log)

	require.NoError(t, l.Start("@every 1s"))
	defer l.Stop()

	assert.Eventually(t, func() bool { return src.Calls() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestStart_InvalidSchedule(t *testing.T) {
	log, _ := test.NewNullLogger()
	l := NewLoader(&fakeSource{}, modelPath, scalerPath, newService(), nil, log)

	assert.Error(t, l.Start("every now and then"))
}
