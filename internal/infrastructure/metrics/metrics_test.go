package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/gotransfer/internal/domain"
	"github.com/iho/gotransfer/internal/usecase"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := New(registry)
	m.RecordOperation(usecase.OperationTransfer, usecase.OutcomeSuccess, 20*time.Millisecond)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestRecordOperation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordOperation(usecase.OperationTransfer, usecase.OutcomeSuccess, time.Millisecond)
	m.RecordOperation(usecase.OperationTransfer, usecase.OutcomeInconsistent, time.Millisecond)
	m.RecordOperation(usecase.OperationDeposit, usecase.OutcomeStorage, time.Millisecond)

	if got := testutil.ToFloat64(m.Operations.WithLabelValues(usecase.OperationTransfer, usecase.OutcomeSuccess)); got != 1 {
		t.Fatalf("expected one successful transfer, got %v", got)
	}
	if got := testutil.ToFloat64(m.InconsistentStates); got != 1 {
		t.Fatalf("expected one inconsistent transfer, got %v", got)
	}
	if got := testutil.ToFloat64(m.UnrecordedMutations); got != 1 {
		t.Fatalf("expected one unrecorded mutation, got %v", got)
	}
}

func TestRecordRemoteCallAndCompensation(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRemoteCall(domain.StepDebit, usecase.RemoteResultAck)
	m.RecordRemoteCall(domain.StepCredit, usecase.RemoteResultRejected)
	m.RecordCompensation(true)
	m.RecordCompensation(false)
	m.SetUnpairedTransfers(2)

	if got := testutil.ToFloat64(m.RemoteCalls.WithLabelValues(string(domain.StepCredit), usecase.RemoteResultRejected)); got != 1 {
		t.Fatalf("expected one rejected credit, got %v", got)
	}
	if got := testutil.ToFloat64(m.Compensations.WithLabelValues("false")); got != 1 {
		t.Fatalf("expected one failed compensation, got %v", got)
	}
	if got := testutil.ToFloat64(m.UnpairedTransfers); got != 2 {
		t.Fatalf("expected gauge 2, got %v", got)
	}
}

func TestNewTwiceOnSameRegistryPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	New(registry)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected duplicate registration to panic")
		}
	}()
	New(registry)
}
