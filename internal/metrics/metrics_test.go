package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/starford/planner/internal/apperr"
)

func TestObserveIncrementsCounter(t *testing.T) {
	before := testutil.ToFloat64(TaskOperations.WithLabelValues("add", StatusOK))
	Observe("add", time.Now(), StatusOK)
	after := testutil.ToFloat64(TaskOperations.WithLabelValues("add", StatusOK))
	if after != before+1 {
		t.Errorf("counter = %v, want %v", after, before+1)
	}
}

func TestStatusOf(t *testing.T) {
	cases := map[string]error{
		StatusOK:          nil,
		StatusInvalid:     &apperr.ValidationError{Field: "text"},
		StatusWriteFailed: &apperr.PersistenceWriteError{Key: "k", Err: apperr.ErrQuotaExceeded},
		StatusError:       errors.New("boom"),
	}
	for want, err := range cases {
		if got := StatusOf(err); got != want {
			t.Errorf("StatusOf(%v) = %q, want %q", err, got, want)
		}
	}
}
