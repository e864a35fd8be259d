package observability_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/gmp/internal/logging"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics(nil)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.EmitSend(ctx, &domain.SendEvent{SequenceCommand: domain.SequenceApply, Response: domain.Completed, Elapsed: 20 * time.Millisecond})
	hooks.EmitSend(ctx, &domain.SendEvent{SequenceCommand: domain.SequenceApply, Response: domain.Completed})
	hooks.EmitSend(ctx, &domain.SendEvent{SequenceCommand: domain.SequenceApply, Err: io.EOF})
	hooks.EmitCompletion(ctx, &domain.CompletionEvent{SequenceCommand: domain.SequenceApply, Response: domain.Completed, Async: true})
	hooks.EmitUpdate(ctx, &domain.UpdateEvent{Response: domain.Completed, Known: false})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Sends.WithLabelValues("APPLY", "COMPLETED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Sends.WithLabelValues("APPLY", "TRANSPORT_ERROR")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Completions.WithLabelValues("APPLY", "COMPLETED", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Updates.WithLabelValues("COMPLETED", "false")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.SendLatency))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.Hooks().EmitCompletion(context.Background(), &domain.CompletionEvent{SequenceCommand: domain.SequencePark, Response: domain.Accepted})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `gmp_dispatch_completions_total{async="false",response="ACCEPTED",sequence_command="PARK"} 1`)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LogHooks(logging.NewWithWriter(&buf, slog.LevelDebug))

	hooks.EmitUpdate(context.Background(), &domain.UpdateEvent{
		EventBase: domain.EventBase{ActionID: 3},
		Response:  domain.NewErrorResponse("late"),
		Known:     true,
	})
	out := buf.String()
	assert.Contains(t, out, "msg=update")
	assert.Contains(t, out, "action_id=3")
	assert.Contains(t, out, "known=true")
}
