package http_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/gmp"
	httpadapter "github.com/aretw0/gmp/pkg/adapters/http"
	"github.com/aretw0/gmp/pkg/adapters/memory"
	"github.com/aretw0/gmp/pkg/domain"
	"github.com/aretw0/gmp/pkg/observability"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	sender     *memory.Sender
	registry   *memory.Registry
	dispatcher *gmp.Dispatcher
	streams    *httpadapter.StreamManager
	handler    http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		sender:   memory.NewSender(memory.WithTimeout(time.Second)),
		registry: memory.NewRegistry(domain.MustParseConfigPath("X:S1"), domain.MustParseConfigPath("X:S2")),
		streams:  httpadapter.NewStreamManager(),
	}
	metrics := observability.NewMetrics(nil)
	d, err := gmp.New(
		gmp.WithSender(f.sender),
		gmp.WithHandlers(f.registry),
		gmp.WithDispatchHooks(metrics.Hooks().Merge(f.streams.Hooks())),
	)
	require.NoError(t, err)
	f.dispatcher = d
	f.handler = httpadapter.NewHandler(d,
		httpadapter.WithStreams(f.streams),
		httpadapter.WithMetrics(metrics.Handler()),
	)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

const applyBody = `{
	"sequence_command": "APPLY",
	"activity": "START",
	"configuration": {"X:S1:A.val1": "xa1", "X:S2:C.val1": 2}
}`

func TestSubmitCommand_Completed(t *testing.T) {
	f := newFixture(t)
	f.sender.Reply("GMP.SC.APPLY/X:S1", domain.Completed)
	f.sender.Reply("GMP.SC.APPLY/X:S2", domain.Completed)

	w := f.do("POST", "/commands", applyBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp httpadapter.CommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.KindCompleted, resp.Response)
	assert.NotZero(t, resp.ActionID)
	assert.Equal(t, 2, f.sender.Calls())
}

func TestSubmitCommand_StartedThenCompleted(t *testing.T) {
	f := newFixture(t)
	f.sender.Reply("GMP.SC.APPLY/X:S1", domain.Started)
	f.sender.Reply("GMP.SC.APPLY/X:S2", domain.Accepted)

	w := f.do("POST", "/commands", applyBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp httpadapter.CommandResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, domain.KindStarted, resp.Response)

	w = f.do("GET", "/actions", "")
	assert.JSONEq(t, `{"pending":[`+itoa(resp.ActionID)+`]}`, w.Body.String())

	w = f.do("POST", "/actions/"+itoa(resp.ActionID)+"/completion", `{"response":"COMPLETED"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do("GET", "/actions", "")
	assert.JSONEq(t, `{"pending":[]}`, w.Body.String())

	w = f.do("POST", "/actions/"+itoa(resp.ActionID)+"/completion", `{"response":"COMPLETED"}`)
	assert.Equal(t, http.StatusNotFound, w.Code, "late replies are rejected")
}

func TestSubmitCommand_Wait(t *testing.T) {
	f := newFixture(t)
	f.sender.Handle("GMP.SC.PARK", func(_ context.Context, msg domain.ActionMessage) domain.HandlerResponse {
		go func() {
			time.Sleep(10 * time.Millisecond)
			_ = f.dispatcher.UpdateOcs(context.Background(), msg.ActionID, domain.NewErrorResponse("stuck"))
		}()
		return domain.Started
	})

	w := f.do("POST", "/commands", `{"sequence_command":"PARK","wait":true,"timeout":"1s"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"response":"ERROR","message":"stuck"}`, w.Body.String())
}

func TestSubmitCommand_BadRequests(t *testing.T) {
	f := newFixture(t)
	for name, body := range map[string]string{
		"NotJSON":         `{`,
		"UnknownCommand":  `{"sequence_command":"DANCE"}`,
		"UnknownActivity": `{"sequence_command":"APPLY","activity":"LATER"}`,
		"InvalidPath":     `{"sequence_command":"APPLY","configuration":{"X::A":"1"}}`,
		"UnknownField":    `{"sequence_command":"APPLY","colour":"red"}`,
		"BadTimeout":      `{"sequence_command":"APPLY","timeout":"soon"}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := f.do("POST", "/commands", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
	assert.Zero(t, f.sender.Calls())
}

func TestCompleteAction_BadRequests(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/actions/abc/completion", `{"response":"COMPLETED"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/actions/1/completion", `{"response":"MAYBE"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do("POST", "/actions/999999/completion", `{"response":"COMPLETED"}`).Code)
}

func TestHandlers(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/handlers", "")
	assert.JSONEq(t, `{"handlers":["X:S1","X:S2"]}`, w.Body.String())

	assert.Equal(t, http.StatusNoContent, f.do("POST", "/handlers", `{"path":"X:S1:A"}`).Code)
	assert.Equal(t, http.StatusNoContent, f.do("DELETE", "/handlers/X:S2", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/handlers", `{"path":"X:"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do("POST", "/handlers", `{"path":""}`).Code)

	w = f.do("GET", "/handlers", "")
	assert.JSONEq(t, `{"handlers":["X:S1","X:S1:A"]}`, w.Body.String())
}

type fixedHandlers []domain.ConfigPath

func (h fixedHandlers) ApplyHandlers(context.Context) ([]domain.ConfigPath, error) { return h, nil }

func TestHandlers_ReadOnly(t *testing.T) {
	d, err := gmp.New(
		gmp.WithSender(memory.NewSender()),
		gmp.WithHandlers(fixedHandlers{domain.MustParseConfigPath("X")}),
	)
	require.NoError(t, err)
	h := httpadapter.NewHandler(d)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/handlers", strings.NewReader(`{"path":"Y"}`)))
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestInfoAndSpec(t *testing.T) {
	f := newFixture(t)

	w := f.do("GET", "/info", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "gmp-http", info["app"])
	assert.Equal(t, strings.TrimSpace(gmp.Version), info["version"])
	assert.Equal(t, "0.1.0", info["api_version"])

	w = f.do("GET", "/openapi.yaml", "")
	require.Equal(t, http.StatusOK, w.Code)
	doc, err := openapi3.NewLoader().LoadFromData(w.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, doc.Validate(context.Background()))
	assert.NotNil(t, doc.Paths.Find("/actions/{id}/completion"))
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.sender.Reply("GMP.SC.PARK", domain.Accepted)
	require.Equal(t, http.StatusOK, f.do("POST", "/commands", `{"sequence_command":"PARK"}`).Code)

	w := f.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `gmp_dispatch_sends_total{response="ACCEPTED",sequence_command="PARK"} 1`)
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t)
	f.sender.Reply("GMP.SC.PARK", domain.Accepted)

	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)
	require.Equal(t, 1, f.streams.Len())

	_, r, err := f.dispatcher.Submit(context.Background(),
		domain.NewCommand(domain.SequencePark, domain.ActivityStart, domain.EmptyConfiguration), nil)
	require.NoError(t, err)
	require.Equal(t, domain.Accepted, r)

	var data string
	for data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			data = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
		}
	}
	var event domain.CompletionEvent
	require.NoError(t, json.Unmarshal([]byte(data), &event))
	assert.Equal(t, domain.SequencePark, event.SequenceCommand)
	assert.Equal(t, domain.Accepted, event.Response)
	assert.False(t, event.Async)
}

func TestStreamManager_Filter(t *testing.T) {
	sm := httpadapter.NewStreamManager()
	all, cancelAll := sm.Subscribe(0)
	defer cancelAll()
	one, cancelOne := sm.Subscribe(7)

	sm.Broadcast(7, []byte("a"))
	sm.Broadcast(8, []byte("b"))

	assert.Equal(t, []byte("a"), <-all)
	assert.Equal(t, []byte("b"), <-all)
	assert.Equal(t, []byte("a"), <-one)
	assert.Empty(t, one)

	cancelOne()
	_, open := <-one
	assert.False(t, open)
	assert.Equal(t, 1, sm.Len())
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
