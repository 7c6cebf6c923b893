// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package diag

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sessq/sessq-go/pkg/operation"
	"github.com/sessq/sessq-go/pkg/session"
)

type stubProcessor struct {
	mu  sync.Mutex
	ops []*operation.Operation
}

func (p *stubProcessor) EnqueueHighestPriority(op *operation.Operation) {
	p.mu.Lock()
	p.ops = append(p.ops, op)
	p.mu.Unlock()
}

func (p *stubProcessor) TraceRundown() {}

func (p *stubProcessor) operations() []*operation.Operation {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]*operation.Operation{}, p.ops...)
}

func testAgent(t *testing.T) (agent *Agent, sess *session.Session, proc *stubProcessor, teardown func()) {
	reg := session.NewRegistration("diag-test", session.Settings{})

	sess, err := session.Open(reg, nil)
	require.NoError(t, err)

	proc = &stubProcessor{}
	conn := session.NewConn(proc)
	sess.Register(conn)

	sess.SetState("example.com", 1, session.TransportParameters{}, nil)

	agent = NewAgent()
	agent.Observe(reg)

	teardown = func() {
		session.Unregister(conn)
		sess.Close()
		_ = reg.Close()
	}
	return
}

func TestAgentSessions(t *testing.T) {
	agent, _, _, teardown := testAgent(t)
	defer teardown()

	srv := httptest.NewServer(agent)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)

	var infos []SessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	_ = resp.Body.Close()

	require.Len(t, infos, 1)
	assert.Equal(t, "diag-test", infos[0].Registration)
	assert.Equal(t, 1, infos[0].Connections)
	assert.Equal(t, 1, infos[0].CacheEntries)
	assert.False(t, infos[0].Draining)
}

func TestAgentShutdown(t *testing.T) {
	agent, _, proc, teardown := testAgent(t)
	defer teardown()

	srv := httptest.NewServer(agent)
	defer srv.Close()

	body, _ := json.Marshal(ShutdownRequest{Silent: true, ErrorCode: 7})
	resp, err := http.Post(srv.URL+"/sessions/0/shutdown", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	var response ShutdownResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&response))
	_ = resp.Body.Close()

	require.Empty(t, response.Error)

	ops := proc.operations()
	require.Len(t, ops, 1)
	assert.EqualValues(t, session.ShutdownFlagSilent, ops[0].APICall.ConnShutdown.Flags)
	assert.EqualValues(t, 7, ops[0].APICall.ConnShutdown.ErrorCode)
}

func TestAgentShutdownUnknownSession(t *testing.T) {
	agent, _, proc, teardown := testAgent(t)
	defer teardown()

	srv := httptest.NewServer(agent)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/sessions/7/shutdown", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, proc.operations())
}

func TestAgentShutdownIdsStayStable(t *testing.T) {
	reg := session.NewRegistration("diag-test", session.Settings{})

	s1, err := session.Open(reg, nil)
	require.NoError(t, err)
	s2, err := session.Open(reg, nil)
	require.NoError(t, err)

	proc := &stubProcessor{}
	conn := session.NewConn(proc)
	s2.Register(conn)

	agent := NewAgent()
	agent.Observe(reg)

	srv := httptest.NewServer(agent)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions")
	require.NoError(t, err)

	var infos []SessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	_ = resp.Body.Close()
	require.Len(t, infos, 2)
	require.Equal(t, 0, infos[0].Id)
	require.Equal(t, 1, infos[1].Id)

	// Closing the first session must not shift the second one onto its id.
	s1.Close()

	resp, err = http.Post(srv.URL+"/sessions/0/shutdown", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Empty(t, proc.operations())

	body, _ := json.Marshal(ShutdownRequest{ErrorCode: 1})
	resp, err = http.Post(srv.URL+"/sessions/1/shutdown", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Len(t, proc.operations(), 1)

	session.Unregister(conn)
	s2.Close()
	_ = reg.Close()
}

func TestEventHubStreamsLogEntries(t *testing.T) {
	agent, _, _, teardown := testAgent(t)
	defer teardown()

	srv := httptest.NewServer(agent)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	// The handshake finishes before the server attaches the client.
	for i := 0; agent.Events().ClientCount() == 0; i++ {
		require.Less(t, i, 100, "client never attached")
		time.Sleep(10 * time.Millisecond)
	}

	logger := log.New()
	logger.SetOutput(io.Discard)
	logger.AddHook(agent.Events())

	logger.WithField("origin", "hub-test").Info("stream me")

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(message), "stream me")
}
