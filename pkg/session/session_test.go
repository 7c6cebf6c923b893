// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestRegisterUnregister(t *testing.T) {
	const connNo = 32

	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	var conns [connNo]*Conn
	for i := 0; i < connNo; i++ {
		conns[i] = NewConn(newMockProcessor())
		s.Register(conns[i])
	}

	if s.ConnCount() != connNo {
		t.Fatalf("expected %d registered connections, got %d", connNo, s.ConnCount())
	}

	for _, c := range conns {
		if c.Session() != s {
			t.Fatal("Conn misses its session back reference")
		}
	}

	for _, c := range conns {
		Unregister(c)
		Unregister(c) // must be a no-op
	}

	if s.ConnCount() != 0 {
		t.Fatalf("expected empty registry, got %d connections", s.ConnCount())
	}

	s.Close()
	if err := reg.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestRegisterMovesConnection(t *testing.T) {
	reg := NewRegistration("test", Settings{})
	s1, _ := Open(reg, nil)
	s2, _ := Open(reg, nil)

	c := NewConn(newMockProcessor())
	s1.Register(c)
	s2.Register(c)

	if s1.ConnCount() != 0 {
		t.Fatal("Conn still registered with its previous session")
	}
	if s2.ConnCount() != 1 || c.Session() != s2 {
		t.Fatal("Conn not registered with its new session")
	}

	Unregister(c)
	s1.Close()
	s2.Close()
	_ = reg.Close()
}

func TestConcurrentRegisterUnregister(t *testing.T) {
	const connNo = 128

	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < connNo; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			c := NewConn(newMockProcessor())
			s.Register(c)
			time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
			Unregister(c)
		}()
	}
	wg.Wait()

	if s.ConnCount() != 0 {
		t.Fatalf("expected empty registry, got %d connections", s.ConnCount())
	}

	s.Close()
	_ = reg.Close()
}

func TestCloseBlocksUntilConnectionsDetach(t *testing.T) {
	const connNo = 64

	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	var conns [connNo]*Conn
	for i := 0; i < connNo; i++ {
		conns[i] = NewConn(newMockProcessor())
		s.Register(conns[i])
	}

	var attached int32 = connNo
	var wg sync.WaitGroup
	for i := 0; i < connNo; i++ {
		wg.Add(1)
		go func(c *Conn) {
			defer wg.Done()

			time.Sleep(time.Duration(rand.Intn(20)) * time.Millisecond)
			atomic.AddInt32(&attached, -1)
			Unregister(c)
		}(conns[i])
	}

	s.Close()

	if n := atomic.LoadInt32(&attached); n != 0 {
		t.Fatalf("Close returned with %d connections still attached", n)
	}

	wg.Wait()
	_ = reg.Close()
}

func TestRegisterOnDrainingSessionPanics(t *testing.T) {
	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	blocker := NewConn(newMockProcessor())
	s.Register(blocker)

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	for !s.Draining() {
		time.Sleep(time.Millisecond)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic when registering on a draining session")
			}
		}()
		s.Register(NewConn(newMockProcessor()))
	}()

	Unregister(blocker)
	<-closed
	_ = reg.Close()
}

func TestShutdownDeliveredOnce(t *testing.T) {
	const shutdownNo = 64

	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	proc := newMockProcessor()
	c := NewConn(proc)
	s.Register(c)

	var wg sync.WaitGroup
	for i := 0; i < shutdownNo; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Shutdown(ShutdownFlagNone, 42)
		}()
	}
	wg.Wait()

	ops := proc.operations()
	if len(ops) != 1 {
		t.Fatalf("expected exactly one delivered shutdown, got %d", len(ops))
	}
	if ops[0].APICall.ConnShutdown.ErrorCode != 42 {
		t.Fatalf("unexpected error code %d", ops[0].APICall.ConnShutdown.ErrorCode)
	}

	// Finishing the operation frees the slot for the next signal.
	ops[0].Finish()
	s.Shutdown(ShutdownFlagNone, 7)
	if len(proc.operations()) != 2 {
		t.Fatal("no shutdown delivered after the first one was processed")
	}

	Unregister(c)
	s.Close()
	_ = reg.Close()
}

func TestShutdownErrorCodeOutOfRange(t *testing.T) {
	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	proc := newMockProcessor()
	c := NewConn(proc)
	s.Register(c)

	s.Shutdown(ShutdownFlagNone, MaxErrorCode+1)

	if len(proc.operations()) != 0 {
		t.Fatal("out-of-range error code must be a silent no-op")
	}

	Unregister(c)
	s.Close()
	_ = reg.Close()
}

func TestFallbackCloseShutsDownConnections(t *testing.T) {
	const connNo = 16

	s := OpenFallback(nil)

	procs := make([]*mockProcessor, connNo)
	for i := 0; i < connNo; i++ {
		procs[i] = newMockProcessor()
		c := NewConn(procs[i])

		// React to the shutdown like a real connection would: process the
		// operation on a separate goroutine and detach.
		ch := make(chan struct{}, 1)
		procs[i].onEnqueue = func() { ch <- struct{}{} }
		go func(conn *Conn) {
			<-ch
			Unregister(conn)
		}(c)

		s.Register(c)
	}

	s.Close()

	for i, proc := range procs {
		ops := proc.operations()
		if len(ops) != 1 {
			t.Fatalf("connection %d received %d shutdowns", i, len(ops))
		}
		if ShutdownFlags(ops[0].APICall.ConnShutdown.Flags)&ShutdownFlagSilent == 0 {
			t.Fatalf("connection %d's shutdown is not silent", i)
		}
	}
}

func TestSettingsCopiedAtRegistration(t *testing.T) {
	defaults := Settings{IdleTimeoutMs: 30000, PeerBidiStreamCount: 100}

	reg := NewRegistration("test", defaults)
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	c := NewConn(newMockProcessor())
	s.Register(c)

	if c.Settings() != defaults {
		t.Fatal("session settings not applied at registration")
	}

	// Later session settings changes must not reach registered connections.
	s.SetSettings(Settings{IdleTimeoutMs: 1})
	if c.Settings() != defaults {
		t.Fatal("settings change leaked into a registered connection")
	}

	c.OverrideSettings(Settings{KeepAliveIntervalMs: 500})
	if got := c.Settings(); got.KeepAliveIntervalMs != 500 || got.IdleTimeoutMs != 30000 {
		t.Fatal("local settings override misapplied")
	}

	Unregister(c)
	s.Close()
	_ = reg.Close()
}

func TestSettingsReplacedDuringRegistration(t *testing.T) {
	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	a := Settings{IdleTimeoutMs: 1000, PeerBidiStreamCount: 10}
	b := Settings{IdleTimeoutMs: 2000, PeerBidiStreamCount: 20}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}

			if i%2 == 0 {
				s.SetSettings(a)
			} else {
				s.SetSettings(b)
			}
		}
	}()

	// Every registration must copy one complete settings value, never a mix
	// of two concurrent writes.
	for i := 0; i < 200; i++ {
		c := NewConn(newMockProcessor())
		s.Register(c)
		if got := c.Settings(); got != a && got != b && got != (Settings{}) {
			t.Fatalf("connection copied torn settings: %+v", got)
		}
		Unregister(c)
	}

	close(stop)
	wg.Wait()

	s.Close()
	_ = reg.Close()
}

func TestVerifyingToggledDuringRegistration(t *testing.T) {
	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}

			reg.SetVerifying(i%2 == 0)
		}
	}()

	for i := 0; i < 200; i++ {
		c := NewConn(newMockProcessor())
		s.Register(c)
		Unregister(c)
	}

	close(stop)
	wg.Wait()

	s.Close()
	_ = reg.Close()
}

func TestTraceRundown(t *testing.T) {
	reg := NewRegistration("test", Settings{})
	s, err := Open(reg, nil)
	if err != nil {
		t.Fatal(err)
	}

	procs := []*mockProcessor{newMockProcessor(), newMockProcessor()}
	conns := []*Conn{NewConn(procs[0]), NewConn(procs[1])}
	for _, c := range conns {
		s.Register(c)
	}

	s.TraceRundown()

	for i, proc := range procs {
		if proc.traceCount() != 1 {
			t.Fatalf("connection %d traced %d times", i, proc.traceCount())
		}
	}

	for _, c := range conns {
		Unregister(c)
	}
	s.Close()
	_ = reg.Close()
}
