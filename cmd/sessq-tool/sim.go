// SPDX-FileCopyrightText: 2026 The sessq-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sessq/sessq-go/pkg/diag"
	"github.com/sessq/sessq-go/pkg/operation"
	"github.com/sessq/sessq-go/pkg/session"
	"github.com/sessq/sessq-go/pkg/store"
)

// connProcessor drives one simulated connection: an operation queue drained
// by its own goroutine, the way a real connection would process its work.
type connProcessor struct {
	id    int
	queue *operation.Queue

	stop chan struct{}
	done chan struct{}
}

func newConnProcessor(id int) *connProcessor {
	p := &connProcessor{
		id:    id,
		queue: operation.NewQueue(),

		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go p.run()
	return p
}

// EnqueueHighestPriority implements session.Processor; it must not block, as
// it is called under the session's registry lock.
func (p *connProcessor) EnqueueHighestPriority(op *operation.Operation) {
	p.queue.EnqueueHighestPriority(op)
}

// TraceRundown implements session.Processor.
func (p *connProcessor) TraceRundown() {
	log.WithFields(log.Fields{
		"conn":   p.id,
		"queued": p.queue.Len(),
	}).Debug("Simulated connection rundown")
}

func (p *connProcessor) run() {
	defer close(p.done)

	for {
		for {
			op, ok := p.queue.Pop()
			if !ok {
				break
			}
			p.process(op)
		}

		select {
		case <-p.stop:
			return
		case <-p.queue.Wake():
		}
	}
}

func (p *connProcessor) process(op *operation.Operation) {
	if op.Type == operation.APICall && op.APICall.Type == operation.ConnShutdown {
		args := op.APICall.ConnShutdown

		log.WithFields(log.Fields{
			"conn":      p.id,
			"errorCode": args.ErrorCode,
			"silent":    session.ShutdownFlags(args.Flags)&session.ShutdownFlagSilent != 0,
		}).Info("Simulated connection shuts down")
	}

	op.Finish()
}

func (p *connProcessor) close() {
	close(p.stop)
	<-p.done
}

// simConn is one simulated connection attached to a session.
type simConn struct {
	proc *connProcessor
	conn *session.Conn
}

// runSim for the "sim" CLI option.
func runSim(args []string) {
	if len(args) != 1 {
		printUsage()
	}

	conf, err := parseConfig(args[0])
	if err != nil {
		printFatal(err, "Parsing configuration errored")
	}

	if conf.Registration.Name == "" {
		conf.Registration.Name = "sessq-sim"
	}

	reg := session.NewRegistration(conf.Registration.Name, conf.Session)

	var st *store.Store
	if conf.Store.Path != "" {
		if st, err = store.NewStore(conf.Store.Path); err != nil {
			printFatal(err, "Opening store errored")
		}
	}

	var (
		sessions []*session.Session
		conns    []simConn
		nextId   int
	)

	for i := 0; i < conf.Sim.Sessions; i++ {
		s, sErr := session.Open(reg, fmt.Sprintf("sim-%d", i))
		if sErr != nil {
			printFatal(sErr, "Opening session errored")
		}

		if st != nil {
			if seedErr := st.Seed(s); seedErr != nil {
				log.WithError(seedErr).Warn("Seeding a session cache errored")
			}
		}

		for j := 0; j < conf.Sim.Connections; j++ {
			proc := newConnProcessor(nextId)
			nextId++

			c := session.NewConn(proc)
			s.Register(c)

			conns = append(conns, simConn{proc: proc, conn: c})
		}

		sessions = append(sessions, s)
	}

	if conf.Agent.Listen != "" {
		agent := diag.NewAgent()
		agent.Observe(reg)
		log.AddHook(agent.Events())

		go func() {
			if httpErr := http.ListenAndServe(conf.Agent.Listen, agent); httpErr != nil {
				log.WithError(httpErr).Error("Diagnostic agent stopped")
			}
		}()

		log.WithField("listen", conf.Agent.Listen).Info("Serving the diagnostic agent")
	}

	churnStop := make(chan struct{})
	go churn(sessions, conf.Sim.ChurnMs, churnStop)

	log.WithFields(log.Fields{
		"registration": conf.Registration.Name,
		"sessions":     len(sessions),
		"connections":  len(conns),
	}).Info("Simulation is running")

	waitSigint()
	log.Info("Shutting down..")

	close(churnStop)

	for _, s := range sessions {
		if st != nil {
			if capErr := st.Capture(s); capErr != nil {
				log.WithError(capErr).Warn("Capturing a session cache errored")
			}
		}
		s.Shutdown(session.ShutdownFlagNone, 0)
	}

	for _, sc := range conns {
		session.Unregister(sc.conn)
		sc.proc.close()
	}

	for _, s := range sessions {
		s.Close()
	}

	if closeErr := reg.Close(); closeErr != nil {
		log.WithError(closeErr).Warn("Closing the registration errored")
	}

	if st != nil {
		if closeErr := st.Close(); closeErr != nil {
			log.WithError(closeErr).Warn("Closing the store errored")
		}
	}
}

// churn exercises the resumption cache until stop is closed, so the
// diagnostic endpoints show a moving target.
func churn(sessions []*session.Session, intervalMs int, stop chan struct{}) {
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()

	for round := 0; ; round++ {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		s := sessions[rand.Intn(len(sessions))]
		name := fmt.Sprintf("host-%d.sim.example", rand.Intn(32))

		s.SetState(name, uint32(round), session.TransportParameters{
			InitialMaxData: uint64(rand.Intn(1 << 20)),
		}, nil)

		if _, _, sec, ok := s.GetState(name); ok && sec != nil {
			sec.Release()
		}
	}
}
