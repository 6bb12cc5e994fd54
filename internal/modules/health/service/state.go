package service

import (
	"sync/atomic"
	"time"
)

type State struct {
	ready     atomic.Bool
	startedAt time.Time

	extendedWS atomic.Bool
	lighterWS  atomic.Bool

	cycleNum   atomic.Int64
	cyclePhase atomic.Value // string: idle | opening | holding | closing | rebalancing
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	s.cyclePhase.Store("idle")
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }

func (s *State) SetExtendedWS(v bool) { s.extendedWS.Store(v) }
func (s *State) SetLighterWS(v bool)  { s.lighterWS.Store(v) }
func (s *State) ExtendedWS() bool     { return s.extendedWS.Load() }
func (s *State) LighterWS() bool      { return s.lighterWS.Load() }

func (s *State) SetCycle(n int, phase string) {
	s.cycleNum.Store(int64(n))
	s.cyclePhase.Store(phase)
}

func (s *State) Cycle() (int, string) {
	return int(s.cycleNum.Load()), s.cyclePhase.Load().(string)
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
