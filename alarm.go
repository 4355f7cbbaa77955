package main

import (
	"context"
	"fmt"
	"time"
)

const notifyTimeout = 5 * time.Second

// ToggleAlarm flips the alarm locally right away (pending), then persists the
// new value. Writes run one at a time in toggle order; a toggle that is
// superseded before its turn skips the write. A failed write restores the
// last value the store accepted and marks the alarm failed. If another toggle
// started meanwhile, this one's outcome is ignored.
func (s *Session) ToggleAlarm(ctx context.Context) error {
	s.mu.Lock()
	next := !s.alarm.On
	s.alarmSeq++
	seq := s.alarmSeq
	s.alarm = AlarmStatus{On: next, State: AlarmPending}
	s.renderLocked()

	for s.alarmTurn != seq-1 {
		s.alarmTurnCond.Wait()
	}
	if seq != s.alarmSeq {
		s.passAlarmTurnLocked(seq)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	err := s.deps.Alarm.WriteAlarm(ctx, next)

	s.mu.Lock()
	s.passAlarmTurnLocked(seq)
	if err == nil {
		s.alarmStored = next
	}
	if seq != s.alarmSeq {
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("write alarm (superseded): %w", err)
		}
		return nil
	}
	if err != nil {
		s.alarm = AlarmStatus{On: s.alarmStored, State: AlarmFailed}
		s.setStatusLocked(statusAlarmFailed)
		s.mu.Unlock()
		s.logf("alarm update failed: %v", err)
		return fmt.Errorf("write alarm: %w", err)
	}
	s.alarm = AlarmStatus{On: next, State: AlarmConfirmed}
	if next {
		s.setStatusLocked(statusAlarmOn)
	} else {
		s.setStatusLocked(statusAlarmOff)
	}
	s.mu.Unlock()

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	event := AlarmEvent{ViewID: s.id, Vehicle: s.deps.VehicleRef, Alert: next, At: time.Now().UTC()}
	if err := s.deps.Notifier.NotifyAlarm(nctx, event); err != nil {
		s.logf("publish alarm event: %v", err)
	}
	return nil
}

func (s *Session) passAlarmTurnLocked(seq uint64) {
	s.alarmTurn = seq
	s.alarmTurnCond.Broadcast()
}
