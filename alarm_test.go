package main

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestToggleAlarm_OptimisticThenConfirmed(t *testing.T) {
	env := newLocatedEnv(t)
	env.alarm.started = make(chan struct{}, 1)
	env.alarm.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- env.session.ToggleAlarm(context.Background()) }()
	<-env.alarm.started

	// Flipped before the remote write has completed.
	pending := env.session.Snapshot().Alarm
	if !pending.On || pending.State != AlarmPending {
		t.Fatalf("alarm during write = %+v, want on/pending", pending)
	}

	close(env.alarm.release)
	if err := <-done; err != nil {
		t.Fatalf("ToggleAlarm: %v", err)
	}
	if got := env.alarm.recorded(); !reflect.DeepEqual(got, []bool{true}) {
		t.Errorf("writes = %v, want [true]", got)
	}
	snap := env.session.Snapshot()
	if !snap.Alarm.On || snap.Alarm.State != AlarmConfirmed {
		t.Errorf("alarm = %+v", snap.Alarm)
	}
	if snap.Status != statusAlarmOn {
		t.Errorf("status = %q", snap.Status)
	}
	if len(env.notifier.events) != 1 || !env.notifier.events[0].Alert || env.notifier.events[0].Vehicle != "quanlyxe/vehicle1" {
		t.Errorf("events = %+v", env.notifier.events)
	}
}

func TestToggleAlarm_TwiceWritesInverse(t *testing.T) {
	env := newLocatedEnv(t)
	ctx := context.Background()
	if err := env.session.ToggleAlarm(ctx); err != nil {
		t.Fatal(err)
	}
	if err := env.session.ToggleAlarm(ctx); err != nil {
		t.Fatal(err)
	}
	if got := env.alarm.recorded(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Errorf("writes = %v, want [true false]", got)
	}
	snap := env.session.Snapshot()
	if snap.Alarm.On || snap.Status != statusAlarmOff {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestToggleAlarm_FailureRollsBack(t *testing.T) {
	env := newLocatedEnv(t)
	env.alarm.err = errors.New("permission denied")

	err := env.session.ToggleAlarm(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := env.alarm.recorded(); !reflect.DeepEqual(got, []bool{true}) {
		t.Errorf("writes = %v, want exactly one write of true", got)
	}
	snap := env.session.Snapshot()
	if snap.Alarm.On || snap.Alarm.State != AlarmFailed {
		t.Errorf("alarm = %+v, want off/failed", snap.Alarm)
	}
	if snap.Status != statusAlarmFailed {
		t.Errorf("status = %q", snap.Status)
	}
	if len(env.notifier.events) != 0 {
		t.Errorf("failed toggle published %d events", len(env.notifier.events))
	}
}

// waitForAlarm polls the snapshot until the alarm matches want.
func waitForAlarm(t *testing.T, env *testEnv, want AlarmStatus) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for env.session.Snapshot().Alarm != want {
		if time.Now().After(deadline) {
			t.Fatalf("alarm = %+v, want %+v", env.session.Snapshot().Alarm, want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestToggleAlarm_SupersededResultIgnored(t *testing.T) {
	env := newLocatedEnv(t)
	env.alarm.started = make(chan struct{}, 2)
	env.alarm.release = make(chan struct{})

	first := make(chan error, 1)
	go func() { first <- env.session.ToggleAlarm(context.Background()) }()
	<-env.alarm.started
	second := make(chan error, 1)
	go func() { second <- env.session.ToggleAlarm(context.Background()) }()
	waitForAlarm(t, env, AlarmStatus{On: false, State: AlarmPending})

	close(env.alarm.release)
	if err := <-first; err != nil {
		t.Fatal(err)
	}
	if err := <-second; err != nil {
		t.Fatal(err)
	}

	if got := env.alarm.recorded(); !reflect.DeepEqual(got, []bool{true, false}) {
		t.Errorf("writes = %v, want [true false] in toggle order", got)
	}
	snap := env.session.Snapshot()
	if snap.Alarm.On || snap.Alarm.State != AlarmConfirmed {
		t.Errorf("alarm = %+v, want off/confirmed from the last toggle", snap.Alarm)
	}
	if len(env.notifier.events) != 1 {
		t.Errorf("events = %d, want 1", len(env.notifier.events))
	}
}

func TestToggleAlarm_OverlappingFailuresRollBackToStoredValue(t *testing.T) {
	env := newLocatedEnv(t)
	env.alarm.err = errors.New("unavailable")
	env.alarm.started = make(chan struct{}, 2)
	env.alarm.release = make(chan struct{})

	first := make(chan error, 1)
	go func() { first <- env.session.ToggleAlarm(context.Background()) }()
	<-env.alarm.started
	second := make(chan error, 1)
	go func() { second <- env.session.ToggleAlarm(context.Background()) }()
	waitForAlarm(t, env, AlarmStatus{On: false, State: AlarmPending})

	close(env.alarm.release)
	if err := <-first; err == nil {
		t.Error("first toggle: expected error")
	}
	if err := <-second; err == nil {
		t.Error("second toggle: expected error")
	}

	// Nothing was ever stored, so the view must show the alarm off.
	if snap := env.session.Snapshot(); snap.Alarm != (AlarmStatus{On: false, State: AlarmFailed}) {
		t.Errorf("alarm = %+v, want off/failed", snap.Alarm)
	}
}

func TestToggleAlarm_FailureAfterSuccessKeepsStoredValue(t *testing.T) {
	env := newLocatedEnv(t)
	ctx := context.Background()
	if err := env.session.ToggleAlarm(ctx); err != nil {
		t.Fatal(err)
	}
	env.alarm.mu.Lock()
	env.alarm.err = errors.New("unavailable")
	env.alarm.mu.Unlock()
	if err := env.session.ToggleAlarm(ctx); err == nil {
		t.Fatal("expected error")
	}
	if snap := env.session.Snapshot(); snap.Alarm != (AlarmStatus{On: true, State: AlarmFailed}) {
		t.Errorf("alarm = %+v, want on/failed", snap.Alarm)
	}
}

func TestToggleAlarm_QueuedSupersededToggleSkipsWrite(t *testing.T) {
	env := newLocatedEnv(t)
	env.alarm.started = make(chan struct{}, 3)
	env.alarm.release = make(chan struct{})

	errs := make(chan error, 3)
	go func() { errs <- env.session.ToggleAlarm(context.Background()) }()
	<-env.alarm.started
	go func() { errs <- env.session.ToggleAlarm(context.Background()) }()
	waitForAlarm(t, env, AlarmStatus{On: false, State: AlarmPending})
	go func() { errs <- env.session.ToggleAlarm(context.Background()) }()
	waitForAlarm(t, env, AlarmStatus{On: true, State: AlarmPending})

	close(env.alarm.release)
	for i := 0; i < 3; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}

	if got := env.alarm.recorded(); !reflect.DeepEqual(got, []bool{true, true}) {
		t.Errorf("writes = %v, want [true true]", got)
	}
	if snap := env.session.Snapshot(); snap.Alarm != (AlarmStatus{On: true, State: AlarmConfirmed}) {
		t.Errorf("alarm = %+v, want on/confirmed", snap.Alarm)
	}
}
