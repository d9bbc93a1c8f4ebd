package afk_test

import (
	"context"
	"errors"
	"sync"

	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var errOffline = errors.New("player offline")

type sentMessage struct {
	steamID steamid.SteamID
	message string
}

type fakeActions struct {
	mu       sync.Mutex
	warnings []sentMessage
	kicks    []sentMessage
	failKick bool
}

func (f *fakeActions) SendWarning(_ context.Context, steamID steamid.SteamID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.warnings = append(f.warnings, sentMessage{steamID: steamID, message: message})

	return nil
}

func (f *fakeActions) KickPlayer(_ context.Context, steamID steamid.SteamID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.kicks = append(f.kicks, sentMessage{steamID: steamID, message: message})
	if f.failKick {
		return errOffline
	}

	return nil
}

func (f *fakeActions) Warnings() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]sentMessage(nil), f.warnings...)
}

func (f *fakeActions) Kicks() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]sentMessage(nil), f.kicks...)
}

type fakeRoster struct {
	mu       sync.Mutex
	snapshot afk.Snapshot
	err      error
}

func (f *fakeRoster) Roster(_ context.Context) (afk.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.snapshot, f.err
}

func (f *fakeRoster) Set(snapshot afk.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.snapshot = snapshot
}

func (f *fakeRoster) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

type fakeRecorder struct {
	mu      sync.Mutex
	actions []afk.Action
}

func (f *fakeRecorder) Record(_ context.Context, action afk.Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.actions = append(f.actions, action)

	return nil
}

func (f *fakeRecorder) Kinds() []afk.ActionKind {
	f.mu.Lock()
	defer f.mu.Unlock()

	kinds := make([]afk.ActionKind, len(f.actions))
	for idx, action := range f.actions {
		kinds[idx] = action.Kind
	}

	return kinds
}

func testSID(idx int) steamid.SteamID {
	return steamid.New(76561198084134025 + idx)
}

func squad(id int) *int {
	return &id
}

func unassigned(idx int) afk.Player {
	return afk.Player{SteamID: testSID(idx), TeamID: 1}
}

func inSquad(idx int, squadID int) afk.Player {
	return afk.Player{SteamID: testSID(idx), TeamID: 1, SquadID: squad(squadID)}
}

func testOptions() afk.Options {
	opts := afk.DefaultOptions()
	opts.PlayerThreshold = -1
	opts.QueueThreshold = -1

	return opts
}
