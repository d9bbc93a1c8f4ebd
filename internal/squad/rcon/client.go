// Package rcon provides the rcon backed implementations of the afk roster source and
// admin actions for a Squad server.
package rcon

import (
	"context"
	"errors"
	"log/slog"

	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/squad-afk/internal/squad"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

const (
	cmdListPlayers    = "ListPlayers"
	cmdShowServerInfo = "ShowServerInfo"
)

var (
	ErrRosterQuery = errors.New("failed to perform roster query")
	ErrAdminAction = errors.New("failed to perform admin action")
)

// Executor runs a raw rcon command.
type Executor interface {
	Exec(ctx context.Context, cmd string) (string, error)
}

// Client talks to a Squad server over rcon.
type Client struct {
	exec Executor
}

func NewClient(exec Executor) *Client {
	return &Client{exec: exec}
}

// Roster combines ListPlayers and ShowServerInfo into a snapshot. The server info is only
// needed for the threshold overrides so a failure there falls back to the roster size with
// empty queues.
func (c *Client) Roster(ctx context.Context) (afk.Snapshot, error) {
	response, errExec := c.exec.Exec(ctx, cmdListPlayers)
	if errExec != nil {
		return afk.Snapshot{}, errors.Join(errExec, ErrRosterQuery)
	}

	players := squad.ParsePlayers(response)
	snapshot := afk.Snapshot{
		Players:     players,
		PlayerCount: len(players),
	}

	info, errInfo := c.ServerInfo(ctx)
	if errInfo != nil {
		slog.Warn("Failed to fetch server info, using roster size", slog.String("error", errInfo.Error()))

		return snapshot, nil
	}

	if info.PlayerCount > 0 {
		snapshot.PlayerCount = int(info.PlayerCount)
	}

	snapshot.PublicQueue = int(info.PublicQueue)
	snapshot.ReserveQueue = int(info.ReservedQueue)

	return snapshot, nil
}

func (c *Client) ServerInfo(ctx context.Context) (squad.ServerInfo, error) {
	response, errExec := c.exec.Exec(ctx, cmdShowServerInfo)
	if errExec != nil {
		return squad.ServerInfo{}, errors.Join(errExec, ErrRosterQuery)
	}

	return squad.ParseServerInfo(response)
}

func (c *Client) SendWarning(ctx context.Context, steamID steamid.SteamID, message string) error {
	if _, errExec := c.exec.Exec(ctx, squad.WarnCommand(steamID, message)); errExec != nil {
		return errors.Join(errExec, ErrAdminAction)
	}

	return nil
}

func (c *Client) KickPlayer(ctx context.Context, steamID steamid.SteamID, message string) error {
	if _, errExec := c.exec.Exec(ctx, squad.KickCommand(steamID, message)); errExec != nil {
		return errors.Join(errExec, ErrAdminAction)
	}

	return nil
}
