package rcon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leighmacdonald/rcon/rcon"
)

const defaultDialTimeout = 5 * time.Second

var (
	errRCON         = errors.New("errors making rcon request")
	errEmptyCommand = errors.New("empty command cannot be sent")
)

// Console runs each command over its own authenticated session. Squad drops idle
// sessions so nothing is held open between commands.
type Console struct {
	addr        string
	password    string
	dialTimeout time.Duration
}

func New(addr string, password string) Console {
	return Console{
		addr:        addr,
		password:    password,
		dialTimeout: defaultDialTimeout,
	}
}

// Exec sends cmd and returns the complete response body.
//
// Squad splits long responses such as ListPlayers on a full server over several packets
// and gives no length or terminator for the last one. It does answer commands strictly in
// order, so an empty command is queued directly behind cmd and every packet carrying the
// id of cmd is collected until the reply to the empty command arrives.
func (c Console) Exec(ctx context.Context, cmd string) (string, error) {
	if strings.TrimSpace(cmd) == "" {
		return "", errEmptyCommand
	}

	conn, errConn := rcon.Dial(ctx, c.addr, c.password, c.dialTimeout)
	if errConn != nil {
		return "", errors.Join(errConn, fmt.Errorf("%w: %s", errRCON, c.addr))
	}

	// Reads block on the connection deadline, closing it is the only way to honour ctx.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	response, errRead := collect(conn, cmd)
	if errRead != nil {
		if ctx.Err() != nil {
			return "", errors.Join(ctx.Err(), errRCON)
		}

		return "", errors.Join(errRead, errRCON)
	}

	return response, nil
}

func collect(conn *rcon.RemoteConsole, cmd string) (string, error) {
	cmdID, errCmd := conn.Write(cmd)
	if errCmd != nil {
		return "", errCmd
	}

	markerID, errMarker := conn.Write("")
	if errMarker != nil {
		return "", errMarker
	}

	var body strings.Builder

	for {
		chunk, respID, errRead := conn.Read()
		if errRead != nil {
			return "", errRead
		}

		switch respID {
		case cmdID:
			body.WriteString(chunk)
		case markerID:
			return body.String(), nil
		}
	}
}
