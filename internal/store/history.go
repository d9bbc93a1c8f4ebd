package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

var ErrQuery = errors.New("failed to query history")

// History persists every afk action for later auditing.
type History struct {
	db *sql.DB
}

func NewHistory(db *sql.DB) *History {
	return &History{db: db}
}

func (h *History) Record(ctx context.Context, action afk.Action) error {
	const query = `INSERT INTO afk_action (kind, steam_id, session_id, message, error, created_on) VALUES (?, ?, ?, ?, ?, ?)`

	if _, errExec := h.db.ExecContext(ctx, query, string(action.Kind), action.SteamID.String(),
		action.SessionID.String(), action.Message, action.Error, action.CreatedOn.UnixMilli()); errExec != nil {
		return errors.Join(errExec, ErrQuery)
	}

	return nil
}

// Recent returns up to limit actions, newest first. A zero steamID matches every player.
func (h *History) Recent(ctx context.Context, steamID steamid.SteamID, limit int) ([]afk.Action, error) {
	var (
		rows    *sql.Rows
		errRows error
	)

	if steamID.Valid() {
		rows, errRows = h.db.QueryContext(ctx, `
			SELECT kind, steam_id, session_id, message, error, created_on FROM afk_action
			WHERE steam_id = ? ORDER BY created_on DESC, action_id DESC LIMIT ?`, steamID.String(), limit)
	} else {
		rows, errRows = h.db.QueryContext(ctx, `
			SELECT kind, steam_id, session_id, message, error, created_on FROM afk_action
			ORDER BY created_on DESC, action_id DESC LIMIT ?`, limit)
	}

	if errRows != nil {
		return nil, errors.Join(errRows, ErrQuery)
	}
	defer rows.Close()

	var actions []afk.Action

	for rows.Next() {
		var (
			action    afk.Action
			kind      string
			rawSID    string
			sessionID string
			createdOn int64
		)

		if errScan := rows.Scan(&kind, &rawSID, &sessionID, &action.Message, &action.Error, &createdOn); errScan != nil {
			return nil, errors.Join(errScan, ErrQuery)
		}

		action.Kind = afk.ActionKind(kind)
		action.SteamID = steamid.New(rawSID)
		action.CreatedOn = time.UnixMilli(createdOn)

		parsed, errParse := uuid.Parse(sessionID)
		if errParse != nil {
			return nil, errors.Join(errParse, ErrQuery)
		}

		action.SessionID = parsed

		actions = append(actions, action)
	}

	if errIter := rows.Err(); errIter != nil {
		return nil, errors.Join(errIter, ErrQuery)
	}

	return actions, nil
}

// Counts returns the number of actions per kind since the given time.
func (h *History) Counts(ctx context.Context, since time.Time) (map[afk.ActionKind]int, error) {
	rows, errRows := h.db.QueryContext(ctx,
		`SELECT kind, count(*) FROM afk_action WHERE created_on >= ? GROUP BY kind`, since.UnixMilli())
	if errRows != nil {
		return nil, errors.Join(errRows, ErrQuery)
	}
	defer rows.Close()

	counts := map[afk.ActionKind]int{}

	for rows.Next() {
		var (
			kind  string
			count int
		)

		if errScan := rows.Scan(&kind, &count); errScan != nil {
			return nil, errors.Join(errScan, ErrQuery)
		}

		counts[afk.ActionKind(kind)] = count
	}

	if errIter := rows.Err(); errIter != nil {
		return nil, errors.Join(errIter, ErrQuery)
	}

	return counts, nil
}
