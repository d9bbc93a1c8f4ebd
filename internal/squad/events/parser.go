package events

import (
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
)

const (
	// [2025.08.16-01.25.53:123][412], the millisecond separator is swapped for a dot before parsing.
	logTimestampFormat = "2006.01.02-15.04.05.000"
	transitionMap      = "TransitionMap"
)

var (
	ErrNoMatch        = errors.New("no match found")
	ErrParseTimestamp = errors.New("failed to parse timestamp")
)

type EventType int

const (
	Any EventType = iota - 1
	NewGame
	SquadCreated
	MatchEnded
)

func (t EventType) String() string {
	switch t {
	case NewGame:
		return "new_game"
	case SquadCreated:
		return "squad_created"
	case MatchEnded:
		return "match_ended"
	default:
		return "any"
	}
}

type Event struct {
	Type      EventType
	Timestamp time.Time
	Raw       string
	Data      any
}

func (e *Event) ApplyTimestamp(tsString string) error {
	ts, errTS := parseTimestamp(tsString)
	if errTS != nil {
		return errTS
	}

	e.Timestamp = ts

	return nil
}

type AnyEvent struct {
	Raw string
}

// NewGameEvent is emitted when the server loads the world for a new round.
type NewGameEvent struct {
	DLC     string
	MapName string
	Layer   string
}

type SquadCreatedEvent struct {
	Player    string
	EOSID     string
	SteamID   steamid.SteamID
	SquadID   int
	SquadName string
	TeamName  string
}

type MatchEndedEvent struct{}

type parser struct {
	rx []*regexp.Regexp
}

// parseTimestamp will convert the server log timestamps into a time.Time value.
func parseTimestamp(timestamp string) (time.Time, error) {
	parsedTime, errParse := time.Parse(logTimestampFormat, strings.Replace(timestamp, ":", ".", 1))
	if errParse != nil {
		return time.Time{}, errors.Join(errParse, ErrParseTimestamp)
	}

	return parsedTime, nil
}

func newParser() *parser {
	return &parser{
		rx: []*regexp.Regexp{
			// [2025.08.16-01.25.53:123][412]LogWorld: Bringing World /Game/Maps/Narva/Gameplay_Layers/Narva_AAS_v1.Narva_AAS_v1 up for play (max tick rate 50) at 2025.08.16-01.25.53
			regexp.MustCompile(`^\[([0-9.:-]+)]\[\s*\d*]LogWorld: Bringing World /([A-Za-z0-9_]+)/(?:Maps/)?([A-Za-z0-9_-]+)/(?:.+/)?([A-Za-z0-9_-]+)(?:\.[A-Za-z0-9_-]+)`),
			// [2025.08.16-01.30.11:456][900]LogSquad: Roy (Online IDs: EOS: 0002a10186d9414496bf20d22d3860ba steam: 76561198084134025) has created Squad 3 (Squad Name: ARMOR) on United States Army
			regexp.MustCompile(`^\[([0-9.:-]+)]\[\s*\d*]LogSquad: (.+) \(Online IDs: EOS: ([0-9a-f]{32})(?: steam: (\d{17}))?\) has created Squad (\d+) \(Squad Name: (.+)\) on (.+)$`),
			// [2025.08.16-02.10.00:000][100]LogGameState: Match State Changed from InProgress to WaitingPostMatch
			regexp.MustCompile(`^\[([0-9.:-]+)]\[\s*\d*]LogGameState: Match State Changed from InProgress to WaitingPostMatch`),
		},
	}
}

func (parser *parser) parse(msg string) (Event, error) {
	// the index must match the index of the EventType const values
	for parserIdx, rxMatcher := range parser.rx {
		match := rxMatcher.FindStringSubmatch(msg)
		if match == nil {
			continue
		}

		outEvent := Event{Raw: msg, Type: EventType(parserIdx)}

		if errTS := outEvent.ApplyTimestamp(match[1]); errTS != nil {
			slog.Error("Failed to parse timestamp", slog.String("error", errTS.Error()))
		}

		switch outEvent.Type { //nolint:exhaustive
		case NewGame:
			if match[4] == transitionMap {
				return Event{}, ErrNoMatch
			}

			outEvent.Data = NewGameEvent{DLC: match[2], MapName: match[3], Layer: match[4]}
		case SquadCreated:
			squadID, errSquadID := strconv.ParseInt(match[5], 10, 32)
			if errSquadID != nil {
				slog.Error("Failed to parse squad id", slog.String("error", errSquadID.Error()))

				continue
			}

			outEvent.Data = SquadCreatedEvent{
				Player:    match[2],
				EOSID:     match[3],
				SteamID:   steamid.New(match[4]),
				SquadID:   int(squadID),
				SquadName: match[6],
				TeamName:  match[7],
			}
		case MatchEnded:
			outEvent.Data = MatchEndedEvent{}
		}

		return outEvent, nil
	}

	return Event{}, ErrNoMatch
}
