package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/leighmacdonald/steamid/v4/steamid"
	"github.com/stretchr/testify/require"
)

func TestParser(t *testing.T) {
	type tc struct {
		Line   string
		Result Event
	}

	cases := []tc{
		{
			Line:   "[2025.08.16-01.25.53:123][412]LogWorld: Bringing World /Game/Maps/Narva/Gameplay_Layers/Narva_AAS_v1.Narva_AAS_v1 up for play (max tick rate 50) at 2025.08.16-01.25.53",
			Result: Event{Type: NewGame, Data: NewGameEvent{DLC: "Game", MapName: "Narva", Layer: "Narva_AAS_v1"}},
		}, {
			Line: "[2025.08.16-01.30.11:456][900]LogSquad: Roy (Online IDs: EOS: 0002a10186d9414496bf20d22d3860ba steam: 76561198084134025) has created Squad 3 (Squad Name: ARMOR) on United States Army",
			Result: Event{Type: SquadCreated, Data: SquadCreatedEvent{
				Player:    "Roy",
				EOSID:     "0002a10186d9414496bf20d22d3860ba",
				SteamID:   steamid.New(76561198084134025),
				SquadID:   3,
				SquadName: "ARMOR",
				TeamName:  "United States Army",
			}},
		}, {
			Line:   "[2025.08.16-02.10.00:000][100]LogGameState: Match State Changed from InProgress to WaitingPostMatch",
			Result: Event{Type: MatchEnded, Data: MatchEndedEvent{}},
		},
	}

	parser := newParser()

	for index, testCase := range cases {
		evt, err := parser.parse(testCase.Line)
		require.NoError(t, err, fmt.Sprintf("Test %d fail - parse", index))
		require.Equal(t, testCase.Result.Type, evt.Type, fmt.Sprintf("Test %d fail - type", index))
		require.Equal(t, testCase.Result.Data, evt.Data)
	}
}

func TestParserTimestamp(t *testing.T) {
	evt, err := newParser().parse("[2025.08.16-02.10.00:250][100]LogGameState: Match State Changed from InProgress to WaitingPostMatch")
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 8, 16, 2, 10, 0, 250*int(time.Millisecond), time.UTC), evt.Timestamp)
}

func TestParserNoMatch(t *testing.T) {
	parser := newParser()

	for _, line := range []string{
		"",
		"[2025.08.16-01.25.40:000][  0]LogWorld: Bringing World /Game/Maps/TransitionMap.TransitionMap up for play (max tick rate 50) at 2025.08.16-01.25.40",
		"[2025.08.16-01.25.40:000][  1]LogNet: Join succeeded: Roy",
	} {
		_, err := parser.parse(line)
		require.ErrorIs(t, err, ErrNoMatch, line)
	}
}
