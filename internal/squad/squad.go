// Package squad handles interfacing with a Squad dedicated server.
package squad

import (
	"bufio"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/leighmacdonald/squad-afk/internal/afk"
	"github.com/leighmacdonald/steamid/v4/steamid"
)

const (
	noSquad          = "N/A"
	disconnectedMark = "----- Recently Disconnected Players"
)

var (
	ErrServerInfo = errors.New("failed to parse server info")

	// ID: 0 | Online IDs: EOS: 0002a10186d9414496bf20d22d3860ba steam: 76561198000000000 | Name: Player | Team ID: 1 | Squad ID: N/A | Is Leader: False | Role: USA_Rifleman_01
	// ID: 0 | SteamID: 76561198000000000 | Name: Player | Team ID: 1 | Squad ID: 2 | Is Leader: True | Role: USA_SL_01
	// ID: 0 | Online IDs: EOS: 0002a10186d9414496bf20d22d3860ba | Name: Player | Team ID: 1 | Squad ID: N/A | ...
	playerRx = regexp.MustCompile(`^ID: (\d+) \| (?:Online IDs: EOS: ([0-9a-f]*)(?: steam: (\d{17}))?[^|]*|SteamID: (\d{17})) \| Name: (.*?) \| Team ID: (\d+|N/A) \| Squad ID: (\d+|N/A)`)
)

// ParsePlayers parses the output of the ListPlayers rcon command. Players listed under the
// recently disconnected section are ignored.
func ParsePlayers(response string) []afk.Player {
	var (
		players []afk.Player
		scanner = bufio.NewScanner(strings.NewReader(response))
	)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, disconnectedMark) {
			break
		}

		match := playerRx.FindStringSubmatch(line)
		if match == nil {
			continue
		}

		rawSID := match[3]
		if rawSID == "" {
			rawSID = match[4]
		}

		// Players connected through EOS without a linked steam account cannot be warned or kicked by steam id.
		if rawSID == "" {
			slog.Debug("Skipping player without steam id",
				slog.String("eos_id", match[2]), slog.String("name", match[5]))

			continue
		}

		steamID := steamid.New(rawSID)
		if !steamID.Valid() {
			continue
		}

		player := afk.Player{
			SteamID: steamID,
			Name:    match[5],
			TeamID:  parseInt(match[6], 0),
		}

		if match[7] != noSquad {
			squadID := parseInt(match[7], 0)
			player.SquadID = &squadID
		}

		players = append(players, player)
	}

	return players
}

// ServerInfo holds the subset of the ShowServerInfo response we care about.
type ServerInfo struct {
	ServerName    string  `json:"ServerName_s"`
	MapName       string  `json:"MapName_s"`
	GameMode      string  `json:"GameMode_s"`
	MaxPlayers    flexInt `json:"MaxPlayers"`
	PlayerCount   flexInt `json:"PlayerCount_I"`
	PublicQueue   flexInt `json:"PublicQueue_I"`
	ReservedQueue flexInt `json:"ReservedQueue_I"`
}

// flexInt accepts both JSON numbers and numeric strings, the game reports most counters as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*f = 0

		return nil
	}

	value, errValue := strconv.ParseInt(raw, 10, 32)
	if errValue != nil {
		return errValue
	}

	*f = flexInt(value)

	return nil
}

// ParseServerInfo decodes the JSON payload returned by ShowServerInfo.
func ParseServerInfo(response string) (ServerInfo, error) {
	var info ServerInfo
	if err := json.Unmarshal([]byte(strings.TrimSpace(response)), &info); err != nil {
		return ServerInfo{}, errors.Join(err, ErrServerInfo)
	}

	return info, nil
}

// WarnCommand builds the AdminWarn command for a player. The message is sent in full.
func WarnCommand(steamID steamid.SteamID, message string) string {
	return `AdminWarn "` + steamID.String() + `" ` + singleLine(message)
}

// KickCommand builds the AdminKick command for a player.
func KickCommand(steamID steamid.SteamID, reason string) string {
	return `AdminKick "` + steamID.String() + `" ` + singleLine(reason)
}

// singleLine flattens a message onto one line, a newline would terminate the rcon command early.
func singleLine(message string) string {
	return strings.ReplaceAll(strings.TrimSpace(message), "\n", " ")
}

func parseInt(s string, def int) int {
	value, errValue := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if errValue != nil {
		return def
	}

	return int(value)
}
