// Package models defines the immutable replica records handed to the
// replication runtime. Every type here is a fully materialized copy of the
// primary-store row(s) at the moment of submission; the runtime executes
// later and concurrently with further primary-store mutation, so none of
// these may hold a live reference into primary-store state.
package models

import "time"

// SessionSnapshot mirrors one row of the sessions table.
type SessionSnapshot struct {
	SessionID     int64
	GuildID       int64
	Name          string
	StartTime     time.Time
	EndTime       *time.Time
	IsAuto        bool
	CredentialsID *int64
	ModifierFlags int64
}

// CredentialSnapshot mirrors one row of the credentials table.
type CredentialSnapshot struct {
	ID                 int64
	GuildID            int64
	Name               string
	Address            string
	Port               int
	Password           string
	DefaultModifiers   int64
	AutosessionEnabled bool
}

// APIKeySnapshot mirrors one row of the hss_api_keys table.
type APIKeySnapshot struct {
	ID      int64
	GuildID int64
	Tag     string
	Key     *string
}

// LogLine is one parsed game-server event. All fields except EventTime and
// EventType are event-specific and may be absent.
type LogLine struct {
	EventTime           time.Time
	EventType           string
	PlayerName          *string
	PlayerID            *string
	PlayerTeam          *string
	PlayerRole          *string
	PlayerCombatScore   *int
	PlayerOffenseScore  *int
	PlayerDefenseScore  *int
	PlayerSupportScore  *int
	Player2Name         *string
	Player2ID           *string
	Player2Team         *string
	Player2Role         *string
	Weapon              *string
	Old                 *string
	New                 *string
	TeamName            *string
	SquadName           *string
	Message             *string
}

// MonthOf normalizes t to the start of its calendar month in UTC. Log
// partitions in the secondary store are keyed on this value.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CloneLogs deep-copies a log batch so a scheduled replication cannot
// observe later mutation of the caller's slice.
func CloneLogs(logs []LogLine) []LogLine {
	if len(logs) == 0 {
		return nil
	}
	out := make([]LogLine, len(logs))
	for i, l := range logs {
		out[i] = l.clone()
	}
	return out
}

func (l LogLine) clone() LogLine {
	c := l
	c.PlayerName = cloneStr(l.PlayerName)
	c.PlayerID = cloneStr(l.PlayerID)
	c.PlayerTeam = cloneStr(l.PlayerTeam)
	c.PlayerRole = cloneStr(l.PlayerRole)
	c.PlayerCombatScore = cloneInt(l.PlayerCombatScore)
	c.PlayerOffenseScore = cloneInt(l.PlayerOffenseScore)
	c.PlayerDefenseScore = cloneInt(l.PlayerDefenseScore)
	c.PlayerSupportScore = cloneInt(l.PlayerSupportScore)
	c.Player2Name = cloneStr(l.Player2Name)
	c.Player2ID = cloneStr(l.Player2ID)
	c.Player2Team = cloneStr(l.Player2Team)
	c.Player2Role = cloneStr(l.Player2Role)
	c.Weapon = cloneStr(l.Weapon)
	c.Old = cloneStr(l.Old)
	c.New = cloneStr(l.New)
	c.TeamName = cloneStr(l.TeamName)
	c.SquadName = cloneStr(l.SquadName)
	c.Message = cloneStr(l.Message)
	return c
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
