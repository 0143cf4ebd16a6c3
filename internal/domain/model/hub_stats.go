package model

import "time"

// RegistryStats is the handle_data-adjacent introspection snapshot served
// by the registry over the tui dashboard and /debug/registry (SPEC_FULL.md
// §4 "Registry introspection"), generalizing the teacher's HubStats from
// per-user cell counts to per-tournament shard counts.
type RegistryStats struct {
	TotalTournaments  int           `json:"total_tournaments"`
	TotalParticipants int           `json:"total_participants"`
	TotalSpectators   int           `json:"total_spectators"`
	Uptime            time.Duration `json:"uptime"`
	Shards            []ShardStats  `json:"shards,omitempty"`
}

type ShardStats struct {
	ShardID          int `json:"shard_id"`
	TournamentCount  int `json:"tournament_count"`
	ParticipantCount int `json:"participant_count"`
}
