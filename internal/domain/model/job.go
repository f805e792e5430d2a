package model

// JobKind selects what a persistence job writes.
type JobKind string

const (
	JobPlayer JobKind = "player"
	JobGame   JobKind = "game"
)

// PersistJob is one pending store write. Exactly one of Player or Game is set.
type PersistJob struct {
	Kind   JobKind     `json:"kind"`
	Player *Player     `json:"player,omitempty"`
	Game   *GameRecord `json:"game,omitempty"`
}

// Key identifies the record the job writes.
func (j PersistJob) Key() string {
	if j.Kind == JobGame && j.Game != nil {
		return "game:" + j.Game.ID
	}
	if j.Player != nil {
		return "player:" + j.Player.ID
	}
	return string(j.Kind)
}
