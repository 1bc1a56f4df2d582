package server

// EventPayload is the jsonb body written with each audit event.
type EventPayload struct {
	RoomID    string `json:"room_id,omitempty"`
	JoinCode  string `json:"join_code,omitempty"`
	Alias     string `json:"alias,omitempty"`
	PlayerID  int    `json:"player_id,omitempty"`
	NewHostID int    `json:"new_host_id,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Status    string `json:"status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Round     int    `json:"round,omitempty"`
	Hours     int    `json:"hours,omitempty"`
}
