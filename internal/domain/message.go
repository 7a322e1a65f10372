package domain

// Inbound message types.
const (
	InJoinRoom   = "join-room"
	InAddSong    = "add-song"
	InToggleLike = "toggle-like"
	InPlaySong   = "play-song"
	InPlayNext   = "play-next"
	InClearRoom  = "clear-room"
	InClearQueue = "clear-queue"
	InGetQueue   = "get-queue"
	InAlive      = "alive"
)

// Outbound message types.
const (
	OutJoinedRoom     = "joined-room"
	OutNewSong        = "new-song"
	OutToggleLike     = "toggle-like"
	OutPlaySong       = "play-song"
	OutSyncQueue      = "sync-queue"
	OutSyncFirstQueue = "sync-first-queue"
	OutClearQueue     = "clear-queue"
	OutError          = "error"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type JoinedRoomPayload struct {
	RoomId  string `json:"roomId"`
	IsAdmin bool   `json:"isAdmin"`
}

func NewErrorMessage(message string) *Message {
	return &Message{
		Type:    OutError,
		Payload: ErrorPayload{Message: message},
	}
}

// IsRoomOwner reports whether userId owns roomId. Rooms are keyed by their owner's id.
func IsRoomOwner(userId, roomId string) bool {
	return userId != "" && userId == roomId
}

// MsgItemAlreadyQueued is sent to the caller whose item duplicates a queued one.
const MsgItemAlreadyQueued = "song is already in the queue"
