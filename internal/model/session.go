package model

// SessionPhase is the coarse state of a room session shown to the UI.
type SessionPhase int

const (
	SessionInitializing SessionPhase = iota
	SessionReady
	SessionFailed
)

func (p SessionPhase) String() string {
	switch p {
	case SessionInitializing:
		return "initializing"
	case SessionReady:
		return "ready"
	case SessionFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// SessionState is the renderable state of a room session.
type SessionState struct {
	Phase            SessionPhase
	RoomID           string
	Messages         []Message
	ParticipantCount int
	Reason           string
}
