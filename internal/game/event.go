package game

// EventType names an outbound controller event. The transport layer writes
// events to the client verbatim as {type, payload} envelopes.
type EventType string

const (
	// EventGame carries the latest observed game row.
	EventGame EventType = "game"
	// EventRoster carries the join-ordered player list (host only).
	EventRoster EventType = "roster"
	// EventProgress carries the answered/total tally (host only).
	EventProgress EventType = "progress"
	// EventCloud carries the live wordcloud frequencies (host only).
	EventCloud EventType = "cloud"
	// EventTick carries the derived remaining seconds for the countdown.
	EventTick EventType = "tick"
	// EventSubmitted acknowledges an accepted answer (player only).
	EventSubmitted EventType = "submitted"
	// EventVerdict reports correctness at reveal (player only).
	EventVerdict EventType = "verdict"
	// EventResults carries the final leaderboard.
	EventResults EventType = "results"
	// EventError surfaces a failed action; state is left unchanged.
	EventError EventType = "error"
)

// Event is one outbound message from a controller to its client.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// TickPayload is the countdown value derived from the shared timestamp.
type TickPayload struct {
	QuestionIndex int `json:"questionIndex"`
	Remaining     int `json:"remaining"`
}

// VerdictPayload is a player's reveal-phase correctness result.
type VerdictPayload struct {
	QuestionIndex int  `json:"questionIndex"`
	Correct       bool `json:"correct"`
}

// SubmittedPayload acknowledges a stored answer.
type SubmittedPayload struct {
	QuestionIndex int `json:"questionIndex"`
}

// ErrorPayload carries a user-visible action failure.
type ErrorPayload struct {
	Message string `json:"message"`
}

// emitTo delivers an event without ever blocking the controller loop; when
// the buffer is full the oldest pending event is dropped in favor of the new
// one, since every event is a snapshot superseded by its successor.
func emitTo(ch chan Event, e Event) {
	select {
	case ch <- e:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}
