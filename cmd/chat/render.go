package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/dtroode/cipherroom/internal/model"
	"github.com/dtroode/cipherroom/internal/roomsync"
)

// renderer prints session changes as a scrolling log.
type renderer struct {
	out io.Writer

	mu           sync.Mutex
	phase        string
	room         string
	participants int
	unread       int
	printed      map[string]struct{}
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out, printed: make(map[string]struct{})}
}

func (r *renderer) render(state model.SessionState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state.RoomID != r.room {
		r.room = state.RoomID
		r.printed = make(map[string]struct{})
		r.participants = 0
	}
	if phase := state.Phase.String(); phase != r.phase {
		r.phase = phase
		switch state.Phase {
		case model.SessionInitializing:
			fmt.Fprintf(r.out, "-- joining %s\n", state.RoomID)
		case model.SessionReady:
			fmt.Fprintf(r.out, "-- in %s\n", state.RoomID)
		case model.SessionFailed:
			fmt.Fprintf(r.out, "-- %s\n", state.Reason)
		}
	}
	if state.ParticipantCount != r.participants && state.Phase == model.SessionReady {
		r.participants = state.ParticipantCount
		fmt.Fprintf(r.out, "-- %d online\n", state.ParticipantCount)
	}

	for _, msg := range state.Messages {
		key := msg.ID.String()
		if msg.ServerTimestamp.IsZero() {
			continue
		}
		if _, ok := r.printed[key]; ok {
			continue
		}
		r.printed[key] = struct{}{}
		fmt.Fprintln(r.out, formatMessage(msg))
	}
}

// invites announces new unread invites.
func (r *renderer) invites(invites []model.Invite) {
	r.mu.Lock()
	defer r.mu.Unlock()

	unread := 0
	for _, inv := range invites {
		if !inv.Read {
			unread++
		}
	}
	if unread > r.unread {
		fmt.Fprintf(r.out, "-- %d unread invite(s), /inbox to list\n", unread)
	}
	r.unread = unread
}

func formatMessage(msg model.Message) string {
	text := msg.Plaintext
	if msg.Failed {
		text = roomsync.RedactedText
	}
	line := fmt.Sprintf("[%s] %s: %s", msg.ServerTimestamp.Local().Format("15:04"), msg.SenderDisplay, text)
	if msg.Verdict.Flagged {
		line += fmt.Sprintf("  (flagged: %s)", msg.Verdict.Label)
	}
	return line
}
