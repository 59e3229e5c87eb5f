package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dtroode/cipherroom/internal/model"
)

func TestRenderer_PrintsEachAcknowledgedMessageOnce(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	acked := model.Message{ID: uuid.New(), SenderDisplay: "alice", Plaintext: "hi", ServerTimestamp: time.Now()}
	pending := model.Message{ID: uuid.New(), SenderDisplay: "bob", Plaintext: "later"}
	failed := model.Message{ID: uuid.New(), SenderDisplay: "eve", Failed: true, ServerTimestamp: time.Now()}

	r.render(model.SessionState{Phase: model.SessionInitializing, RoomID: "r1"})
	r.render(model.SessionState{Phase: model.SessionReady, RoomID: "r1", ParticipantCount: 2, Messages: []model.Message{pending, acked}})
	r.render(model.SessionState{Phase: model.SessionReady, RoomID: "r1", ParticipantCount: 2, Messages: []model.Message{acked, failed}})

	text := out.String()
	assert.Contains(t, text, "-- joining r1")
	assert.Contains(t, text, "-- 2 online")
	assert.Equal(t, 1, strings.Count(text, "alice: hi"))
	assert.NotContains(t, text, "later")
	assert.Contains(t, text, "eve: [Message decryption failed]")
}

func TestFormatMessage_Flagged(t *testing.T) {
	msg := model.Message{
		SenderDisplay:   "mallory",
		Plaintext:       "threat",
		ServerTimestamp: time.Now(),
		Verdict:         model.ThreatVerdict{Flagged: true, Label: "threat"},
	}
	assert.Contains(t, formatMessage(msg), "(flagged: threat)")
}

func TestRenderer_AnnouncesNewUnreadInvites(t *testing.T) {
	var out bytes.Buffer
	r := newRenderer(&out)

	first := model.Invite{ID: uuid.New(), Status: model.InviteStatusPending}
	second := model.Invite{ID: uuid.New(), Status: model.InviteStatusPending}

	r.invites(nil)
	assert.Empty(t, out.String())

	r.invites([]model.Invite{first})
	assert.Equal(t, "-- 1 unread invite(s), /inbox to list\n", out.String())

	out.Reset()
	first.Read = true
	r.invites([]model.Invite{first})
	assert.Empty(t, out.String())

	r.invites([]model.Invite{second, first})
	assert.Equal(t, "-- 1 unread invite(s), /inbox to list\n", out.String())
}
