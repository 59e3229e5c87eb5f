package redis

import "fmt"

// Collections as published on a room's change channel.
const (
	collectionMessages     = "messages"
	collectionParticipants = "participants"
)

func collectionKey(roomID, collection string) string {
	return fmt.Sprintf("room:{%s}:%s", roomID, collection)
}

func seqKey(roomID string) string {
	return fmt.Sprintf("room:{%s}:seq", roomID)
}

func changesChannel(roomID string) string {
	return fmt.Sprintf("room:{%s}:changes", roomID)
}

func inviteKey(recipient string) string {
	return "invites:" + recipient
}
