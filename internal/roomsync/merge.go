package roomsync

import (
	"cmp"
	"context"
	"errors"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dtroode/cipherroom/internal/crypto"
	"github.com/dtroode/cipherroom/internal/logger"
	"github.com/dtroode/cipherroom/internal/metrics"
	"github.com/dtroode/cipherroom/internal/model"
)

// RedactedText is what a UI shows in place of a message that failed to decrypt.
const RedactedText = "[Message decryption failed]"

// DefaultParallelism bounds concurrent decrypt/classify work per snapshot.
const DefaultParallelism = 8

// Classifier produces a verdict for decrypted text. It must not block on
// model loading and must not fail.
type Classifier interface {
	Classify(ctx context.Context, text string) model.ThreatVerdict
}

// BuildMessages decrypts and classifies a full snapshot and returns it sorted
// by server timestamp, unacknowledged messages first. Every document yields
// exactly one entry; failures become redacted entries.
func BuildMessages(
	ctx context.Context,
	key *crypto.Key,
	classifier Classifier,
	docs []model.MessageDoc,
	parallelism int,
	logger *logger.Logger,
) []model.Message {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	out := make([]model.Message, len(docs))
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, doc := range docs {
		g.Go(func() error {
			out[i] = materialize(ctx, key, classifier, doc, logger)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(out, func(a, b model.Message) int {
		return cmp.Compare(a.SortKey(), b.SortKey())
	})
	metrics.SnapshotsProcessed.Inc()
	return out
}

func materialize(ctx context.Context, key *crypto.Key, classifier Classifier, doc model.MessageDoc, logger *logger.Logger) model.Message {
	msg := model.Message{
		ID:              doc.ID,
		SenderID:        doc.SenderID,
		SenderDisplay:   doc.SenderDisplay,
		Envelope:        doc.Envelope,
		ServerTimestamp: doc.ServerTimestamp,
	}

	if err := doc.Validate(); err != nil {
		logger.Warn("skipping invalid message document", "message_id", doc.ID, "error", err)
		metrics.DecryptFailures.WithLabelValues("invalid_document").Inc()
		msg.Failed = true
		return msg
	}

	plaintext, err := crypto.Decrypt(key, doc.Envelope)
	if err != nil {
		reason := "authentication"
		if errors.Is(err, crypto.ErrMalformedEnvelope) {
			reason = "malformed"
		}
		logger.Warn("failed to decrypt message", "message_id", doc.ID, "reason", reason)
		metrics.DecryptFailures.WithLabelValues(reason).Inc()
		msg.Failed = true
		return msg
	}

	msg.Plaintext = plaintext
	if classifier != nil {
		msg.Verdict = classifier.Classify(ctx, plaintext)
	}
	return msg
}
