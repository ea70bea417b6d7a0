package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/haggle-app/syncengine/internal/backend"
	"github.com/haggle-app/syncengine/internal/logging"
	"github.com/haggle-app/syncengine/internal/models"
	"github.com/haggle-app/syncengine/internal/push"
	"github.com/haggle-app/syncengine/internal/syncerr"
)

// ErrRetryLimit is returned when a bounded retry policy is configured and
// a failed message has exhausted its attempts.
var ErrRetryLimit = errors.New("retry limit reached")

// TimelineConfig tunes a timeline's send behavior.
type TimelineConfig struct {
	// MaxRetryAttempts bounds user-triggered retries per message.
	// Zero keeps the unbounded source behavior.
	MaxRetryAttempts int

	// RetryBackoff is the base delay applied before a retry, doubling per
	// attempt. Zero disables backoff.
	RetryBackoff time.Duration

	// UploadBucket is the storage bucket image attachments go to.
	UploadBucket string
}

// Timeline maintains one open conversation's ordered entry list: confirmed
// messages interleaved with local pending/failed placeholders, with no
// duplicate logical entries. Ordering is insertion order with in-place
// replacement, never re-sorted by timestamp, so a confirmed record keeps
// the screen position its optimistic placeholder occupied.
type Timeline struct {
	cfg            TimelineConfig
	messaging      backend.Messaging
	uploader       backend.Uploader
	principalID    string
	conversationID string
	logger         zerolog.Logger

	// ctx is the view lifetime: Close cancels it, and every request the
	// timeline issues is scoped to it. Cancellation is a silent outcome.
	ctx    context.Context
	cancel context.CancelFunc

	unsubscribe func()

	mu      sync.Mutex
	entries []models.TimelineEntry
	// attempts counts user-triggered retries per local id.
	attempts map[string]int
	// uploads remembers the local asset ref of image sends whose upload
	// has not succeeded yet, so a retry re-runs the upload step.
	uploads map[string]string

	scroll chan struct{}
	wg     sync.WaitGroup
}

// OpenTimeline loads the conversation's messages and subscribes to its
// message-insert events. A failed initial load follows the silent-refresh
// policy: the timeline opens empty and the failure is only logged.
func OpenTimeline(ctx context.Context, cfg TimelineConfig, messaging backend.Messaging, uploader backend.Uploader, bus *push.Bus, principalID, conversationID string) (*Timeline, error) {
	if strings.TrimSpace(principalID) == "" {
		return nil, syncerr.Auth("open timeline")
	}
	if strings.TrimSpace(conversationID) == "" {
		return nil, syncerr.Validation("open timeline", "conversation id is required")
	}

	viewCtx, cancel := context.WithCancel(ctx)

	t := &Timeline{
		cfg:            cfg,
		messaging:      messaging,
		uploader:       uploader,
		principalID:    principalID,
		conversationID: conversationID,
		logger:         logging.WithConversation(conversationID),
		ctx:            viewCtx,
		cancel:         cancel,
		attempts:       make(map[string]int),
		uploads:        make(map[string]string),
		scroll:         make(chan struct{}, 1),
	}

	t.SilentRefresh()

	unsubscribe, err := bus.Subscribe(
		"timeline:"+conversationID,
		push.TopicMessages,
		push.MessageInConversation(conversationID),
		t.handleMessageEvent,
	)
	if err != nil {
		cancel()
		return nil, err
	}
	t.unsubscribe = unsubscribe

	return t, nil
}

// Close tears the view down: cancels in-flight requests, detaches the
// subscription and waits for side-effect goroutines to finish.
func (t *Timeline) Close() {
	t.cancel()
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	t.wg.Wait()
}

// Entries returns a copy of the current ordered entry list.
func (t *Timeline) Entries() []models.TimelineEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.TimelineEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ScrollSignals delivers a pulse after each successful send so the owning
// view can scroll to the bottom. Fire-and-forget: pulses coalesce.
func (t *Timeline) ScrollSignals() <-chan struct{} {
	return t.scroll
}

// Send appends an immediately-visible pending placeholder and issues the
// send request. On rejection the placeholder transitions to failed and the
// error is returned; the entry stays available for Retry. The returned
// local id identifies the placeholder.
func (t *Timeline) Send(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", syncerr.Validation("send message", "content is required")
	}

	localID := t.appendPlaceholder(content)
	return localID, t.dispatchSend(localID, content)
}

// SendImage runs the two-step image flow: upload, then send the resolved
// URL prefixed with models.ImagePrefix. A failure in either step leaves
// the placeholder failed.
func (t *Timeline) SendImage(localAssetRef string) (string, error) {
	if strings.TrimSpace(localAssetRef) == "" {
		return "", syncerr.Validation("send image", "asset ref is required")
	}

	localID := t.appendPlaceholder(models.ImagePrefix + localAssetRef)

	t.mu.Lock()
	t.uploads[localID] = localAssetRef
	t.mu.Unlock()

	return localID, t.dispatchImageSend(localID, localAssetRef)
}

// Retry transitions a failed placeholder back to pending and re-issues the
// request with the same content. Unbounded unless MaxRetryAttempts is set.
func (t *Timeline) Retry(localID string) error {
	t.mu.Lock()
	idx := t.indexByLocalID(localID)
	if idx < 0 || t.entries[idx].Status != models.StatusFailed {
		t.mu.Unlock()
		return syncerr.NotFound("retry message", "failed placeholder")
	}

	t.attempts[localID]++
	attempt := t.attempts[localID]
	if t.cfg.MaxRetryAttempts > 0 && attempt > t.cfg.MaxRetryAttempts {
		t.mu.Unlock()
		return ErrRetryLimit
	}

	t.entries[idx].Status = models.StatusPending
	content := t.entries[idx].Message.Content
	assetRef, needsUpload := t.uploads[localID]
	t.mu.Unlock()

	if t.cfg.RetryBackoff > 0 {
		backoff := t.cfg.RetryBackoff << (attempt - 1)
		timer := time.NewTimer(backoff)
		defer timer.Stop()
		select {
		case <-t.ctx.Done():
			return nil
		case <-timer.C:
		}
	}

	if needsUpload {
		return t.dispatchImageSend(localID, assetRef)
	}
	return t.dispatchSend(localID, content)
}

// Refresh replaces the confirmed portion of the timeline with a full
// refetch, retaining unconfirmed placeholders at the tail.
func (t *Timeline) Refresh() error {
	messages, err := t.messaging.ListMessages(t.ctx, t.conversationID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	confirmed := make(map[string]struct{}, len(messages))
	rebuilt := make([]models.TimelineEntry, 0, len(messages)+4)
	for _, msg := range messages {
		if msg.CorrelationID != "" {
			confirmed[msg.CorrelationID] = struct{}{}
		}
		rebuilt = append(rebuilt, models.TimelineEntry{
			LocalID: msg.CorrelationID,
			Message: msg,
			Status:  models.StatusConfirmed,
		})
	}

	for _, entry := range t.entries {
		if entry.Status == models.StatusConfirmed {
			continue
		}
		if _, ok := confirmed[entry.LocalID]; ok {
			continue
		}
		rebuilt = append(rebuilt, entry)
	}

	t.entries = rebuilt
	return nil
}

// SilentRefresh is Refresh with the list-path error policy: log and keep
// the previous entries.
func (t *Timeline) SilentRefresh() {
	if err := t.Refresh(); err != nil && !syncerr.IsCanceled(err) {
		t.logger.Warn().Err(err).Msg("silent timeline refresh failed")
	}
}

// appendPlaceholder appends a pending entry and returns its local id,
// which doubles as the correlation id transmitted with the send.
func (t *Timeline) appendPlaceholder(content string) string {
	localID := uuid.New().String()

	t.mu.Lock()
	t.entries = append(t.entries, models.TimelineEntry{
		LocalID: localID,
		Message: models.Message{
			ConversationID: t.conversationID,
			SenderID:       t.principalID,
			Content:        content,
			CorrelationID:  localID,
			CreatedAt:      time.Now().UTC(),
		},
		Status: models.StatusPending,
	})
	t.mu.Unlock()

	return localID
}

// dispatchSend issues the send request for a pending placeholder. Success
// leaves the placeholder pending awaiting its confirmation event and
// triggers the read-receipt and scroll side effects. Failure transitions
// the placeholder (tracked by local id, not content) to failed.
// Cancellation from view teardown is a silent outcome.
func (t *Timeline) dispatchSend(localID, content string) error {
	_, err := t.messaging.SendMessage(t.ctx, t.conversationID, t.principalID, content, localID)
	if err != nil {
		if syncerr.IsCanceled(err) {
			return nil
		}
		t.markFailed(localID)
		return err
	}

	// Sending implies having read the conversation; fire-and-forget
	// relative to the timeline mutation.
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.messaging.MarkRead(t.ctx, t.conversationID, t.principalID); err != nil && !syncerr.IsCanceled(err) {
			t.logger.Warn().Err(err).Msg("post-send read receipt failed")
		}
	}()

	select {
	case t.scroll <- struct{}{}:
	default:
	}

	return nil
}

// dispatchImageSend uploads the asset, rewrites the placeholder content to
// the resolved URL and hands off to dispatchSend.
func (t *Timeline) dispatchImageSend(localID, localAssetRef string) error {
	url, err := t.uploader.Upload(t.ctx, localAssetRef, t.cfg.UploadBucket)
	if err != nil {
		if syncerr.IsCanceled(err) {
			return nil
		}
		t.markFailed(localID)
		return err
	}

	content := models.ImagePrefix + url

	t.mu.Lock()
	delete(t.uploads, localID)
	if idx := t.indexByLocalID(localID); idx >= 0 {
		t.entries[idx].Message.Content = content
	}
	t.mu.Unlock()

	return t.dispatchSend(localID, content)
}

// handleMessageEvent reconciles one inbound message-insert event.
func (t *Timeline) handleMessageEvent(ev push.Event) {
	if ev.Change != push.ChangeInsert || ev.Message == nil {
		return
	}
	t.reconcile(*ev.Message)
}

// reconcile merges an authoritative message into the entry list.
//
// Matching order: an already-present confirmed id is ignored (duplicate
// suppression), then an exact correlation-id match against an unconfirmed
// placeholder, then the first pending placeholder with identical sender
// and content (documented first-pending-match tie-break for events that
// carry no correlation id). A match is replaced in place; otherwise the
// record appends at the tail.
func (t *Timeline) reconcile(msg models.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.entries {
		if t.entries[i].Status == models.StatusConfirmed && t.entries[i].Message.ID == msg.ID {
			return
		}
	}

	if msg.CorrelationID != "" {
		for i := range t.entries {
			if t.entries[i].Status != models.StatusConfirmed && t.entries[i].LocalID == msg.CorrelationID {
				t.confirmAt(i, msg)
				return
			}
		}
	}

	for i := range t.entries {
		entry := &t.entries[i]
		if entry.Status == models.StatusPending &&
			entry.Message.SenderID == msg.SenderID &&
			entry.Message.Content == msg.Content {
			t.confirmAt(i, msg)
			return
		}
	}

	t.entries = append(t.entries, models.TimelineEntry{
		LocalID: msg.CorrelationID,
		Message: msg,
		Status:  models.StatusConfirmed,
	})
}

// confirmAt replaces the placeholder at i with the confirmed record,
// keeping its position. Caller holds the lock.
func (t *Timeline) confirmAt(i int, msg models.Message) {
	localID := t.entries[i].LocalID
	t.entries[i] = models.TimelineEntry{
		LocalID: localID,
		Message: msg,
		Status:  models.StatusConfirmed,
	}
	delete(t.attempts, localID)
	delete(t.uploads, localID)
}

// markFailed transitions the placeholder with the given local id to
// failed, if it has not been confirmed meanwhile.
func (t *Timeline) markFailed(localID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if idx := t.indexByLocalID(localID); idx >= 0 && t.entries[idx].Status == models.StatusPending {
		t.entries[idx].Status = models.StatusFailed
	}
}

// indexByLocalID finds the entry with the given local id. Caller holds
// the lock.
func (t *Timeline) indexByLocalID(localID string) int {
	for i := range t.entries {
		if t.entries[i].LocalID == localID {
			return i
		}
	}
	return -1
}
