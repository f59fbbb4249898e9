package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kiribu/actor-relay/internal/timecat/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryStore struct {
	mu        sync.Mutex
	records   map[int]*repository.TimeRecord
	updates   int
	findErr   error
	staleRead bool
}

func newMemoryStore(pendingIDs ...int) *memoryStore {
	s := &memoryStore{records: map[int]*repository.TimeRecord{}}
	for _, id := range pendingIDs {
		id := id
		s.records[id] = &repository.TimeRecord{TelegramMessageID: &id}
	}
	return s
}

func (s *memoryStore) FindByMessageID(ctx context.Context, messageID int) (*repository.TimeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	rec, ok := s.records[messageID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	if s.staleRead {
		cp.Category = nil
	}
	return &cp, nil
}

func (s *memoryStore) CompletePending(ctx context.Context, messageID int, category string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[messageID]
	if !ok || rec.Category != nil {
		return false, nil
	}
	s.updates++
	c := category
	rec.Category = &c
	rec.LastModificationDate = &at
	return true, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type recordingNotifier struct {
	sent      []sentMessage
	deleted   []int
	sendErr   error
	deleteErr error
}

func (n *recordingNotifier) SendMessage(chatID int64, text string) error {
	n.sent = append(n.sent, sentMessage{chatID: chatID, text: text})
	return n.sendErr
}

func (n *recordingNotifier) DeleteMessage(chatID int64, messageID int) error {
	n.deleted = append(n.deleted, messageID)
	return n.deleteErr
}

func newTestService(store Store, notifier Notifier) *Service {
	svc := NewService(store, notifier, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2025, 7, 6, 12, 0, 0, 0, time.FixedZone("JST", 9*3600)) }
	return svc
}

func TestCompleteTwiceIsIdempotent(t *testing.T) {
	store := newMemoryStore(100)
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)

	res, err := svc.Complete(context.Background(), 100, 1, 42)
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, res)

	res, err = svc.Complete(context.Background(), 100, 3, 42)
	require.NoError(t, err)
	assert.Equal(t, ResultAlreadyCompleted, res)

	assert.Equal(t, 1, store.updates)
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, sentMessage{chatID: 42, text: "category recorded: gym"}, notifier.sent[0])
	assert.Equal(t, []int{100}, notifier.deleted)

	rec := store.records[100]
	require.NotNil(t, rec.Category)
	assert.Equal(t, "gym", *rec.Category)
	require.NotNil(t, rec.LastModificationDate)
	assert.Equal(t, time.UTC, rec.LastModificationDate.Location())
}

func TestCompleteInvalidIndexLeavesRecordPending(t *testing.T) {
	for _, idx := range []int{-1, 10, 99} {
		store := newMemoryStore(7)
		notifier := &recordingNotifier{}
		svc := newTestService(store, notifier)

		res, err := svc.Complete(context.Background(), 7, idx, 42)
		require.NoError(t, err)
		assert.Equal(t, ResultInvalidIndex, res, "index %d", idx)
		assert.Nil(t, store.records[7].Category)
		assert.Zero(t, store.updates)
		assert.Empty(t, notifier.sent)
		assert.Empty(t, notifier.deleted)
	}
}

func TestCompleteUnknownMessage(t *testing.T) {
	store := newMemoryStore(7)
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)

	res, err := svc.Complete(context.Background(), 8, 0, 42)
	require.NoError(t, err)
	assert.Equal(t, ResultNotFound, res)
	assert.Zero(t, store.updates)
	assert.Empty(t, notifier.sent)
}

func TestCompleteLosingConcurrentUpdate(t *testing.T) {
	store := newMemoryStore(5)
	done := "social"
	store.records[5].Category = &done
	store.staleRead = true
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)

	res, err := svc.Complete(context.Background(), 5, 0, 42)
	require.NoError(t, err)
	assert.Equal(t, ResultAlreadyCompleted, res)
	assert.Equal(t, "social", *store.records[5].Category)
	assert.Empty(t, notifier.sent)
}

func TestCompleteConcurrentDeliveriesConfirmOnce(t *testing.T) {
	store := newMemoryStore(11)
	store.staleRead = true
	notifier := &lockedNotifier{}
	svc := newTestService(store, notifier)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Complete(context.Background(), 11, 2, 42)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	completed := 0
	for _, r := range results {
		if r == ResultCompleted {
			completed++
		} else {
			assert.Equal(t, ResultAlreadyCompleted, r)
		}
	}
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, store.updates)
	assert.Equal(t, 1, notifier.count())
}

func TestCompleteNotificationFailureStillCompleted(t *testing.T) {
	store := newMemoryStore(9)
	notifier := &recordingNotifier{sendErr: errors.New("telegram down"), deleteErr: errors.New("telegram down")}
	svc := newTestService(store, notifier)

	res, err := svc.Complete(context.Background(), 9, 9, 42)
	require.NoError(t, err)
	assert.Equal(t, ResultCompleted, res)
	assert.Equal(t, "reading", *store.records[9].Category)
}

func TestCompleteStoreFailure(t *testing.T) {
	store := newMemoryStore(9)
	store.findErr = errors.New("mongo unreachable")
	notifier := &recordingNotifier{}
	svc := newTestService(store, notifier)

	_, err := svc.Complete(context.Background(), 9, 0, 42)
	assert.Error(t, err)
	assert.Empty(t, notifier.sent)
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "already_completed", ResultAlreadyCompleted.String())
	assert.Equal(t, "result(42)", Result(42).String())
}

type lockedNotifier struct {
	mu   sync.Mutex
	sent int
}

func (n *lockedNotifier) SendMessage(chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent++
	return nil
}

func (n *lockedNotifier) DeleteMessage(chatID int64, messageID int) error { return nil }

func (n *lockedNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent
}
