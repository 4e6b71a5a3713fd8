package repository

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/NathanDrake2406/QueueDrop-sub002/backend-waitlist/internal/domain"
	pkgredis "github.com/NathanDrake2406/QueueDrop-sub002/pkg/redis"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scriptSHA(script string) string {
	h := sha1.Sum([]byte(script))
	return hex.EncodeToString(h[:])
}

func newMockRedisRepo() (*RedisQueueRepository, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	return NewRedisQueueRepository(pkgredis.NewFromClient(db)), mock
}

func snapshotJSON(t *testing.T, q *domain.Queue, version int64) string {
	t.Helper()
	snap := q.Snapshot()
	snap.Version = version
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	return string(data)
}

func expectSave(mock redismock.ClientMock, q *domain.Queue, expected int64, data string) *redismock.ExpectedCmd {
	args := []interface{}{q.ID, expected, data, "1"}
	for _, c := range q.Customers() {
		args = append(args, c.Token)
	}
	sha := scriptSHA(saveQueueScript)
	mock.ExpectScriptLoad(saveQueueScript).SetVal(sha)
	return mock.ExpectEvalSha(sha, []string{queueKey(q.ID), keyTokens, keyActiveQueues}, args...)
}

func TestRedisQueueRepository_Save_Success(t *testing.T) {
	repo, mock := newMockRedisRepo()
	q := newTestQueue(t, "biz")
	addCustomer(t, q, "Alice")

	expectSave(mock, q, 3, snapshotJSON(t, q, 4)).SetVal([]interface{}{int64(1), "OK", int64(4)})

	require.NoError(t, repo.Save(context.Background(), q, 3))
	assert.Equal(t, int64(4), q.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueueRepository_Save_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		result []interface{}
		err    error
	}{
		{"conflict", []interface{}{int64(0), "VERSION_CONFLICT", int64(5)}, domain.ErrVersionConflict},
		{"not found", []interface{}{int64(0), "NOT_FOUND", int64(0)}, domain.ErrQueueNotFound},
		{"duplicate token", []interface{}{int64(0), "DUPLICATE_TOKEN", int64(3)}, domain.ErrDuplicateToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRedisRepo()
			q := newTestQueue(t, "biz")
			q.Version = 3

			expectSave(mock, q, 3, snapshotJSON(t, q, 4)).SetVal(tt.result)

			err := repo.Save(context.Background(), q, 3)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, int64(3), q.Version, "version untouched on rejection")
		})
	}
}

func TestRedisQueueRepository_Save_RedisError(t *testing.T) {
	repo, mock := newMockRedisRepo()
	q := newTestQueue(t, "biz")

	expectSave(mock, q, 1, snapshotJSON(t, q, 2)).SetErr(errors.New("connection refused"))

	err := repo.Save(context.Background(), q, 1)
	assert.ErrorContains(t, err, "connection refused")
	assert.False(t, domain.IsConflictError(err))
}

func TestRedisQueueRepository_Load(t *testing.T) {
	repo, mock := newMockRedisRepo()
	q := newTestQueue(t, "biz")
	c := addCustomer(t, q, "Alice")

	// The data blob may lag the version field; the field wins
	mock.ExpectHMGet(queueKey(q.ID), "data", "version").SetVal([]interface{}{snapshotJSON(t, q, 1), "7"})

	loaded, err := repo.Load(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), loaded.Version)
	pos, ok := loaded.GetCustomerPosition(c.ID)
	assert.True(t, ok)
	assert.Equal(t, 1, pos)
}

func TestRedisQueueRepository_Load_NotFound(t *testing.T) {
	repo, mock := newMockRedisRepo()
	mock.ExpectHMGet(queueKey("missing"), "data", "version").SetVal([]interface{}{nil, nil})

	_, err := repo.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrQueueNotFound)
}

func TestRedisQueueRepository_Load_Corrupt(t *testing.T) {
	repo, mock := newMockRedisRepo()
	mock.ExpectHMGet(queueKey("q"), "data", "version").SetVal([]interface{}{"{not json", "1"})

	_, err := repo.Load(context.Background(), "q")
	assert.ErrorIs(t, err, domain.ErrCorruptQueue)
}

func TestRedisQueueRepository_Create_SlugTaken(t *testing.T) {
	repo, mock := newMockRedisRepo()
	q := newTestQueue(t, "biz")

	sha := scriptSHA(createQueueScript)
	mock.ExpectScriptLoad(createQueueScript).SetVal(sha)
	mock.ExpectEvalSha(sha,
		[]string{queueKey(q.ID), keySlugs, keyActiveQueues, businessQueuesKey("biz")},
		q.ID, slugKey("biz", q.Slug), snapshotJSON(t, q, 1), "1",
	).SetVal([]interface{}{int64(0), "SLUG_TAKEN"})

	err := repo.Create(context.Background(), q)
	assert.ErrorIs(t, err, domain.ErrQueueAlreadyExists)
	assert.Equal(t, int64(0), q.Version)
}

func TestRedisQueueRepository_FindQueueIDByToken(t *testing.T) {
	repo, mock := newMockRedisRepo()
	mock.ExpectHGet(keyTokens, "tok").SetVal("q-1")
	mock.ExpectHGet(keyTokens, "nope").RedisNil()

	id, err := repo.FindQueueIDByToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "q-1", id)

	_, err = repo.FindQueueIDByToken(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestRedisQueueRepository_ListActiveQueueIDs(t *testing.T) {
	repo, mock := newMockRedisRepo()
	mock.ExpectSMembers(keyActiveQueues).SetVal([]string{"b", "a"})

	ids, err := repo.ListActiveQueueIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestParseScriptResult(t *testing.T) {
	ok, code, version, err := parseScriptResult([]interface{}{int64(1), "OK", int64(9)})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "OK", code)
	assert.Equal(t, int64(9), version)

	_, _, _, err = parseScriptResult([]interface{}{int64(1)})
	assert.Error(t, err)
}
