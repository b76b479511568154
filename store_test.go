package wheel

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestRedisOptionStore_Load(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	store := NewRedisOptionStoreWithRetry(db, NewSilentLogger(), 1, time.Millisecond)
	key := OptionsKeyPrefix + "test"

	tests := []struct {
		name      string
		mockSetup func()
		want      OptionSet
		wantErr   error
	}{
		{
			name: "saved_options",
			mockSetup: func() {
				mock.ExpectGet(key).SetVal(mustJSON(t, DefaultOptions()))
			},
			want: DefaultOptions(),
		},
		{
			name: "missing_key",
			mockSetup: func() {
				mock.ExpectGet(key).RedisNil()
			},
			want: nil,
		},
		{
			name: "saved_empty_array",
			mockSetup: func() {
				mock.ExpectGet(key).SetVal("[]")
			},
			want: OptionSet{},
		},
		{
			name: "corrupted_json",
			mockSetup: func() {
				mock.ExpectGet(key).SetVal("{not json")
			},
			wantErr: ErrStateCorrupted,
		},
		{
			name: "invalid_weight_in_storage",
			mockSetup: func() {
				mock.ExpectGet(key).SetVal(`[{"name":"a","rarity":"Comum","weight":0}]`)
			},
			wantErr: ErrStateCorrupted,
		},
		{
			name: "total_weight_overflow_in_storage",
			mockSetup: func() {
				mock.ExpectGet(key).SetVal(`[{"name":"a","rarity":"","weight":4611686018427387904},{"name":"b","rarity":"","weight":4611686018427387904}]`)
			},
			wantErr: ErrStateCorrupted,
		},
		{
			name: "retriable_error_then_success",
			mockSetup: func() {
				mock.ExpectGet(key).SetErr(errors.New("dial tcp 127.0.0.1:6379: connection refused"))
				mock.ExpectGet(key).SetVal(mustJSON(t, DefaultOptions()))
			},
			want: DefaultOptions(),
		},
		{
			name: "non_retriable_error",
			mockSetup: func() {
				mock.ExpectGet(key).SetErr(errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"))
			},
			wantErr: ErrStateLoadFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()

			got, err := store.Load(context.Background(), "test")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRedisOptionStore_LoadEmptyWheelID(t *testing.T) {
	db, _ := redismock.NewClientMock()
	defer db.Close()

	_, err := NewRedisOptionStore(db, nil).Load(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestRedisOptionStore_Save(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	store := NewRedisOptionStoreWithRetry(db, NewSilentLogger(), 0, time.Millisecond)
	key := OptionsKeyPrefix + "test"

	t.Run("successful_save", func(t *testing.T) {
		mock.ExpectSet(key, []byte(mustJSON(t, DefaultOptions())), 0).SetVal("OK")

		require.NoError(t, store.Save(context.Background(), "test", DefaultOptions()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil_set_saved_as_empty_array", func(t *testing.T) {
		mock.ExpectSet(key, []byte("[]"), 0).SetVal("OK")

		require.NoError(t, store.Save(context.Background(), "test", nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis_error", func(t *testing.T) {
		mock.Regexp().ExpectSet(key, `.*`, 0).SetErr(redis.TxFailedErr)

		err := store.Save(context.Background(), "test", DefaultOptions())
		assert.ErrorIs(t, err, ErrStateSaveFailure)
		assert.ErrorIs(t, err, redis.TxFailedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty_wheel_id", func(t *testing.T) {
		err := store.Save(context.Background(), "", DefaultOptions())
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})
}

func TestRedisOptionStore_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	store := NewRedisOptionStoreWithRetry(db, NewSilentLogger(), 0, time.Millisecond)

	mock.ExpectDel(OptionsKeyPrefix + "test").SetVal(1)
	require.NoError(t, store.Delete(context.Background(), "test"))

	mock.ExpectDel(OptionsKeyPrefix + "test").SetErr(errors.New("boom"))
	assert.ErrorIs(t, store.Delete(context.Background(), "test"), ErrStateSaveFailure)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisOptionStore_KeyPrefixFromConfig(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()

	store := NewRedisOptionStoreFromConfig(db, &StoreConfig{
		RetryAttempts: 0,
		RetryInterval: time.Millisecond,
		KeyPrefix:     "custom:",
	}, NewSilentLogger())

	mock.ExpectGet("custom:office").RedisNil()
	got, err := store.Load(context.Background(), "office")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisOptionStore_RetryHonoursContext(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer db.Close()
	store := NewRedisOptionStoreWithRetry(db, NewSilentLogger(), 3, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	mock.ExpectGet(OptionsKeyPrefix + "test").SetErr(errors.New("i/o timeout"))

	start := time.Now()
	_, err := store.Load(ctx, "test")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSerializeOptions(t *testing.T) {
	data, err := serializeOptions(DefaultOptions())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), `[{"name":"Prêmio Lendário","rarity":"Lendário","weight":5}`))

	too := make(OptionSet, 0, 20000)
	for range 20000 {
		too = append(too, Option{Name: strings.Repeat("x", 60), Rarity: "Comum", Weight: 50})
	}
	_, err = serializeOptions(too)
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMemoryOptionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryOptionStore()

	got, err := store.Load(ctx, "w")
	require.NoError(t, err)
	assert.Nil(t, got)

	options := DefaultOptions()
	require.NoError(t, store.Save(ctx, "w", options))

	// The store holds its own copy
	options[0].Name = "mutated"
	got, err = store.Load(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), got)

	got[1].Name = "mutated too"
	again, err := store.Load(ctx, "w")
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), again)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Load(cancelled, "w")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, store.Save(cancelled, "w", options), context.Canceled)
}

func TestNewOptionStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		config := DefaultConfig()
		config.Store.Backend = StoreBackendMemory

		store, closeStore, err := NewOptionStoreFromConfig(config, nil, nil)
		require.NoError(t, err)
		defer closeStore()

		require.NoError(t, store.Save(ctx, "w", DefaultOptions()))
		got, err := store.Load(ctx, "w")
		require.NoError(t, err)
		assert.Equal(t, DefaultOptions(), got)
	})

	t.Run("sqlite", func(t *testing.T) {
		config := DefaultConfig()
		config.Store.Backend = StoreBackendSQLite
		config.Store.SQLitePath = filepath.Join(t.TempDir(), "wheel.db")

		store, closeStore, err := NewOptionStoreFromConfig(config, nil, NewSilentLogger())
		require.NoError(t, err)

		require.NoError(t, store.Save(ctx, "w", DefaultOptions()))
		got, err := store.Load(ctx, "w")
		require.NoError(t, err)
		assert.Equal(t, DefaultOptions(), got)
		assert.NoError(t, closeStore())
	})

	t.Run("redis", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		defer db.Close()

		config := DefaultConfig()
		config.Store.RetryAttempts = 0
		store, _, err := NewOptionStoreFromConfig(config, db, nil)
		require.NoError(t, err)

		mock.ExpectGet(OptionsKeyPrefix + "w").RedisNil()
		got, err := store.Load(ctx, "w")
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis_without_client", func(t *testing.T) {
		_, _, err := NewOptionStoreFromConfig(DefaultConfig(), nil, nil)
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("unknown_backend", func(t *testing.T) {
		config := DefaultConfig()
		config.Store.Backend = "etcd"
		_, _, err := NewOptionStoreFromConfig(config, nil, nil)
		assert.ErrorIs(t, err, ErrConfigInvalid)
	})
}
