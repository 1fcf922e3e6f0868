package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"rollcall/internal/registration/models"
	"rollcall/pkg/requestcontext"
)

const (
	redisNextIDKey    = "rollcall:next_record_id"
	redisRecordPrefix = "rollcall:record:"
	redisOrderKey     = "rollcall:record_ids"
)

// RedisRecordStore keeps records as JSON documents with an INCR counter for
// ids and a list mirroring insertion order. Suited to sharing one store
// between instances; the write path still assumes the single-logical-writer
// model, so read-merge-write updates are not guarded by WATCH.
type RedisRecordStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisRecordStore {
	return &RedisRecordStore{client: client}
}

func (s *RedisRecordStore) Insert(ctx context.Context, sub models.Submission, createdBy string) (*models.Record, error) {
	id, err := s.client.Incr(ctx, redisNextIDKey).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate record id: %w", err)
	}

	rec := &models.Record{
		ID:        id,
		FullName:  sub.FullName,
		Phone:     sub.Phone,
		CreatedAt: requestcontext.Now(ctx),
		CreatedBy: createdBy,
		Attrs:     sub.Attrs,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, recordKey(id), data, 0)
	pipe.RPush(ctx, redisOrderKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert record: %w", err)
	}
	return rec, nil
}

func (s *RedisRecordStore) Get(ctx context.Context, id int64) (*models.Record, error) {
	data, err := s.client.Get(ctx, recordKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return decodeRecord(data)
}

func (s *RedisRecordStore) Update(ctx context.Context, id int64, upd models.Update) (*models.Record, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	upd.Apply(rec)

	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	if err := s.client.Set(ctx, recordKey(id), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	return rec, nil
}

func (s *RedisRecordStore) Delete(ctx context.Context, id int64) (bool, error) {
	removed, err := s.client.Del(ctx, recordKey(id)).Result()
	if err != nil {
		return false, fmt.Errorf("delete record: %w", err)
	}
	if err := s.client.LRem(ctx, redisOrderKey, 0, id).Err(); err != nil {
		return false, fmt.Errorf("delete record from order list: %w", err)
	}
	return removed > 0, nil
}

func (s *RedisRecordStore) All(ctx context.Context) ([]*models.Record, error) {
	ids, err := s.client.LRange(ctx, redisOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list record ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisRecordPrefix + id
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	out := make([]*models.Record, 0, len(values))
	for _, v := range values {
		// A nil slot means the record was deleted between LRANGE and MGET.
		raw, ok := v.(string)
		if !ok {
			continue
		}
		rec, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordKey(id int64) string {
	return redisRecordPrefix + strconv.FormatInt(id, 10)
}

func decodeRecord(data []byte) (*models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}
