package internal

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps rows as JSON objects in a list.
type RedisStore struct {
	DB  *redis.Client
	key string
}

func (s *RedisStore) Name() string {
	return "list"
}

func (s *RedisStore) Init(urlStr string, opts StoreOptions) error {
	if opts.Table == "" {
		return errors.New("no key specified")
	}

	opt, err := redis.ParseURL(urlStr)
	if err != nil {
		return err
	}

	s.DB = redis.NewClient(opt)
	s.key = opts.Table

	return nil
}

func (s *RedisStore) Authenticate(ctx context.Context) error {
	return s.DB.Ping(ctx).Err()
}

func (s *RedisStore) FetchRows(ctx context.Context, offset int, limit int) ([]Row, error) {
	values, err := s.DB.LRange(ctx, s.key, int64(offset), int64(offset+limit-1)).Result()
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(values))
	for _, v := range values {
		var row Row
		if err := json.Unmarshal([]byte(v), &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *RedisStore) AppendRows(ctx context.Context, rows []Row) error {
	values := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return err
		}
		values = append(values, string(data))
	}
	return s.DB.RPush(ctx, s.key, values...).Err()
}

func (s *RedisStore) Close() error {
	return s.DB.Close()
}
