package internal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps rows as documents of a collection, in _id order.
type MongoStore struct {
	url        string
	database   string
	table      string
	client     *mongo.Client
	collection *mongo.Collection
}

func (s *MongoStore) Name() string {
	return "collection"
}

func (s *MongoStore) Init(urlStr string, opts StoreOptions) error {
	if opts.Table == "" {
		return errors.New("no collection specified")
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	if len(u.Path) < 2 {
		return errors.New("no database specified")
	}

	s.url = urlStr
	s.database = u.Path[1:]
	s.table = opts.Table

	return nil
}

// Authenticate connects on first use and checks the server answers.
func (s *MongoStore) Authenticate(ctx context.Context) error {
	if s.client == nil {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.url))
		if err != nil {
			return err
		}
		s.client = client
		s.collection = client.Database(s.database).Collection(s.table)
	}
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) FetchRows(ctx context.Context, offset int, limit int) ([]Row, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cur, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	rows := []Row{}
	for cur.Next(ctx) {
		var result bson.D
		if err := cur.Decode(&result); err != nil {
			return nil, err
		}

		row := make(Row, len(result))
		for _, elem := range result {
			if elem.Key == "_id" {
				continue
			}
			switch v := elem.Value.(type) {
			case string:
				row[elem.Key] = v
			case nil:
				row[elem.Key] = ""
			default:
				row[elem.Key] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	return rows, nil
}

func (s *MongoStore) AppendRows(ctx context.Context, rows []Row) error {
	docs := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		doc := bson.M{}
		for k, v := range row {
			doc[k] = v
		}
		docs = append(docs, doc)
	}
	_, err := s.collection.InsertMany(ctx, docs)
	return err
}

func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.client.Disconnect(ctx)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil
	}
	return err
}
