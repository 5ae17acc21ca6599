package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	elasticsearch "github.com/opensearch-project/opensearch-go"
	esapi "github.com/opensearch-project/opensearch-go/opensearchapi"
)

// positionField orders documents so from/size paging is stable
const positionField = "sheetsync_row"

// OpenSearchStore keeps rows as documents of an index.
type OpenSearchStore struct {
	DB    *elasticsearch.Client
	index string
}

func (s *OpenSearchStore) Name() string {
	return "index"
}

func (s *OpenSearchStore) Init(urlStr string, opts StoreOptions) error {
	if strings.HasPrefix(urlStr, "elasticsearch+") {
		urlStr = strings.TrimPrefix(urlStr, "elasticsearch+")
	} else {
		urlStr = strings.TrimPrefix(urlStr, "opensearch+")
	}

	u, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	if opts.Table != "" {
		s.index = opts.Table
	} else if len(u.Path) > 1 {
		s.index = u.Path[1:]
	} else {
		return errors.New("no index specified")
	}
	u.Path = ""

	cfg := elasticsearch.Config{
		Addresses: []string{
			u.String(),
		},
	}
	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}

	s.DB = es

	return nil
}

// Authenticate checks the cluster answers and creates the index when missing.
func (s *OpenSearchStore) Authenticate(ctx context.Context) error {
	es := s.DB

	res, err := es.Indices.Exists([]string{s.index}, es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()

	if res.StatusCode == 200 {
		return nil
	}
	if res.StatusCode != 404 {
		return fmt.Errorf("[%s] checking index %s", res.Status(), s.index)
	}

	mapping := map[string]interface{}{
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				positionField: map[string]interface{}{"type": "long"},
			},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(mapping); err != nil {
		return err
	}

	res, err = es.Indices.Create(s.index,
		es.Indices.Create.WithBody(&buf),
		es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	return checkResult(res)
}

func (s *OpenSearchStore) FetchRows(ctx context.Context, offset int, limit int) ([]Row, error) {
	es := s.DB

	var buf bytes.Buffer
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"match_all": map[string]interface{}{},
		},
		"sort": []interface{}{
			map[string]interface{}{positionField: "asc"},
		},
		"from": offset,
		"size": limit,
	}
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := es.Search(
		es.Search.WithContext(ctx),
		es.Search.WithIndex(s.index),
		es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if err := checkResult(res); err != nil {
		return nil, err
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source map[string]interface{} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("parsing the response body: %w", err)
	}

	rows := make([]Row, 0, len(r.Hits.Hits))
	for _, hit := range r.Hits.Hits {
		row := make(Row, len(hit.Source))
		for key, val := range hit.Source {
			if key == positionField {
				continue
			}
			switch typedVal := val.(type) {
			case string:
				row[key] = typedVal
			case nil:
				row[key] = ""
			default:
				row[key] = fmt.Sprint(typedVal)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *OpenSearchStore) AppendRows(ctx context.Context, rows []Row) error {
	es := s.DB

	res, err := es.Count(es.Count.WithContext(ctx), es.Count.WithIndex(s.index))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if err := checkResult(res); err != nil {
		return err
	}

	var count struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&count); err != nil {
		return fmt.Errorf("parsing the response body: %w", err)
	}

	for i, row := range rows {
		doc := make(map[string]interface{}, len(row)+1)
		for k, v := range row {
			doc[k] = v
		}
		doc[positionField] = count.Count + i

		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return err
		}

		res, err := es.Index(s.index, &buf,
			es.Index.WithContext(ctx),
			es.Index.WithRefresh("true"),
		)
		if err != nil {
			return err
		}
		err = checkResult(res)
		res.Body.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *OpenSearchStore) Close() error {
	return nil
}

func checkResult(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}

	var e struct {
		Error struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&e); err != nil {
		return fmt.Errorf("[%s] %w", res.Status(), err)
	}
	return fmt.Errorf("[%s] %s: %s", res.Status(), e.Error.Type, e.Error.Reason)
}
