package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"findam-backend/internal/common/database"
	"findam-backend/internal/common/logger"

	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticIndex implements Index on top of Elasticsearch.
type ElasticIndex struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewElasticIndex(es *database.ElasticsearchClient, index string, log logger.Logger) *ElasticIndex {
	return &ElasticIndex{es: es, index: index, logger: log}
}

func (e *ElasticIndex) IndexProperty(ctx context.Context, doc PropertyDoc) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "false",
	}
	res, err := req.Do(ctx, e.es.Client)
	if err != nil {
		return fmt.Errorf("index property %s: %w", doc.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index property %s: %s", doc.ID, res.Status())
	}
	return nil
}

func (e *ElasticIndex) DeleteProperty(ctx context.Context, propertyID string) error {
	req := esapi.DeleteRequest{
		Index:      e.index,
		DocumentID: propertyID,
	}
	res, err := req.Do(ctx, e.es.Client)
	if err != nil {
		return fmt.Errorf("delete property %s: %w", propertyID, err)
	}
	defer res.Body.Close()

	// A missing document is fine on delete.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete property %s: %s", propertyID, res.Status())
	}
	return nil
}

// Search returns matching property ids ranked by relevance then rating.
func (e *ElasticIndex) Search(ctx context.Context, q Query) ([]string, int64, error) {
	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	body, err := json.Marshal(buildQuery(q, limit))
	if err != nil {
		return nil, 0, err
	}

	res, err := e.es.Client.Search(
		e.es.Client.Search.WithContext(ctx),
		e.es.Client.Search.WithIndex(e.index),
		e.es.Client.Search.WithBody(bytes.NewReader(body)),
		e.es.Client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, 0, fmt.Errorf("search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]string, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, parsed.Hits.Total.Value, nil
}

func buildQuery(q Query, limit int) map[string]interface{} {
	must := []map[string]interface{}{
		{"term": map[string]interface{}{"is_published": true}},
	}
	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q.Text,
				"fields": []string{"title^2", "description"},
			},
		})
	}
	if q.CityID > 0 {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"city_id": q.CityID}})
	}
	if q.NeighborhoodID > 0 {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"neighborhood_id": q.NeighborhoodID}})
	}
	if q.PropertyType != "" {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"property_type": q.PropertyType}})
	}
	if q.MinCapacity > 0 {
		must = append(must, map[string]interface{}{"range": map[string]interface{}{"capacity": map[string]interface{}{"gte": q.MinCapacity}}})
	}
	if q.MinPrice > 0 || q.MaxPrice > 0 {
		priceRange := map[string]interface{}{}
		if q.MinPrice > 0 {
			priceRange["gte"] = q.MinPrice
		}
		if q.MaxPrice > 0 {
			priceRange["lte"] = q.MaxPrice
		}
		must = append(must, map[string]interface{}{"range": map[string]interface{}{"price_per_night": priceRange}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"avg_rating": map[string]interface{}{"order": "desc"}},
		},
		"from": q.Offset,
		"size": limit,
	}
}
