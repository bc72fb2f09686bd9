package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"yoyaku/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type Config struct {
	URL        string
	Index      string
	Username   string
	Password   string
	MaxRetries int
	Timeout    time.Duration
}

type ElasticsearchClient struct {
	client *elasticsearch.Client
	config Config
}

// RestaurantDocument is the indexed shape of a restaurant. Each localized
// name and description lives in its own field with its own analyzer.
type RestaurantDocument struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	NameJa        string    `json:"name_ja,omitempty"`
	NameKo        string    `json:"name_ko,omitempty"`
	Address       string    `json:"address,omitempty"`
	Cuisine       string    `json:"cuisine,omitempty"`
	DescriptionEn string    `json:"description_en,omitempty"`
	DescriptionJa string    `json:"description_ja,omitempty"`
	DescriptionKo string    `json:"description_ko,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewElasticsearchClient(cfg Config) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	if err := client.ensureIndex(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

// ensureIndex creates the restaurants index if it does not exist.
// Japanese fields use kuromoji, Korean fields use nori; both analysis
// plugins must be installed on the cluster.
func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return nil
	}

	mapping := map[string]interface{}{
		"settings": map[string]interface{}{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]interface{}{
				"analyzer": map[string]interface{}{
					"ja_analyzer": map[string]interface{}{
						"type":      "custom",
						"tokenizer": "kuromoji_tokenizer",
						"filter":    []string{"kuromoji_baseform", "lowercase", "ja_stop"},
					},
					"ko_analyzer": map[string]interface{}{
						"type":      "custom",
						"tokenizer": "nori_tokenizer",
						"filter":    []string{"nori_part_of_speech", "lowercase"},
					},
				},
				"filter": map[string]interface{}{
					"ja_stop": map[string]interface{}{
						"type":      "stop",
						"stopwords": "_japanese_",
					},
				},
			},
		},
		"mappings": map[string]interface{}{
			"properties": map[string]interface{}{
				"id": map[string]interface{}{
					"type": "long",
				},
				"name": map[string]interface{}{
					"type":     "text",
					"analyzer": "english",
					"fields": map[string]interface{}{
						"keyword": map[string]interface{}{
							"type":         "keyword",
							"ignore_above": 256,
						},
					},
				},
				"name_ja": map[string]interface{}{
					"type":     "text",
					"analyzer": "ja_analyzer",
				},
				"name_ko": map[string]interface{}{
					"type":     "text",
					"analyzer": "ko_analyzer",
				},
				"address": map[string]interface{}{
					"type": "text",
				},
				"cuisine": map[string]interface{}{
					"type": "keyword",
				},
				"description_en": map[string]interface{}{
					"type":     "text",
					"analyzer": "english",
				},
				"description_ja": map[string]interface{}{
					"type":     "text",
					"analyzer": "ja_analyzer",
				},
				"description_ko": map[string]interface{}{
					"type":     "text",
					"analyzer": "ko_analyzer",
				},
				"created_at": map[string]interface{}{
					"type": "date",
				},
				"updated_at": map[string]interface{}{
					"type": "date",
				},
			},
		},
	}

	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  strings.NewReader(string(mappingJSON)),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// Search finds restaurants matching the query. The locale of the request
// boosts that language's fields but every language is always searched, so
// a Korean visitor typing a Japanese name still gets a hit.
func (c *ElasticsearchClient) Search(ctx context.Context, query, locale string, page, pageSize int) ([]RestaurantDocument, error) {
	searchQuery := c.buildSearchQuery(query, locale)

	from := 0
	if page > 0 && pageSize > 0 {
		from = (page - 1) * pageSize
	}
	if pageSize <= 0 {
		pageSize = 10
	}

	searchRequest := map[string]interface{}{
		"query": searchQuery,
		"sort":  c.buildSortQuery(query),
		"from":  from,
		"size":  pageSize,
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  strings.NewReader(string(searchJSON)),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source RestaurantDocument `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	docs := make([]RestaurantDocument, len(response.Hits.Hits))
	for i, hit := range response.Hits.Hits {
		docs[i] = hit.Source
	}

	return docs, nil
}

func (c *ElasticsearchClient) buildSearchQuery(query, locale string) map[string]interface{} {
	if query == "" {
		return map[string]interface{}{
			"match_all": map[string]interface{}{},
		}
	}

	fields := []string{
		"name", "name_ja", "name_ko",
		"description_en", "description_ja", "description_ko",
		"address", "cuisine",
	}
	switch locale {
	case "ja":
		fields[1] = "name_ja^3"
		fields[4] = "description_ja^2"
	case "ko":
		fields[2] = "name_ko^3"
		fields[5] = "description_ko^2"
	default:
		fields[0] = "name^3"
		fields[3] = "description_en^2"
	}

	return map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":     query,
			"fields":    fields,
			"fuzziness": "AUTO",
		},
	}
}

func (c *ElasticsearchClient) buildSortQuery(query string) []map[string]interface{} {
	if query != "" {
		return []map[string]interface{}{
			{"_score": map[string]interface{}{"order": "desc"}},
			{"id": map[string]interface{}{"order": "asc"}},
		}
	}

	return []map[string]interface{}{
		{"id": map[string]interface{}{"order": "asc"}},
	}
}

// IndexRestaurant writes or overwrites one restaurant document
func (c *ElasticsearchClient) IndexRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	doc := toDocument(restaurant)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now()
	}

	docJSON, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal restaurant: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(restaurant.ID, 10),
		Body:       strings.NewReader(string(docJSON)),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index restaurant: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}

	return nil
}

func (c *ElasticsearchClient) DeleteRestaurant(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete restaurant: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete error: %s", res.String())
	}

	return nil
}

func (c *ElasticsearchClient) Count(ctx context.Context, query, locale string) (int64, error) {
	countRequest := map[string]interface{}{
		"query": c.buildSearchQuery(query, locale),
	}

	countJSON, err := json.Marshal(countRequest)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal count query: %w", err)
	}

	req := esapi.CountRequest{
		Index: []string{c.config.Index},
		Body:  strings.NewReader(string(countJSON)),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return 0, fmt.Errorf("failed to execute count: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count error: %s", res.String())
	}

	var response struct {
		Count int64 `json:"count"`
	}

	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}

	return response.Count, nil
}

func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}

func toDocument(r *models.Restaurant) RestaurantDocument {
	doc := RestaurantDocument{
		ID:        r.ID,
		Name:      r.Name,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.NameJa != nil {
		doc.NameJa = *r.NameJa
	}
	if r.NameKo != nil {
		doc.NameKo = *r.NameKo
	}
	if r.Address != nil {
		doc.Address = *r.Address
	}
	if r.Cuisine != nil {
		doc.Cuisine = *r.Cuisine
	}
	if r.DescriptionEn != nil {
		doc.DescriptionEn = *r.DescriptionEn
	}
	if r.DescriptionJa != nil {
		doc.DescriptionJa = *r.DescriptionJa
	}
	if r.DescriptionKo != nil {
		doc.DescriptionKo = *r.DescriptionKo
	}
	return doc
}
