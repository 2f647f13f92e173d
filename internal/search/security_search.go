package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"

	"github.com/biodivhub/biodiv-api/internal/models"
	"github.com/biodivhub/biodiv-api/pkg/config"
	appErrors "github.com/biodivhub/biodiv-api/pkg/errors"
)

// SecurityRuleSearch queries the external rule indices and maps hits into the
// uniform SecurityRule shape. All operations are read-only; rule documents are
// never written by this application.
type SecurityRuleSearch struct {
	client *elasticsearch.Client
	cfg    config.SearchConfig
	logger *zap.Logger
}

// NewSecurityRuleSearch builds the adapter with its own Elasticsearch client.
func NewSecurityRuleSearch(cfg config.SearchConfig, logger *zap.Logger) (*SecurityRuleSearch, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create search client: %w", err)
	}
	return NewSecurityRuleSearchWithClient(client, cfg, logger), nil
}

// NewSecurityRuleSearchWithClient wires a caller-supplied client; tests inject
// a stub transport through this path.
func NewSecurityRuleSearchWithClient(client *elasticsearch.Client, cfg config.SearchConfig, logger *zap.Logger) *SecurityRuleSearch {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCatalogResults <= 0 {
		cfg.MaxCatalogResults = 500
	}
	return &SecurityRuleSearch{client: client, cfg: cfg, logger: logger}
}

type ruleSource struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	TaxonCode      string  `json:"taxon_code"`
	ExpirationDate *string `json:"expiration_date"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string     `json:"_id"`
			Source ruleSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// GetProprietarySecurityRules fetches the entire proprietary rule index.
func (s *SecurityRuleSearch) GetProprietarySecurityRules(ctx context.Context) ([]models.SecurityRule, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"size":  s.cfg.MaxCatalogResults,
	}
	return s.search(ctx, s.cfg.ProprietaryIndex, models.SecurityCategoryProprietary, body)
}

// GetPersecutionSecurityRules fetches the entire persecution/harm rule index.
// Persecution rules additionally carry a taxon code.
func (s *SecurityRuleSearch) GetPersecutionSecurityRules(ctx context.Context) ([]models.SecurityRule, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{"match_all": map[string]interface{}{}},
		"size":  s.cfg.MaxCatalogResults,
	}
	return s.search(ctx, s.cfg.PersecutionIndex, models.SecurityCategoryPersecution, body)
}

// GetPersecutionSecurityFromIDs filters the persecution index to the given
// rule ids. Returns an empty slice when the index yields no hits.
func (s *SecurityRuleSearch) GetPersecutionSecurityFromIDs(ctx context.Context, ids []int64) ([]models.SecurityRule, error) {
	if len(ids) == 0 {
		return []models.SecurityRule{}, nil
	}

	values := make([]string, 0, len(ids))
	for _, id := range ids {
		values = append(values, strconv.FormatInt(id, 10))
	}
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"ids": map[string]interface{}{"values": values},
		},
		"size": len(ids),
	}
	return s.search(ctx, s.cfg.PersecutionIndex, models.SecurityCategoryPersecution, body)
}

// search executes one query against an index and maps the hit list. Transport
// and index failures surface as the typed search-unavailable error; callers
// decide whether to degrade to an empty catalog.
func (s *SecurityRuleSearch) search(ctx context.Context, index string, category models.SecurityRuleCategory, body map[string]interface{}) ([]models.SecurityRule, error) {
	if index == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingParameter, "search index name not configured")
	}

	payload := &bytes.Buffer{}
	if err := json.NewEncoder(payload).Encode(body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBuildSQL.Code, appErrors.ErrBuildSQL.Status, "failed to build search query")
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(index),
		s.client.Search.WithBody(payload),
	)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSearchUnavailable.Code, appErrors.ErrSearchUnavailable.Status, "security rule index unreachable")
	}
	defer res.Body.Close() //nolint:errcheck

	if res.IsError() {
		return nil, appErrors.Clone(appErrors.ErrSearchUnavailable, fmt.Sprintf("security rule index returned %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrSchemaValidation.Code, appErrors.ErrSchemaValidation.Status, "unexpected search response shape")
	}

	rules := make([]models.SecurityRule, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping rule with non-numeric id", zap.String("index", index), zap.String("id", hit.ID))
			continue
		}
		rule := models.SecurityRule{
			SecurityReasonID:  id,
			Category:          category,
			ReasonTitle:       hit.Source.Name,
			ReasonDescription: hit.Source.Description,
			ExpirationDate:    hit.Source.ExpirationDate,
		}
		if category == models.SecurityCategoryPersecution {
			rule.TaxonCode = hit.Source.TaxonCode
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
