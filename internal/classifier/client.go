package classifier

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/helpdeskhq/helpdesk-service/internal/config"
	"github.com/helpdeskhq/helpdesk-service/internal/domain"
)

// ErrUnavailable signals that classification did not happen. Network
// failures, timeouts, non-2xx responses and malformed payloads all
// collapse into this one outcome; callers proceed without a
// classification rather than failing ticket creation.
var ErrUnavailable = errors.New("classifier unavailable")

// Classification is the validated result of classifying ticket text.
type Classification struct {
	Department       domain.Department     `json:"department"`
	Priority         domain.TicketPriority `json:"priority"`
	EstimatedMinutes int                   `json:"estimated_minutes"`
}

// Client calls the external classification service.
type Client struct {
	baseURL  string
	apiKey   string
	timeout  time.Duration
	cacheTTL time.Duration
	http     *http.Client
	cache    *redis.Client
	logger   *zap.Logger
}

// NewClient builds a classifier client. The redis client is optional;
// when present, successful classifications are cached by content hash.
func NewClient(cfg config.ClassifierConfig, cache *redis.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:  cfg.URL,
		apiKey:   cfg.APIKey,
		timeout:  cfg.Timeout(),
		cacheTTL: cfg.CacheTTL(),
		http:     &http.Client{Timeout: cfg.Timeout()},
		cache:    cache,
		logger:   logger,
	}
}

type classifyRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Classify sends ticket text to the classification service. The only
// error it returns is ErrUnavailable.
func (c *Client) Classify(ctx context.Context, title, message string) (*Classification, error) {
	if c.baseURL == "" {
		return nil, ErrUnavailable
	}

	key := cacheKey(title, message)
	if cached := c.fromCache(ctx, key); cached != nil {
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(classifyRequest{Title: title, Message: message})
	if err != nil {
		return nil, ErrUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, ErrUnavailable
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-classifier-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("classifier request failed", zap.Error(err))
		return nil, ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("classifier returned non-success status", zap.Int("status", resp.StatusCode))
		return nil, ErrUnavailable
	}

	var result Classification
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.logger.Warn("classifier response malformed", zap.Error(err))
		return nil, ErrUnavailable
	}
	if err := validate(&result); err != nil {
		c.logger.Warn("classifier response rejected", zap.Error(err))
		return nil, ErrUnavailable
	}

	c.toCache(ctx, key, &result)
	return &result, nil
}

func validate(c *Classification) error {
	if !domain.ValidDepartment(c.Department) {
		return fmt.Errorf("unknown department %q", c.Department)
	}
	if !domain.ValidPriority(c.Priority) {
		return fmt.Errorf("unknown priority %q", c.Priority)
	}
	if c.EstimatedMinutes <= 0 {
		return fmt.Errorf("estimated_minutes must be positive, got %d", c.EstimatedMinutes)
	}
	return nil
}

func cacheKey(title, message string) string {
	sum := sha256.Sum256([]byte(title + "\x00" + message))
	return "classify:" + hex.EncodeToString(sum[:])
}

func (c *Client) fromCache(ctx context.Context, key string) *Classification {
	if c.cache == nil || c.cacheTTL <= 0 {
		return nil
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var cached Classification
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil
	}
	if validate(&cached) != nil {
		return nil
	}
	return &cached
}

func (c *Client) toCache(ctx context.Context, key string, result *Classification) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		c.logger.Debug("classification cache write failed", zap.Error(err))
	}
}
