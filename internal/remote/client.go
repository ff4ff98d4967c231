// Package remote implements the client for the weibotop trending-topic API.
// Every request parameter travels as an AES-ECB token of the logical value,
// and list/history responses come back as base64 ciphertext of JSON.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/qyzhao/star-trends/internal/cipher"
)

const defaultBaseURL = "https://api.weibotop.cn"

// Error markers the remote embeds in a response body instead of returning a
// structured status. They must be checked against the raw body before any
// decryption is attempted.
var errorMarkers = []string{"Invalid", "Code:DCE"}

// ErrRemoteMarker indicates a response body carrying a remote-side error
// marker rather than valid ciphertext.
var ErrRemoteMarker = errors.New("remote: error marker in response")

// ErrDecodeFailure indicates ciphertext that could not be decrypted into the
// expected JSON structure.
var ErrDecodeFailure = errors.New("remote: failed to decode response")

// Client talks to the trending-topic API over the encrypted channel.
type Client struct {
	baseURL        string
	codec          *cipher.Codec
	indexTimeout   time.Duration
	itemsTimeout   time.Duration
	historyTimeout time.Duration
}

func NewClient(codec *cipher.Codec) *Client {
	return &Client{
		baseURL:        defaultBaseURL,
		codec:          codec,
		indexTimeout:   10 * time.Second,
		itemsTimeout:   15 * time.Second,
		historyTimeout: 10 * time.Second,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a local server.
func NewClientWithBaseURL(codec *cipher.Codec, baseURL string) *Client {
	c := NewClient(codec)
	c.baseURL = baseURL
	return c
}

// ResolveIndexToken maps a calendar date (YYYY-MM-DD) to the remote's
// closest-snapshot token. The midnight timestamp travels encrypted; the
// response is a plain JSON 2-tuple [token, actualTime].
func (c *Client) ResolveIndexToken(ctx context.Context, s *Session, date string) (string, string, error) {
	token, err := c.codec.Encrypt(date + " 00:00:00")
	if err != nil {
		return "", "", fmt.Errorf("remote: failed to encrypt timestamp: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.indexTimeout)
	defer cancel()

	body, err := s.get(ctx, c.baseURL+"/getclosesttime", url.Values{"timestamp": {token}})
	if err != nil {
		return "", "", err
	}

	var tuple []any
	if err := json.Unmarshal([]byte(body), &tuple); err != nil || len(tuple) < 2 {
		return "", "", fmt.Errorf("%w: closest-time tuple", ErrDecodeFailure)
	}
	return stringify(tuple[0]), stringify(tuple[1]), nil
}

// FetchRankedItems retrieves the ranked item list for an index token. The
// decrypted payload must be a JSON list.
func (c *Client) FetchRankedItems(ctx context.Context, s *Session, timeID string) ([]any, error) {
	token, err := c.codec.Encrypt(timeID)
	if err != nil {
		return nil, fmt.Errorf("remote: failed to encrypt timeid: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.itemsTimeout)
	defer cancel()

	body, err := s.get(ctx, c.baseURL+"/currentitems", url.Values{"timeid": {token}})
	if err != nil {
		return nil, err
	}
	if strings.Contains(body, "Invalid") {
		return nil, ErrRemoteMarker
	}

	value, ok := c.codec.Decrypt(body)
	if !ok {
		return nil, fmt.Errorf("%w: item list", ErrDecodeFailure)
	}
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: item payload is not a list", ErrDecodeFailure)
	}
	return items, nil
}

// FetchKeywordHistory retrieves the same-day rank/hotness time series for a
// keyword. It returns (nil, nil) when the remote has no usable data for the
// date; callers treat a nil digest as "no history", not a failure.
func (c *Client) FetchKeywordHistory(ctx context.Context, s *Session, keyword, date string) (*HistoryDigest, error) {
	token, err := c.codec.Encrypt(keyword)
	if err != nil {
		return nil, fmt.Errorf("remote: failed to encrypt keyword: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.historyTimeout)
	defer cancel()

	body, err := s.get(ctx, c.baseURL+"/getrankhistory", url.Values{"name": {token}})
	if err != nil {
		return nil, err
	}
	for _, marker := range errorMarkers {
		if strings.Contains(body, marker) {
			return nil, ErrRemoteMarker
		}
	}

	value, ok := c.codec.Decrypt(body)
	if !ok {
		return nil, fmt.Errorf("%w: history payload", ErrDecodeFailure)
	}

	// Exactly three parallel arrays: timestamps, ranks, hotness.
	series, ok := value.([]any)
	if !ok || len(series) != 3 {
		return nil, fmt.Errorf("%w: history payload arity", ErrDecodeFailure)
	}
	timestamps, ok0 := series[0].([]any)
	ranks, ok1 := series[1].([]any)
	hotness, ok2 := series[2].([]any)
	if !ok0 || !ok1 || !ok2 {
		return nil, fmt.Errorf("%w: history series shape", ErrDecodeFailure)
	}

	var samples []HistorySample
	for i, ts := range timestamps {
		t := stringify(ts)
		if !strings.HasPrefix(t, date) {
			continue
		}
		if i >= len(ranks) || i >= len(hotness) {
			break
		}
		samples = append(samples, HistorySample{
			Time:    t,
			Rank:    toInt(ranks[i]),
			Hotness: toInt(hotness[i]),
		})
	}
	if len(samples) == 0 {
		return nil, nil
	}
	return buildDigest(samples), nil
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON numbers decode as float64; index tokens are integral.
		return strconv.FormatInt(int64(x), 10)
	default:
		return fmt.Sprint(x)
	}
}

func toInt(v any) int {
	switch x := v.(type) {
	case float64:
		return int(x)
	case string:
		n, _ := strconv.Atoi(x)
		return n
	default:
		return 0
	}
}
