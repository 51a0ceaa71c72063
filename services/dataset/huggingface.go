package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultDataset = "rag-datasets/rag-mini-wikipedia"
	DefaultConfig  = "question-answer"
	DefaultSplit   = "test"

	pageSize = 100
)

var ErrDatasetUnavailable = errors.New("dataset unavailable")

type QAPair struct {
	ID       string
	Question string
	Answer   string
}

// Client reads rows from the HuggingFace datasets-server REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type rowsResponse struct {
	Rows []struct {
		RowIdx int `json:"row_idx"`
		Row    struct {
			ID       json.Number `json:"id"`
			Question string      `json:"question"`
			Answer   string      `json:"answer"`
		} `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

func (c *Client) FetchQAPairs(ctx context.Context, dataset, config, split string) ([]QAPair, error) {
	log.Info().Str("dataset", dataset).Str("config", config).Str("split", split).Msg("Starting dataset download")

	var pairs []QAPair
	for offset := 0; ; offset += pageSize {
		page, err := c.fetchPage(ctx, dataset, config, split, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Rows {
			id := item.Row.ID.String()
			if id == "" {
				id = strconv.Itoa(item.RowIdx)
			}
			pairs = append(pairs, QAPair{ID: id, Question: item.Row.Question, Answer: item.Row.Answer})
		}

		if len(page.Rows) == 0 || offset+len(page.Rows) >= page.NumRowsTotal {
			break
		}
	}

	log.Info().Int("rows", len(pairs)).Msg("Successfully downloaded dataset")
	return pairs, nil
}

func (c *Client) fetchPage(ctx context.Context, dataset, config, split string, offset int) (*rowsResponse, error) {
	query := url.Values{}
	query.Set("dataset", dataset)
	query.Set("config", config)
	query.Set("split", split)
	query.Set("offset", strconv.Itoa(offset))
	query.Set("length", strconv.Itoa(pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/rows?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrDatasetUnavailable, resp.StatusCode, body)
	}

	var page rowsResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("failed to decode dataset page at offset %d: %w", offset, err)
	}
	return &page, nil
}
