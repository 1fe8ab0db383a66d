package device

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/icholy/digest"
)

// deviceTimeLayout is the fixed-offset format the device expects and
// returns. The offset is baked into the device configuration; no other
// timezone handling happens here.
const deviceTimeLayout = "2006-01-02T15:04:05+08:00"

// ISAPIClient fetches access-control events from a Hikvision-style
// device over the AcsEvent JSON endpoint. The device only speaks HTTP
// digest auth.
type ISAPIClient struct {
	host     string
	client   *http.Client
	searchID string
}

func NewISAPIClient(host, username, password string) *ISAPIClient {
	return &ISAPIClient{
		host: host,
		client: &http.Client{
			Transport: &digest.Transport{
				Username: username,
				Password: password,
			},
			// the device answers large windows very slowly
			Timeout: 600 * time.Second,
		},
		searchID: uuid.New().String(),
	}
}

type acsEventCond struct {
	SearchID             string `json:"searchID"`
	SearchResultPosition int    `json:"searchResultPosition"`
	MaxResults           int    `json:"maxResults"`
	Major                int    `json:"major"`
	Minor                int    `json:"minor"`
	StartTime            string `json:"startTime"`
	EndTime              string `json:"endTime"`
}

type acsEventRequest struct {
	AcsEventCond acsEventCond `json:"AcsEventCond"`
}

type acsEventResponse struct {
	AcsEvent struct {
		TotalMatches int     `json:"totalMatches"`
		InfoList     []Event `json:"InfoList"`
	} `json:"AcsEvent"`
}

func (c *ISAPIClient) FetchPage(ctx context.Context, window SyncWindow, offset, limit int) (*Page, error) {
	payload := acsEventRequest{
		AcsEventCond: acsEventCond{
			SearchID:             c.searchID,
			SearchResultPosition: offset,
			MaxResults:           limit,
			Major:                5,  // event
			Minor:                75, // access granted by fingerprint
			StartTime:            window.Start.Format(deviceTimeLayout),
			EndTime:              window.End.Format(deviceTimeLayout),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event search: %w", err)
	}

	url := fmt.Sprintf("http://%s/ISAPI/AccessControl/AcsEvent?format=json", c.host)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build event search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch attendance events: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("fetch attendance events: status %d, response %s", resp.StatusCode, string(raw))
	}

	var parsed acsEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode event search response: %w", err)
	}

	return &Page{
		TotalMatches: parsed.AcsEvent.TotalMatches,
		Events:       parsed.AcsEvent.InfoList,
	}, nil
}
