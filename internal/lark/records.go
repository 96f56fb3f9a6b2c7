package lark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ryosukesatoh/rss-digest/internal/summarizer"
)

// Link is the value of a Bitable hyperlink field.
type Link struct {
	Link string `json:"link"`
	Text string `json:"text"`
}

// Fields is one row of the digest table.
type Fields struct {
	Title     string `json:"标题"`
	Summary   string `json:"摘要"`
	Source    string `json:"来源"`
	Link      Link   `json:"链接"`
	Published int64  `json:"发布时间"`
}

// ToFields maps a summary onto the table columns. Published is in
// milliseconds since the epoch.
func ToFields(s summarizer.ArticleSummary) Fields {
	a := s.Article
	return Fields{
		Title:     a.Title,
		Summary:   s.Summary,
		Source:    a.FeedTitle,
		Link:      Link{Link: a.URL, Text: a.Title},
		Published: a.Published.UnixMilli(),
	}
}

type listRecordsData struct {
	Items []struct {
		Fields map[string]json.RawMessage `json:"fields"`
	} `json:"items"`
	PageToken string `json:"page_token"`
	HasMore   bool   `json:"has_more"`
}

// ExistingURLs pages through the whole table and collects the link column.
func (c *Client) ExistingURLs(ctx context.Context, appToken, tableID string) (map[string]struct{}, error) {
	urls := make(map[string]struct{})
	pageToken := ""

	for page := 1; ; page++ {
		q := url.Values{}
		q.Set("page_size", strconv.Itoa(pageSize))
		if pageToken != "" {
			q.Set("page_token", pageToken)
		}

		var data listRecordsData
		if err := c.call(ctx, "list records", http.MethodGet, recordsPath(appToken, tableID), q, nil, &data); err != nil {
			return nil, fmt.Errorf("lark: listing page %d: %w", page, err)
		}

		for _, item := range data.Items {
			if u := linkURL(item.Fields["链接"]); u != "" {
				urls[u] = struct{}{}
			}
		}

		if !data.HasMore || data.PageToken == "" {
			break
		}
		pageToken = data.PageToken
	}

	c.logger.Info("found existing records", "count", len(urls))
	return urls, nil
}

// linkURL reads a hyperlink cell, which is either {"link":..,"text":..} or a
// plain string.
func linkURL(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var l Link
	if err := json.Unmarshal(raw, &l); err == nil {
		return l.Link
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

type createRecord struct {
	Fields Fields `json:"fields"`
}

type batchCreateRequest struct {
	Records []createRecord `json:"records"`
}

// CreateRecords inserts records in batches of at most batchSize. A failed
// batch is logged and skipped; the returned error joins every batch failure.
func (c *Client) CreateRecords(ctx context.Context, appToken, tableID string, records []Fields, batchSize int) (int, error) {
	if batchSize < 1 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	created := 0
	var errs []error
	for start := 0; start < len(records); start += batchSize {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		end := min(start+batchSize, len(records))
		batchNum := start/batchSize + 1

		req := batchCreateRequest{Records: make([]createRecord, 0, end-start)}
		for _, r := range records[start:end] {
			req.Records = append(req.Records, createRecord{Fields: r})
		}

		if err := c.call(ctx, "batch create", http.MethodPost, recordsPath(appToken, tableID)+"/batch_create", nil, req, nil); err != nil {
			c.logger.Error("failed to create records", "batch", batchNum, "size", end-start, "error", err)
			errs = append(errs, fmt.Errorf("batch %d: %w", batchNum, err))
			continue
		}

		created += end - start
		c.logger.Info("created records", "batch", batchNum, "size", end-start)
	}
	return created, errors.Join(errs...)
}
