// Package assets is the HTTP client for the paginated asset catalog. The
// server speaks the DataTables server-side protocol: the client sends draw,
// start, length, search and ordering parameters and gets back a page of rows
// plus total and filtered record counts.
package assets

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Asset is one row of the asset catalog.
type Asset struct {
	Symbol   string
	Name     string
	Exchange string
}

// Page is one page of the asset catalog.
type Page struct {
	Draw            int
	RecordsTotal    int
	RecordsFiltered int
	Assets          []Asset
}

// ListParams select a page of the catalog. Zero values mean first page,
// server default page size, no filter, server default ordering.
type ListParams struct {
	Draw          int
	Start         int
	Length        int
	Search        string
	OrderColumn   int
	OrderDesc     bool
	orderSupplied bool
}

// OrderBy sets the ordering column and direction. Column indices follow the
// row layout: 0 symbol, 1 name, 2 exchange.
func (p *ListParams) OrderBy(column int, desc bool) {
	p.OrderColumn = column
	p.OrderDesc = desc
	p.orderSupplied = true
}

// Client is the asset catalog client.
type Client interface {
	ListAssets(params ListParams) (*Page, error)
}

// ClientOpts contains options for the asset catalog client.
type ClientOpts struct {
	BaseURL    string
	Timeout    time.Duration
	RetryLimit int
	RetryDelay time.Duration
}

type client struct {
	opts ClientOpts

	do func(c *client, req *http.Request) (*http.Response, error)
}

// NewClient creates a new asset catalog client using the given opts.
func NewClient(opts ClientOpts) Client {
	if opts.BaseURL == "" {
		if s := os.Getenv("WATCHDECK_API_URL"); s != "" {
			opts.BaseURL = s
		} else {
			opts.BaseURL = "http://localhost:8000"
		}
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryLimit == 0 {
		opts.RetryLimit = 3
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = time.Second
	}
	return &client{
		opts: opts,

		do: defaultDo,
	}
}

func defaultDo(c *client, req *http.Request) (*http.Response, error) {
	client := &http.Client{
		Timeout: c.opts.Timeout,
	}
	var resp *http.Response
	var err error
	for i := 0; ; i++ {
		resp, err = client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		if i >= c.opts.RetryLimit {
			break
		}
		resp.Body.Close()
		time.Sleep(c.opts.RetryDelay)
	}

	if err = verify(resp); err != nil {
		return nil, err
	}

	return resp, nil
}

// pageResponse is the wire shape: each row is a positional array of strings.
type pageResponse struct {
	Draw            int        `json:"draw"`
	RecordsTotal    int        `json:"recordsTotal"`
	RecordsFiltered int        `json:"recordsFiltered"`
	Data            [][]string `json:"data"`
}

// ListAssets fetches one page of the asset catalog.
func (c *client) ListAssets(params ListParams) (*Page, error) {
	u, err := url.Parse(fmt.Sprintf("%s/api/assets", c.opts.BaseURL))
	if err != nil {
		return nil, err
	}

	q := u.Query()
	q.Set("draw", strconv.Itoa(params.Draw))
	q.Set("start", strconv.Itoa(params.Start))
	if params.Length > 0 {
		q.Set("length", strconv.Itoa(params.Length))
	}
	if params.Search != "" {
		q.Set("search[value]", params.Search)
	}
	if params.orderSupplied {
		q.Set("order[0][column]", strconv.Itoa(params.OrderColumn))
		dir := "asc"
		if params.OrderDesc {
			dir = "desc"
		}
		q.Set("order[0][dir]", dir)
	}
	u.RawQuery = q.Encode()

	resp, err := c.get(u)
	if err != nil {
		return nil, err
	}

	wire := &pageResponse{}
	if err = unmarshal(resp, wire); err != nil {
		return nil, err
	}

	page := &Page{
		Draw:            wire.Draw,
		RecordsTotal:    wire.RecordsTotal,
		RecordsFiltered: wire.RecordsFiltered,
		Assets:          make([]Asset, 0, len(wire.Data)),
	}
	for _, row := range wire.Data {
		if len(row) < 3 {
			return nil, fmt.Errorf("malformed asset row: %v", row)
		}
		page.Assets = append(page.Assets, Asset{
			Symbol:   row[0],
			Name:     row[1],
			Exchange: row[2],
		})
	}

	return page, nil
}

func (c *client) get(u *url.URL) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	return c.do(c, req)
}

// APIError is a failure response from the catalog server.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

func verify(resp *http.Response) error {
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		apiErr := APIError{StatusCode: resp.StatusCode}
		if err = json.Unmarshal(body, &apiErr); err != nil || apiErr.Message == "" {
			return fmt.Errorf("HTTP %s: %s", resp.Status, body)
		}
		return &apiErr
	}
	return nil
}

func unmarshal(resp *http.Response, data interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(data)
}
