/* Copyright (c) 2025 tea9296
 * SPDX-License-Identifier: BSD-3-Clause */
package azdo

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"

    "github.com/rs/zerolog"
    "github.com/tea9296/azure-devops-read-api/internal/config"
)

// Sentinel errors for upstream status translation. The handler layer
// matches these with errors.Is and never exposes the wrapped detail.
var (
    ErrUnauthorized = errors.New("azdo: credential rejected")
    ErrNotFound     = errors.New("azdo: not found")
    ErrUpstream     = errors.New("azdo: upstream error")
)

// Client talks to the Azure DevOps REST API. The PAT is supplied per
// call and never stored on the struct.
type Client struct {
    baseURL string
    org     string
    project string
    team    string
    http    *http.Client
    log     zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
    return &Client{
        baseURL: cfg.AzureBaseURL,
        org:     cfg.Organization,
        project: cfg.Project,
        team:    cfg.Team,
        http:    &http.Client{ Timeout: cfg.HTTPTimeout },
        log:     log,
    }
}

type IterationAttributes struct {
    StartDate  string `json:"startDate"`
    FinishDate string `json:"finishDate"`
    TimeFrame  string `json:"timeFrame"`
}

type Iteration struct {
    ID         string              `json:"id"`
    Name       string              `json:"name"`
    Path       string              `json:"path"`
    Attributes IterationAttributes `json:"attributes"`
}

type iterationsResponse struct {
    Count int         `json:"count"`
    Value []Iteration `json:"value"`
}

type wiqlWorkItemRef struct {
    ID int `json:"id"`
}

type wiqlResponse struct {
    WorkItems []wiqlWorkItemRef `json:"workItems"`
}

// RawWorkItem keeps fields loosely typed: Azure DevOps returns
// identity fields either as objects or as plain strings depending on
// the account type.
type RawWorkItem struct {
    ID     int            `json:"id"`
    Fields map[string]any `json:"fields"`
}

type workItemsBatchResponse struct {
    Count int           `json:"count"`
    Value []RawWorkItem `json:"value"`
}

type RawComment struct {
    ID          int            `json:"id"`
    Text        string         `json:"text"`
    CreatedBy   map[string]any `json:"createdBy"`
    CreatedDate string         `json:"createdDate"`
}

type commentsResponse struct {
    Count    int          `json:"count"`
    Comments []RawComment `json:"comments"`
}

type connectionDataResponse struct {
    AuthenticatedUser struct {
        ProviderDisplayName string `json:"providerDisplayName"`
    } `json:"authenticatedUser"`
}

// Iterations lists the team's iterations (sprints).
func (c *Client) Iterations(ctx context.Context, pat string) ([]Iteration, error) {
    q := url.Values{}
    q.Set("api-version", "7.1")
    u := c.apiURL("/"+c.org+"/"+url.PathEscape(c.project)+"/"+url.PathEscape(c.team)+"/_apis/work/teamsettings/iterations", q)
    var out iterationsResponse
    if err := c.doJSON(ctx, pat, http.MethodGet, u, nil, &out); err != nil { return nil, err }
    return out.Value, nil
}

// QueryWorkItemIDs runs a Wiql query and returns matching IDs in the
// order the query produced them.
func (c *Client) QueryWorkItemIDs(ctx context.Context, pat, wiql string) ([]int, error) {
    q := url.Values{}
    q.Set("api-version", "7.1")
    u := c.apiURL("/"+c.org+"/"+url.PathEscape(c.project)+"/_apis/wit/wiql", q)
    var out wiqlResponse
    if err := c.doJSON(ctx, pat, http.MethodPost, u, map[string]string{"query": wiql}, &out); err != nil { return nil, err }
    ids := make([]int, 0, len(out.WorkItems))
    for _, ref := range out.WorkItems { ids = append(ids, ref.ID) }
    return ids, nil
}

// WorkItemsBatch fetches full field data for up to 200 IDs.
func (c *Client) WorkItemsBatch(ctx context.Context, pat string, ids []int) ([]RawWorkItem, error) {
    if len(ids) == 0 { return nil, nil }
    parts := make([]string, 0, len(ids))
    for _, id := range ids { parts = append(parts, strconv.Itoa(id)) }
    q := url.Values{}
    q.Set("ids", strings.Join(parts, ","))
    q.Set("$expand", "all")
    q.Set("api-version", "7.1")
    u := c.apiURL("/"+c.org+"/"+url.PathEscape(c.project)+"/_apis/wit/workitems", q)
    var out workItemsBatchResponse
    if err := c.doJSON(ctx, pat, http.MethodGet, u, nil, &out); err != nil { return nil, err }
    return out.Value, nil
}

// ItemComments fetches the comment thread of one work item.
func (c *Client) ItemComments(ctx context.Context, pat string, id int) ([]RawComment, error) {
    q := url.Values{}
    q.Set("api-version", "7.1-preview.3")
    u := c.apiURL("/"+c.org+"/"+url.PathEscape(c.project)+"/_apis/wit/workItems/"+strconv.Itoa(id)+"/comments", q)
    var out commentsResponse
    if err := c.doJSON(ctx, pat, http.MethodGet, u, nil, &out); err != nil { return nil, err }
    return out.Comments, nil
}

// AuthenticatedDisplayName resolves the display name the PAT
// authenticates as, used to attribute created-by/assigned-to counts.
func (c *Client) AuthenticatedDisplayName(ctx context.Context, pat string) (string, error) {
    u := c.apiURL("/"+c.org+"/_apis/connectionData", nil)
    var out connectionDataResponse
    if err := c.doJSON(ctx, pat, http.MethodGet, u, nil, &out); err != nil { return "", err }
    return out.AuthenticatedUser.ProviderDisplayName, nil
}

// WorkItemWebURL builds the browser URL for a work item.
func (c *Client) WorkItemWebURL(id int) string {
    return c.baseURL + "/" + c.org + "/" + url.PathEscape(c.project) + "/_workitems/edit/" + strconv.Itoa(id)
}

func (c *Client) apiURL(path string, q url.Values) string {
    u := c.baseURL + path
    if len(q) > 0 { u = u + "?" + q.Encode() }
    return u
}

func (c *Client) doJSON(ctx context.Context, pat, method, u string, body any, out any) error {
    if c.baseURL == "" { return fmt.Errorf("%w: empty baseURL", ErrUpstream) }
    var r io.Reader
    if body != nil {
        b, err := json.Marshal(body)
        if err != nil { return err }
        r = strings.NewReader(string(b))
    }
    req, err := http.NewRequestWithContext(ctx, method, u, r)
    if err != nil { return err }
    if body != nil { req.Header.Set("Content-Type", "application/json") }
    // Azure DevOps convention: basic auth with an empty username and
    // the PAT as password.
    req.SetBasicAuth("", pat)
    resp, err := c.http.Do(req)
    if err != nil {
        c.log.Error().Err(err).Str("m", method).Msg("azdo request failed")
        return fmt.Errorf("%w: %v", ErrUpstream, err)
    }
    defer resp.Body.Close()
    if resp.StatusCode >= 300 {
        // drain so the connection can be reused; the body is logged
        // at debug only and never reaches API clients
        b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
        c.log.Debug().Int("status", resp.StatusCode).Str("m", method).Str("body", strings.TrimSpace(string(b))).Msg("azdo non-2xx")
        switch {
        case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
            return fmt.Errorf("%w: status=%d", ErrUnauthorized, resp.StatusCode)
        case resp.StatusCode == http.StatusNotFound:
            return fmt.Errorf("%w: status=%d", ErrNotFound, resp.StatusCode)
        default:
            return fmt.Errorf("%w: status=%d", ErrUpstream, resp.StatusCode)
        }
    }
    if out == nil { return nil }
    if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
        return fmt.Errorf("%w: decode: %v", ErrUpstream, err)
    }
    return nil
}
