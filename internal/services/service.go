/* Copyright (c) 2025 tea9296
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "errors"
    "fmt"
    "regexp"
    "sort"
    "strings"

    "github.com/rs/zerolog"
    "golang.org/x/sync/errgroup"

    "github.com/tea9296/azure-devops-read-api/internal/adapters/azdo"
    "github.com/tea9296/azure-devops-read-api/internal/config"
    "github.com/tea9296/azure-devops-read-api/internal/domain"
)

// ErrSprintNotFound reports a sprint name with no matching iteration,
// distinct from a rejected credential.
var ErrSprintNotFound = errors.New("sprint not found")

type client interface {
    Iterations(ctx context.Context, pat string) ([]azdo.Iteration, error)
    QueryWorkItemIDs(ctx context.Context, pat, wiql string) ([]int, error)
    WorkItemsBatch(ctx context.Context, pat string, ids []int) ([]azdo.RawWorkItem, error)
    ItemComments(ctx context.Context, pat string, id int) ([]azdo.RawComment, error)
    AuthenticatedDisplayName(ctx context.Context, pat string) (string, error)
    WorkItemWebURL(id int) string
}

type Service struct {
    cfg    config.Config
    log    zerolog.Logger
    client client
}

func NewService(cfg config.Config, log zerolog.Logger, c client) *Service {
    return &Service{cfg: cfg, log: log, client: c}
}

// timeFrameOrder ranks iterations current > future > past for /sprints.
var timeFrameOrder = map[string]int{"current": 0, "future": 1, "past": 2}

func (s *Service) ListSprints(ctx context.Context, pat string) (domain.SprintsResponse, error) {
    iterations, err := s.client.Iterations(ctx, pat)
    if err != nil { return domain.SprintsResponse{}, err }
    sprints := make([]domain.Sprint, 0, len(iterations))
    for _, it := range iterations {
        sprints = append(sprints, domain.Sprint{
            Name:       it.Name,
            Path:       it.Path,
            StartDate:  it.Attributes.StartDate,
            FinishDate: it.Attributes.FinishDate,
            TimeFrame:  it.Attributes.TimeFrame,
        })
    }
    sort.SliceStable(sprints, func(i, j int) bool {
        return rankTimeFrame(sprints[i].TimeFrame) < rankTimeFrame(sprints[j].TimeFrame)
    })
    return domain.SprintsResponse{Total: len(sprints), Sprints: sprints}, nil
}

func rankTimeFrame(tf string) int {
    if r, ok := timeFrameOrder[tf]; ok { return r }
    return 3
}

// SprintWorkItems returns the caller's work items (created by or
// assigned to them) in the named sprint, with comments.
func (s *Service) SprintWorkItems(ctx context.Context, pat, sprint string) (domain.SprintWorkItemsResponse, error) {
    items, err := s.aggregate(ctx, pat, sprint)
    if err != nil { return domain.SprintWorkItemsResponse{}, err }

    createdByMe, assignedToMe := 0, 0
    if me, err := s.client.AuthenticatedDisplayName(ctx, pat); err != nil {
        s.log.Warn().Err(err).Msg("connectionData lookup failed; identity counts default to 0")
    } else if me != "" {
        for _, it := range items {
            if it.CreatedBy == me { createdByMe++ }
            if it.AssignedTo == me { assignedToMe++ }
        }
    }
    return domain.SprintWorkItemsResponse{
        Sprint:       sprint,
        TotalCount:   len(items),
        CreatedByMe:  createdByMe,
        AssignedToMe: assignedToMe,
        WorkItems:    items,
    }, nil
}

// SprintSummary projects the same aggregation down to title,
// description and comment texts, sized for LLM consumption.
func (s *Service) SprintSummary(ctx context.Context, pat, sprint string) (domain.SummaryResponse, error) {
    items, err := s.aggregate(ctx, pat, sprint)
    if err != nil { return domain.SummaryResponse{}, err }
    out := make([]domain.SummaryItem, 0, len(items))
    for _, it := range items {
        texts := make([]string, 0, len(it.Comments))
        for _, c := range it.Comments {
            if c.Text != "" { texts = append(texts, c.Text) }
        }
        out = append(out, domain.SummaryItem{Title: it.Title, Description: it.Description, Comments: texts})
    }
    return domain.SummaryResponse{Sprint: sprint, TotalCount: len(items), Items: out}, nil
}

const workItemsBatchSize = 200

func (s *Service) aggregate(ctx context.Context, pat, sprint string) ([]domain.WorkItem, error) {
    iterations, err := s.client.Iterations(ctx, pat)
    if err != nil { return nil, err }
    path, err := resolveSprint(iterations, sprint)
    if err != nil { return nil, err }

    ids, err := s.client.QueryWorkItemIDs(ctx, pat, buildWiql(path))
    if err != nil { return nil, err }
    if len(ids) == 0 { return []domain.WorkItem{}, nil }

    byID := make(map[int]azdo.RawWorkItem, len(ids))
    for start := 0; start < len(ids); start += workItemsBatchSize {
        end := start + workItemsBatchSize
        if end > len(ids) { end = len(ids) }
        batch, err := s.client.WorkItemsBatch(ctx, pat, ids[start:end])
        if err != nil { return nil, err }
        for _, raw := range batch { byID[raw.ID] = raw }
    }

    // emit in Wiql result order regardless of batch response order
    items := make([]domain.WorkItem, 0, len(ids))
    for _, id := range ids {
        raw, ok := byID[id]
        if !ok { continue }
        items = append(items, s.mapWorkItem(raw))
    }

    s.fetchComments(ctx, pat, items)
    return items, nil
}

// fetchComments fills Comments per item concurrently. A failed fetch
// degrades that item to empty comments instead of failing the request.
func (s *Service) fetchComments(ctx context.Context, pat string, items []domain.WorkItem) {
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(s.cfg.MaxConcurrency)
    for i := range items {
        if items[i].CommentsCount <= 0 { continue }
        i := i
        g.Go(func() error {
            raw, err := s.client.ItemComments(gctx, pat, items[i].ID)
            if err != nil {
                s.log.Warn().Err(err).Int("id", items[i].ID).Msg("comment fetch failed; returning item without comments")
                return nil
            }
            comments := make([]domain.Comment, 0, len(raw))
            for _, c := range raw {
                comments = append(comments, domain.Comment{
                    ID:          c.ID,
                    Text:        stripHTML(c.Text),
                    CreatedBy:   identityName(c.CreatedBy),
                    CreatedDate: c.CreatedDate,
                })
            }
            items[i].Comments = comments
            return nil
        })
    }
    _ = g.Wait()
}

// resolveSprint maps a display name to an iteration path. Matching is
// exact and case sensitive, the same as the Azure DevOps UI shows it.
func resolveSprint(iterations []azdo.Iteration, name string) (string, error) {
    for _, it := range iterations {
        if it.Name == name { return it.Path, nil }
    }
    return "", fmt.Errorf("%w: %q", ErrSprintNotFound, name)
}

func buildWiql(iterationPath string) string {
    escaped := strings.ReplaceAll(iterationPath, "'", "''")
    return "SELECT [System.Id] FROM WorkItems " +
        "WHERE [System.IterationPath] UNDER '" + escaped + "' " +
        "AND ([System.CreatedBy] = @Me OR [System.AssignedTo] = @Me) " +
        "ORDER BY [System.ChangedDate] DESC"
}

func (s *Service) mapWorkItem(raw azdo.RawWorkItem) domain.WorkItem {
    f := raw.Fields
    return domain.WorkItem{
        ID:            raw.ID,
        Title:         fieldStr(f, "System.Title", "N/A"),
        State:         fieldStr(f, "System.State", "N/A"),
        Type:          fieldStr(f, "System.WorkItemType", "N/A"),
        AssignedTo:    identityName(f["System.AssignedTo"]),
        CreatedBy:     identityName(f["System.CreatedBy"]),
        CreatedDate:   fieldStr(f, "System.CreatedDate", ""),
        ChangedDate:   fieldStr(f, "System.ChangedDate", ""),
        ChangedBy:     identityName(f["System.ChangedBy"]),
        Description:   stripHTML(fieldStr(f, "System.Description", "")),
        Tags:          fieldStr(f, "System.Tags", ""),
        IterationPath: fieldStr(f, "System.IterationPath", ""),
        CommentsCount: fieldInt(f, "System.CommentCount"),
        WebURL:        s.client.WorkItemWebURL(raw.ID),
    }
}

func fieldStr(f map[string]any, key, def string) string {
    if v, ok := f[key].(string); ok && v != "" { return v }
    return def
}

func fieldInt(f map[string]any, key string) int {
    if v, ok := f[key].(float64); ok { return int(v) }
    return 0
}

// identityName extracts a display name from an identity field, which
// Azure DevOps returns either as an object or a plain string.
func identityName(v any) string {
    switch t := v.(type) {
    case map[string]any:
        if n, ok := t["displayName"].(string); ok { return n }
        return ""
    case string:
        return t
    }
    return ""
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func stripHTML(s string) string {
    if s == "" { return "" }
    return strings.TrimSpace(htmlTagRe.ReplaceAllString(s, ""))
}
