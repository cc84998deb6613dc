package domain

type Sprint struct {
    Name       string `json:"name"`
    Path       string `json:"path"`
    StartDate  string `json:"start_date,omitempty"`
    FinishDate string `json:"finish_date,omitempty"`
    TimeFrame  string `json:"time_frame,omitempty"`
}

type SprintsResponse struct {
    Total   int      `json:"total"`
    Sprints []Sprint `json:"sprints"`
}

type Comment struct {
    ID          int    `json:"id"`
    Text        string `json:"text"`
    CreatedBy   string `json:"created_by,omitempty"`
    CreatedDate string `json:"created_date,omitempty"`
}

type WorkItem struct {
    ID            int       `json:"id"`
    Title         string    `json:"title"`
    State         string    `json:"state"`
    Type          string    `json:"type"`
    AssignedTo    string    `json:"assigned_to,omitempty"`
    CreatedBy     string    `json:"created_by,omitempty"`
    CreatedDate   string    `json:"created_date,omitempty"`
    ChangedDate   string    `json:"changed_date,omitempty"`
    ChangedBy     string    `json:"changed_by,omitempty"`
    Description   string    `json:"description,omitempty"`
    Tags          string    `json:"tags,omitempty"`
    IterationPath string    `json:"iteration_path,omitempty"`
    CommentsCount int       `json:"comments_count"`
    Comments      []Comment `json:"comments,omitempty"`
    WebURL        string    `json:"web_url,omitempty"`
}

type SprintWorkItemsResponse struct {
    Sprint       string     `json:"sprint"`
    TotalCount   int        `json:"total_count"`
    CreatedByMe  int        `json:"created_by_me"`
    AssignedToMe int        `json:"assigned_to_me"`
    WorkItems    []WorkItem `json:"work_items"`
}

// SummaryItem always carries all three fields so consumers get a
// stable shape even when an item has no description or comments.
type SummaryItem struct {
    Title       string   `json:"title"`
    Description string   `json:"description"`
    Comments    []string `json:"comments"`
}

type SummaryResponse struct {
    Sprint     string        `json:"sprint"`
    TotalCount int           `json:"total_count"`
    Items      []SummaryItem `json:"items"`
}
