// Package upstream speaks the issue tracker's GraphQL protocol: POST JSON
// envelopes, bearer-style auth, nodes/pageInfo cursor pagination.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds every upstream call.
	DefaultTimeout = 10 * time.Second

	// pageSize is the number of nodes requested per paginated query.
	pageSize = 100
)

// Client issues queries against the upstream GraphQL API. Calls propagate
// errors without retrying; retry and backoff policy belongs to the caller.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a Client. An empty apiKey is allowed here; every call
// then fails fast with ErrNotConfigured instead of reaching the network.
func NewClient(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient returns a copy using a custom HTTP client.
func (c *Client) WithHTTPClient(httpClient *http.Client) *Client {
	return &Client{endpoint: c.endpoint, apiKey: c.apiKey, httpClient: httpClient}
}

// graphQLRequest is the POST payload envelope.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLResponse is the generic response envelope.
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// pageInfo mirrors the upstream cursor pagination block.
type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

// execute posts one GraphQL request and decodes the envelope. A non-2xx
// status or an errors array both surface as *ProtocolError.
func (c *Client) execute(ctx context.Context, req *graphQLRequest, out any) error {
	if c.apiKey == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(req)
	if err != nil {
		return &TransportError{Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ProtocolError{Status: resp.StatusCode, Messages: []string{string(respBody)}}
	}

	var envelope graphQLResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return &TransportError{Err: err}
	}
	if len(envelope.Errors) > 0 {
		messages := make([]string, len(envelope.Errors))
		for i, e := range envelope.Errors {
			messages[i] = e.Message
		}
		return &ProtocolError{Status: resp.StatusCode, Messages: messages}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &TransportError{Err: err}
		}
	}
	return nil
}

// Teams fetches the full upstream team set. Team counts are small, so this
// call is not paginated.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	const query = `
		query Teams {
			teams {
				nodes {
					id
					key
					name
				}
			}
		}
	`
	var data struct {
		Teams struct {
			Nodes []Team `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.execute(ctx, &graphQLRequest{Query: query}, &data); err != nil {
		return nil, err
	}
	return data.Teams.Nodes, nil
}

// TeamProjects fetches one page of the given team's project listing.
func (c *Client) TeamProjects(ctx context.Context, teamID, cursor string) (Page[Project], error) {
	const query = `
		query TeamProjects($teamId: String!, $first: Int!, $after: String) {
			team(id: $teamId) {
				projects(first: $first, after: $after) {
					nodes {
						id
						name
						description
						state
						startDate
						targetDate
					}
					pageInfo {
						hasNextPage
						endCursor
					}
				}
			}
		}
	`
	var data struct {
		Team struct {
			Projects struct {
				Nodes    []Project `json:"nodes"`
				PageInfo pageInfo  `json:"pageInfo"`
			} `json:"projects"`
		} `json:"team"`
	}
	if err := c.execute(ctx, &graphQLRequest{Query: query, Variables: c.pageVariables(cursor, "teamId", teamID)}, &data); err != nil {
		return Page[Project]{}, err
	}
	return Page[Project]{
		Nodes:       data.Team.Projects.Nodes,
		EndCursor:   data.Team.Projects.PageInfo.EndCursor,
		HasNextPage: data.Team.Projects.PageInfo.HasNextPage,
	}, nil
}

// Issues fetches one page of the global issue listing.
func (c *Client) Issues(ctx context.Context, cursor string) (Page[Issue], error) {
	const query = `
		query Issues($first: Int!, $after: String) {
			issues(first: $first, after: $after) {
				nodes {
					id
					title
					priorityLabel
					dueDate
					createdAt
					updatedAt
					state {
						id
						name
						type
					}
					assignee {
						id
						name
						email
					}
					project {
						id
						name
					}
					team {
						id
						key
						name
					}
					labels {
						nodes {
							id
							name
							color
							parentId
						}
					}
				}
				pageInfo {
					hasNextPage
					endCursor
				}
			}
		}
	`
	var data struct {
		Issues struct {
			Nodes    []Issue  `json:"nodes"`
			PageInfo pageInfo `json:"pageInfo"`
		} `json:"issues"`
	}
	if err := c.execute(ctx, &graphQLRequest{Query: query, Variables: c.pageVariables(cursor)}, &data); err != nil {
		return Page[Issue]{}, err
	}
	return Page[Issue]{
		Nodes:       data.Issues.Nodes,
		EndCursor:   data.Issues.PageInfo.EndCursor,
		HasNextPage: data.Issues.PageInfo.HasNextPage,
	}, nil
}

// ProjectIDs fetches one page of the authoritative project id set.
func (c *Client) ProjectIDs(ctx context.Context, cursor string) (Page[string], error) {
	const query = `
		query ProjectIDs($first: Int!, $after: String) {
			projects(first: $first, after: $after) {
				nodes {
					id
				}
				pageInfo {
					hasNextPage
					endCursor
				}
			}
		}
	`
	var data struct {
		Projects struct {
			Nodes []struct {
				ID string `json:"id"`
			} `json:"nodes"`
			PageInfo pageInfo `json:"pageInfo"`
		} `json:"projects"`
	}
	if err := c.execute(ctx, &graphQLRequest{Query: query, Variables: c.pageVariables(cursor)}, &data); err != nil {
		return Page[string]{}, err
	}
	ids := make([]string, 0, len(data.Projects.Nodes))
	for _, node := range data.Projects.Nodes {
		ids = append(ids, node.ID)
	}
	return Page[string]{
		Nodes:       ids,
		EndCursor:   data.Projects.PageInfo.EndCursor,
		HasNextPage: data.Projects.PageInfo.HasNextPage,
	}, nil
}

// pageVariables assembles pagination variables plus optional extra pairs.
func (c *Client) pageVariables(cursor string, extra ...string) map[string]any {
	vars := map[string]any{"first": pageSize}
	if cursor != "" {
		vars["after"] = cursor
	}
	for i := 0; i+1 < len(extra); i += 2 {
		vars[extra[i]] = extra[i+1]
	}
	return vars
}
