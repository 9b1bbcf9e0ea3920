package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ywutian/study-abroad-platform-sub014/internal/pkg/authz/port"
	chat "github.com/ywutian/study-abroad-platform-sub014/internal/pkg/chat/application/domain"
)

// RelationshipClient queries the platform's relationship service over plain
// JSON HTTP. One request answers follow, block and role state for a pair.
type RelationshipClient struct {
	baseURL string
	http    *http.Client
}

// NewRelationshipClientFromEnv reads the service base URL from AUTHZ_URL.
func NewRelationshipClientFromEnv() (*RelationshipClient, error) {
	base := strings.TrimRight(os.Getenv("AUTHZ_URL"), "/")
	if base == "" {
		return nil, errors.New("authz: AUTHZ_URL environment variable is not set")
	}
	return &RelationshipClient{
		baseURL: base,
		http:    &http.Client{Timeout: 3 * time.Second},
	}, nil
}

var _ port.Gate = (*RelationshipClient)(nil)

type relationResponse struct {
	MutualFollow bool  `json:"mutual_follow"`
	Blocked      bool  `json:"blocked"`
	RoleA        int16 `json:"role_a"`
	RoleB        int16 `json:"role_b"`
}

// Relation fetches the current relationship view between a and b.
func (c *RelationshipClient) Relation(ctx context.Context, a, b string) (chat.RelationView, error) {
	q := url.Values{}
	q.Set("user_a", a)
	q.Set("user_b", b)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/relation?"+q.Encode(), nil)
	if err != nil {
		return chat.RelationView{}, fmt.Errorf("authz: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return chat.RelationView{}, fmt.Errorf("authz: relation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return chat.RelationView{}, fmt.Errorf("authz: relation request: unexpected status %d", resp.StatusCode)
	}

	var body relationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return chat.RelationView{}, fmt.Errorf("authz: decode relation response: %w", err)
	}

	return chat.RelationView{
		MutualFollow: body.MutualFollow,
		Blocked:      body.Blocked,
		RoleA:        chat.Role(body.RoleA),
		RoleB:        chat.Role(body.RoleB),
	}, nil
}
