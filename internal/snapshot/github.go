package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/sitestore/internal/codec"
	"github.com/dmitrijs2005/sitestore/internal/common"
	"github.com/dmitrijs2005/sitestore/internal/netx"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// maxEnvelopeSize caps the JSON envelope read from the contents API.
const maxEnvelopeSize = 64 << 20

// GitHubLocation identifies a file in a repository.
type GitHubLocation struct {
	Owner string
	Repo  string
	Path  string
}

// GitHubFetcher reads a file through the repository contents API. Token is
// optional; without it the request is anonymous.
type GitHubFetcher struct {
	APIBaseURL string
	Location   GitHubLocation
	Token      string
	Client     *http.Client
}

type contentsEnvelope struct {
	Content  *string `json:"content"`
	Encoding string  `json:"encoding"`
}

func NewGitHubFetcher(apiBaseURL string, loc GitHubLocation, token string) *GitHubFetcher {
	if apiBaseURL == "" {
		apiBaseURL = DefaultGitHubAPI
	}
	return &GitHubFetcher{APIBaseURL: apiBaseURL, Location: loc, Token: token, Client: http.DefaultClient}
}

func (f *GitHubFetcher) Describe() string {
	return fmt.Sprintf("github:%s/%s/%s", f.Location.Owner, f.Location.Repo, f.Location.Path)
}

// URL builds {api}/repos/{owner}/{repo}/contents/{path}. Path segments are
// escaped individually so slashes in Path keep their meaning.
func (f *GitHubFetcher) URL() string {
	segments := strings.Split(strings.Trim(f.Location.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimRight(f.APIBaseURL, "/"),
		url.PathEscape(f.Location.Owner),
		url.PathEscape(f.Location.Repo),
		strings.Join(segments, "/"))
}

func (f *GitHubFetcher) Fetch(ctx context.Context) ([]byte, error) {
	h := http.Header{}
	h.Set("Accept", "application/vnd.github+json")
	if f.Token != "" {
		h.Set("Authorization", "Bearer "+f.Token)
	}

	body, err := netx.Get(ctx, f.Client, f.URL(), h, maxEnvelopeSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}

	var env contentsEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", common.ErrRemoteUnavailable, err)
	}
	if env.Content == nil {
		return nil, fmt.Errorf("%w: envelope has no content field", common.ErrRemoteUnavailable)
	}
	if env.Encoding != "" && env.Encoding != "base64" {
		return nil, fmt.Errorf("%w: unsupported encoding %q", common.ErrRemoteUnavailable, env.Encoding)
	}

	text := strings.NewReplacer("\n", "", "\r", "").Replace(*env.Content)
	image, err := codec.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrRemoteUnavailable, err)
	}
	return image, nil
}
