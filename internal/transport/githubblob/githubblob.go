// Package githubblob implements the git-hosted blob transport: a bookmarks
// payload stored as a single file in a GitHub repository, using the file's
// blob SHA (returned by the Contents API) as the optimistic-locking
// witness. Grounded on the omarkohl-jip client's go-github wiring
// (internal/github/client.go): a *github.Client built with WithAuthToken
// and, when configured, WithEnterpriseURLs for self-hosted instances.
package githubblob

import (
	"context"
	"fmt"
	"net/http"

	gogithub "github.com/google/go-github/v68/github"

	"github.com/utags/sync-core/internal/corelog"
	"github.com/utags/sync-core/internal/transport"
)

// Transport is the github-hosted-blob transport.Transport implementation.
type Transport struct {
	cfg    transport.Config
	gh     *gogithub.Client
	owner  string
	repo   string
	path   string
	branch string
}

// New constructs a githubblob transport. Init must be called before use.
func New() *Transport {
	return &Transport{}
}

func (t *Transport) Init(ctx context.Context, cfg transport.Config) error {
	owner := cfg.Target["owner"]
	repo := cfg.Target["repo"]
	path := cfg.Target["path"]
	if owner == "" || repo == "" || path == "" {
		return &transport.TransportInitError{Transport: "githubblob", Err: fmt.Errorf("target requires owner, repo, and path")}
	}

	t.cfg = cfg
	t.owner = owner
	t.repo = repo
	t.path = path
	t.branch = cfg.Target["branch"]

	token := cfg.Credentials["token"]
	gh := gogithub.NewClient(nil).WithAuthToken(token)
	if apiURL := cfg.Target["apiUrl"]; apiURL != "" {
		var err error
		gh, err = gh.WithEnterpriseURLs(apiURL, apiURL)
		if err != nil {
			return &transport.TransportInitError{Transport: "githubblob", Err: err}
		}
	}
	t.gh = gh

	if _, _, err := t.gh.Users.Get(ctx, ""); err != nil {
		return &transport.TransportInitError{Transport: "githubblob", Err: err}
	}
	corelog.Debugf("githubblob[%s]: authenticated against %s/%s", cfg.ServiceID, owner, repo)
	return nil
}

func (t *Transport) GetConfig() transport.Config { return t.cfg }

func (t *Transport) opts() *gogithub.RepositoryContentGetOptions {
	if t.branch == "" {
		return nil
	}
	return &gogithub.RepositoryContentGetOptions{Ref: t.branch}
}

func (t *Transport) GetAuthStatus(ctx context.Context) (transport.AuthStatus, error) {
	_, resp, err := t.gh.Users.Get(ctx, "")
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return transport.AuthUnauthenticated, nil
		}
		return transport.AuthError, nil
	}
	return transport.AuthAuthenticated, nil
}

func (t *Transport) getContents(ctx context.Context) (*gogithub.RepositoryContent, error) {
	file, _, resp, err := t.gh.Repositories.GetContents(ctx, t.owner, t.repo, t.path, t.opts())
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return file, nil
}

func (t *Transport) GetRemoteMetadata(ctx context.Context) (*transport.RemoteMeta, error) {
	file, err := t.getContents(ctx)
	if err != nil {
		return nil, &transport.NetworkError{Transport: "githubblob", Op: "get_remote_metadata", Err: err}
	}
	if file == nil {
		return nil, nil
	}
	sha := file.GetSHA()
	return &transport.RemoteMeta{SHA: &sha}, nil
}

func (t *Transport) Download(ctx context.Context) (transport.Download, error) {
	file, err := t.getContents(ctx)
	if err != nil {
		return transport.Download{}, &transport.NetworkError{Transport: "githubblob", Op: "download", Err: err}
	}
	if file == nil {
		return transport.Download{}, nil
	}

	content, err := file.GetContent()
	if err != nil {
		return transport.Download{}, &transport.ParseError{Transport: "githubblob", Err: err}
	}
	sha := file.GetSHA()
	return transport.Download{Data: &content, RemoteMeta: &transport.RemoteMeta{SHA: &sha}}, nil
}

func (t *Transport) Upload(ctx context.Context, data string, expected *transport.RemoteMeta) (transport.RemoteMeta, error) {
	opts := &gogithub.RepositoryContentFileOptions{
		Message: gogithub.Ptr(fmt.Sprintf("sync: update %s", t.path)),
		Content: []byte(data),
	}
	if t.branch != "" {
		opts.Branch = gogithub.Ptr(t.branch)
	}
	if expected != nil && expected.SHA != nil {
		opts.SHA = gogithub.Ptr(*expected.SHA)
	}

	result, resp, err := t.gh.Repositories.CreateFile(ctx, t.owner, t.repo, t.path, opts)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity) {
			return transport.RemoteMeta{}, &transport.UploadConflict{Transport: "githubblob", Expected: expected, Detail: err.Error()}
		}
		return transport.RemoteMeta{}, &transport.NetworkError{Transport: "githubblob", Op: "upload", Err: err}
	}

	sha := result.GetSHA()
	return transport.RemoteMeta{SHA: &sha}, nil
}

func (t *Transport) Destroy(ctx context.Context) error { return nil }
