package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"dwetl/internal/datasource"
)

// Store fetches source files over HTTP. A key is either an absolute URL or a
// path joined onto Base. Listing is not possible over plain HTTP.
type Store struct {
	Client *Client
	Base   string
}

var _ datasource.Store = (*Store)(nil)

// List always fails with datasource.ErrListUnsupported.
func (s *Store) List(context.Context, string) ([]datasource.Object, error) {
	return nil, datasource.ErrListUnsupported
}

// Open GETs the key and returns the body. Non-2xx responses are a
// *StatusError.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	url := s.URL(key)
	resp, err := s.Client.Get(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	if err := CheckStatus(http.MethodGet, url, resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

// URL resolves key against Base.
func (s *Store) URL(key string) string {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") || s.Base == "" {
		return key
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(s.Base, "/"), strings.TrimLeft(key, "/"))
}
