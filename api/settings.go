package api

import (
	"context"
	"net/http"

	"github.com/viant/khub/settings"
)

const settingsPath = "api/v1/settings/me"

func (c *Client) GetMySettings(ctx context.Context) (map[string]any, error) {
	ret := map[string]any{}
	if err := call(ctx, c.http, http.MethodGet, c.url(settingsPath, nil), nil, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// UpdateMySettings applies patch; patch must carry the last observed version
func (c *Client) UpdateMySettings(ctx context.Context, patch map[string]any) (map[string]any, error) {
	ret := map[string]any{}
	if err := call(ctx, c.http, http.MethodPatch, c.url(settingsPath, nil), patch, &ret); err != nil {
		return nil, err
	}
	return ret, nil
}

var _ settings.Backend = (*Client)(nil)
