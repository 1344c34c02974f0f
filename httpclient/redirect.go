package httpclient

import (
	"context"
	"net/url"
)

// RedirectStage returns the redirect-following stage.
//
// The inner chain is always invoked at least once, even with a hop budget
// of zero. While the response status is 3xx and budget remains, the request
// target is rewritten to the Location header (resolved against the current
// URL) and the inner chain is invoked again. When a hop moves to a
// different host, the authorization and cookie headers are dropped before
// the request is reissued. The final response carries the visited URIs in
// order; responses that never redirected carry none.
//
// Errors from inner hops propagate unchanged; classifying and retrying them
// belongs to the retry stage wrapped outside this one.
func RedirectStage(next Stage, c *Client) Stage {
	return StageFunc(func(ctx context.Context, req *Request) (*Response, error) {
		remaining := c.cfg.RedirectCount

		resp, err := next.Process(ctx, req)
		if err != nil {
			return nil, err
		}

		var visited []*url.URL
		for resp.IsRedirect() && remaining > 0 {
			target, ok, err := resp.Location()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}

			visited = append(visited, req.URL)
			if target.Host != req.URL.Host {
				// Credentials are scoped to the host that issued them.
				req.DelHeader("authorization")
				req.DelHeader("cookie")
				req.dropUserCookies()
			}
			req.SetURL(target)
			remaining--

			c.logRedirect(req, resp.Status, target)
			c.metrics.recordRedirect(ctx, req)

			resp, err = next.Process(ctx, req)
			if err != nil {
				return nil, err
			}
		}

		resp.Redirects = visited
		return resp, nil
	})
}
