package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/BenjaminSRussell/vidgrab/internal/types"
	"github.com/temoto/robotstxt"
)

// RobotsGuard caches robots.txt per origin and answers allow/deny
type RobotsGuard struct {
	client *http.Client
	agent  string
	cache  sync.Map // origin -> *robotstxt.RobotsData (nil means allow all)
}

// NewRobotsGuard creates a guard that evaluates rules for agent
func NewRobotsGuard(client *http.Client, agent string) *RobotsGuard {
	return &RobotsGuard{client: client, agent: agent}
}

// Allowed reports whether target may be fetched. Any failure to obtain
// robots.txt allows the fetch.
func (rg *RobotsGuard) Allowed(ctx context.Context, target types.Target) bool {
	origin := fmt.Sprintf("%s://%s", target.Scheme, target.Host)

	if data, ok := rg.cache.Load(origin); ok {
		return rg.test(data.(*robotstxt.RobotsData), target.Path)
	}

	robots := rg.load(ctx, origin+"/robots.txt")
	rg.cache.Store(origin, robots)

	return rg.test(robots, target.Path)
}

func (rg *RobotsGuard) test(robots *robotstxt.RobotsData, path string) bool {
	if robots == nil {
		return true
	}
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, rg.agent)
}

func (rg *RobotsGuard) load(ctx context.Context, robotsURL string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}

	resp, err := rg.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil
	}

	return robots
}
