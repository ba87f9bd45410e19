package marketplace

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/match-engine/internal/domain"
)

func (c *Client) GetProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var raw map[string]any
	found, err := c.getJSON(ctx, fmt.Sprintf("%s%s/%s", c.APIURL, ProfilesPath, url.PathEscape(id)), &raw)
	if err != nil {
		return nil, fmt.Errorf("get profile %q: %w", id, err)
	}
	if !found {
		return nil, nil
	}

	var profile domain.Profile
	if err := decode(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode profile %q: %w", id, err)
	}
	return &profile, nil
}

func (c *Client) ListProfiles(ctx context.Context, limit int) ([]domain.Profile, error) {
	items, err := c.GetItems(ctx, c.APIURL+ProfilesPath, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}

	var profiles []domain.Profile
	if err := decode(items, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return profiles, nil
}

func (c *Client) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	var raw map[string]any
	found, err := c.getJSON(ctx, fmt.Sprintf("%s%s/%s", c.APIURL, JobsPath, url.PathEscape(id)), &raw)
	if err != nil {
		return nil, fmt.Errorf("get job %q: %w", id, err)
	}
	if !found {
		return nil, nil
	}

	var job domain.Job
	if err := decode(raw, &job); err != nil {
		return nil, fmt.Errorf("decode job %q: %w", id, err)
	}
	return &job, nil
}

func (c *Client) ListOpenJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	q := url.Values{}
	q.Set("status", domain.JobStatusOpen)

	items, err := c.GetItems(ctx, c.APIURL+JobsPath, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list open jobs: %w", err)
	}

	var jobs []domain.Job
	if err := decode(items, &jobs); err != nil {
		return nil, fmt.Errorf("decode jobs: %w", err)
	}
	return jobs, nil
}

// decode maps API payloads onto domain types by their json tags.
func decode(input, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     result,
		TagName:    "json",
		DecodeHook: mapstructure.StringToTimeHookFunc(time.RFC3339),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
