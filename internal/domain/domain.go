// Package domain holds the read-only marketplace entities the matching engine scores.
package domain

import (
	"strings"
	"time"
)

// JobStatusOpen is the only status a job can be matched in.
const JobStatusOpen = "open"

// Embedding is a fixed-length vector representation of free text.
type Embedding []float32

// Valid reports whether the embedding can take part in a similarity computation.
func (e Embedding) Valid() bool {
	return len(e) > 0
}

// Profile is a professional's public profile.
type Profile struct {
	ID            string    `json:"id" mapstructure:"id"`
	Title         string    `json:"title" mapstructure:"title"`
	Bio           string    `json:"bio" mapstructure:"bio"`
	Location      string    `json:"location" mapstructure:"location"`
	IndustryFocus string    `json:"industryFocus" mapstructure:"industry_focus"`
	Embedding     Embedding `json:"-" mapstructure:"embedding"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty" mapstructure:"updated_at"`
}

// Job is a job posting.
type Job struct {
	ID           string    `json:"id" mapstructure:"id"`
	Title        string    `json:"title" mapstructure:"title"`
	Description  string    `json:"description" mapstructure:"description"`
	Requirements string    `json:"requirements" mapstructure:"requirements"`
	Location     string    `json:"location" mapstructure:"location"`
	Status       string    `json:"status" mapstructure:"status"`
	Region       string    `json:"region,omitempty" mapstructure:"region"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty" mapstructure:"updated_at"`
}

// Entity is implemented by everything that can be a match candidate.
type Entity interface {
	EntityID() string
	// Places lists the location-like fields used by region filters.
	Places() []string
	Version() time.Time
}

func (p Profile) EntityID() string   { return p.ID }
func (p Profile) Places() []string   { return []string{p.Location} }
func (p Profile) Version() time.Time { return p.UpdatedAt }

// Text is the free text used to embed a profile.
func (p Profile) Text() string {
	return joinNonEmpty(p.Title, p.Bio, p.IndustryFocus, p.Location)
}

func (j Job) EntityID() string   { return j.ID }
func (j Job) Places() []string   { return []string{j.Location, j.Region} }
func (j Job) Version() time.Time { return j.UpdatedAt }

// IsOpen reports whether the job accepts matches.
func (j Job) IsOpen() bool {
	return strings.EqualFold(strings.TrimSpace(j.Status), JobStatusOpen)
}

// Text is the free text used to embed a job.
func (j Job) Text() string {
	return joinNonEmpty(j.Title, j.Description, j.Requirements, j.Location, j.Region)
}

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}
