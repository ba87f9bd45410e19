package api

import (
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/spigell/match-engine/internal/domain"
	"github.com/spigell/match-engine/internal/matching"
)

// HeaderRequestID carries the engine request id of a match response.
const HeaderRequestID = "X-Request-ID"

// MatchResponse is one entry of a match response.
type MatchResponse[T domain.Entity] struct {
	Entity          T                  `json:"entity"`
	MatchScore      int                `json:"matchScore"`
	SubScores       *SubScoresResponse `json:"subscores,omitempty"`
	MatchStrength   matching.Strength  `json:"matchStrength"`
	Recommendations []string           `json:"recommendations,omitempty"`
}

// SubScoresResponse holds contextual sub-scores as percentages.
type SubScoresResponse struct {
	Sector   int `json:"sector"`
	Language int `json:"language"`
	Format   int `json:"format"`
	Cultural int `json:"cultural"`
}

func (s *Server) jobsForProfessional(c fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}

	result, err := s.matcher.JobsForProfessional(c.Context(), c.Params("id"), req)
	if err != nil {
		return err
	}

	c.Set(HeaderRequestID, result.Stats.RequestID)
	return c.JSON(toResponse(result))
}

func (s *Server) professionalsForJob(c fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return err
	}

	result, err := s.matcher.ProfessionalsForJob(c.Context(), c.Params("id"), req)
	if err != nil {
		return err
	}

	c.Set(HeaderRequestID, result.Stats.RequestID)
	return c.JSON(toResponse(result))
}

func parseRequest(c fiber.Ctx) (matching.Request, error) {
	req := matching.Request{
		Preferences: matching.Preferences{
			Sector:   strings.TrimSpace(c.Query("sector")),
			Language: strings.TrimSpace(c.Query("language")),
			Format:   strings.TrimSpace(c.Query("format")),
			Emirate:  strings.TrimSpace(c.Query("emirate")),
		},
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, fiber.NewError(fiber.StatusBadRequest, "limit must be a positive integer")
		}
		req.Limit = min(limit, MaxLimit)
	}

	if raw := c.Query("contextual"); raw != "" {
		contextual, err := strconv.ParseBool(raw)
		if err != nil {
			return req, fiber.NewError(fiber.StatusBadRequest, "contextual must be a boolean")
		}
		req.Contextual = contextual
	}

	return req, nil
}

func toResponse[T domain.Entity](result *matching.Result[T]) []MatchResponse[T] {
	out := make([]MatchResponse[T], 0, len(result.Matches))
	for _, m := range result.Matches {
		item := MatchResponse[T]{
			Entity:          m.Entity,
			MatchScore:      percent(m.Overall),
			MatchStrength:   m.Strength,
			Recommendations: m.Recommendations,
		}
		if sub := m.SubScores; sub != nil {
			item.SubScores = &SubScoresResponse{
				Sector:   percent(sub.Sector),
				Language: percent(sub.Language),
				Format:   percent(sub.Format),
				Cultural: percent(sub.Cultural),
			}
		}
		out = append(out, item)
	}
	return out
}

func percent(score float64) int {
	return int(math.Round(score * 100))
}
