package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"github.com/spigell/internship-recommender/internal/catalog"
	"github.com/spigell/internship-recommender/internal/matching"
)

const sampleRows = 5

func (s *Server) engine(c *gin.Context) (*matching.Engine, bool) {
	e, err := s.holder.Engine()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success":   false,
			"message":   "System not initialized properly",
			"timestamp": s.timestamp(),
		})
		return nil, false
	}
	return e, true
}

func (s *Server) index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "Internship Recommendation Engine API",
		"status":    "running",
		"version":   s.version,
		"timestamp": s.timestamp(),
		"endpoints": gin.H{
			"health":              "/health",
			"recommend":           "/recommend",
			"test":                "/test",
			"api_recommendations": "/api/recommendations",
			"api_internships":     "/api/internships",
			"api_trending":        "/api/trending",
			"api_stats":           "/api/stats",
		},
	})
}

func (s *Server) health(c *gin.Context) {
	e, err := s.holder.Engine()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":      "unhealthy - no data",
			"data_loaded": 0,
			"timestamp":   s.timestamp(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          "healthy",
		"data_loaded":     e.Catalog().Len(),
		"catalog_version": e.Catalog().Version(),
		"loaded_at":       e.Catalog().LoadedAt().UTC().Format(timestampLayout),
		"timestamp":       s.timestamp(),
	})
}

func (s *Server) sample(c *gin.Context) {
	e, err := s.holder.Engine()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	listings := e.Catalog().All()
	if len(listings) > sampleRows {
		listings = listings[:sampleRows]
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "rows": len(listings), "sample": listings})
}

func (s *Server) legacyRecommend(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}

	req, err := bindLegacy(c)
	if err != nil {
		s.fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid request: %s", err))
		return
	}
	if field := req.missing(); field != "" {
		s.fail(c, http.StatusBadRequest, fmt.Sprintf("Missing required field: %s", field))
		return
	}

	profile := matching.Profile{
		Skills:             *req.Skills,
		Education:          *req.Education,
		LocationPreference: *req.LocationPreference,
		MinStipend:         float64(*req.MinStipend),
	}
	if msg := validateStipend(profile.MinStipend); msg != "" {
		s.fail(c, http.StatusBadRequest, msg)
		return
	}

	recs, err := e.Recommend(c.Request.Context(), profile, matching.DefaultLimit)
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"candidate": gin.H{
			"name":                *req.Name,
			"education":           profile.Education,
			"skills":              profile.Skills,
			"location_preference": profile.LocationPreference,
			"min_stipend":         profile.MinStipend,
		},
		"recommendations":       recs,
		"total_recommendations": len(recs),
		"timestamp":             s.timestamp(),
	})
}

// bindLegacy reads the legacy request from a JSON body or a form.
func bindLegacy(c *gin.Context) (legacyRequest, error) {
	var req legacyRequest

	if c.ContentType() == binding.MIMEJSON {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return req, err
		}
		return req, nil
	}

	for field, dst := range map[string]**string{
		"name":                &req.Name,
		"education":           &req.Education,
		"location_preference": &req.LocationPreference,
	} {
		if v, ok := c.GetPostForm(field); ok {
			*dst = &v
		}
	}

	if values, ok := c.GetPostFormArray("skills"); ok {
		skills := skillList(values)
		req.Skills = &skills
	}

	if v, ok := c.GetPostForm("min_stipend"); ok {
		f, err := parseFloat(v)
		if err != nil {
			return req, fmt.Errorf("min_stipend: %w", err)
		}
		stipend := flexFloat(f)
		req.MinStipend = &stipend
	}

	return req, nil
}

func (s *Server) recommendationsUsage(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Use POST with JSON to fetch recommendations.",
		"examples": []gin.H{
			{"education": "B.Tech", "skills": []string{"python", "ml"}, "location_preference": "Bengaluru", "top_k": 5},
			{"query": "data science intern remote", "top_k": 5},
		},
		"timestamp": s.timestamp(),
	})
}

func (s *Server) recommendations(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}

	var req recommendationRequest
	if body, err := io.ReadAll(c.Request.Body); err == nil && len(body) > 0 {
		// a body that is not JSON at all counts as an empty request
		if err := json.Unmarshal(body, &req); err != nil && !isSyntaxError(err) {
			s.reject(c, fmt.Sprintf("Invalid request: %s", err))
			return
		}
	}

	limit := matching.DefaultLimit
	if req.TopK != nil && *req.TopK > 0 {
		limit = *req.TopK
	}

	var profile matching.Profile

	if query := strings.TrimSpace(req.Query); query != "" {
		profile = matching.Profile{
			Education:          req.Education,
			Skills:             strings.Fields(query),
			LocationPreference: req.LocationPreference,
			MinStipend:         float64(req.MinStipend),
		}
		if len(req.Skills) > 0 {
			var skills skillList
			if err := json.Unmarshal(req.Skills, &skills); err == nil {
				profile.Skills = skills
			}
		}
	} else {
		if missing := req.missingFields(); len(missing) > 0 {
			s.reject(c, fmt.Sprintf("Missing required fields: %s", strings.Join(missing, ", ")))
			return
		}

		skills, isList := req.skillsList()
		if !isList || len(skills) == 0 {
			s.reject(c, "At least one skill must be selected")
			return
		}

		profile = matching.Profile{
			Education:          req.Education,
			Skills:             skills,
			LocationPreference: req.LocationPreference,
			MinStipend:         float64(req.MinStipend),
		}
	}

	if msg := validateStipend(profile.MinStipend); msg != "" {
		s.reject(c, msg)
		return
	}

	recs, err := e.Recommend(c.Request.Context(), profile, limit)
	if err != nil {
		s.internalError(c, err)
		return
	}

	s.requestLogger(c).Debug("recommendations served", zap.Int("count", len(recs)))

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"recommendations": recs,
		"count":           len(recs),
		"timestamp":       s.timestamp(),
		"message":         fmt.Sprintf("Found %d matching internships", len(recs)),
	})
}

func isSyntaxError(err error) bool {
	var syntaxErr *json.SyntaxError
	return errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF)
}

func validateStipend(v float64) string {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return "min_stipend must be a finite number"
	case v < 0:
		return "min_stipend must not be negative"
	default:
		return ""
	}
}

func (s *Server) internships(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}
	cat := e.Catalog()

	listings := cat.All()

	if location := strings.TrimSpace(c.Query("location")); location != "" {
		listings = intersect(listings, cat.ByLocation(location))
	}

	if raw := strings.TrimSpace(c.Query("min_stipend")); raw != "" {
		minStipend, err := strconv.Atoi(raw)
		if err != nil {
			s.reject(c, "min_stipend must be an integer")
			return
		}
		listings = intersect(listings, cat.ByMinStipend(minStipend))
	}

	if domain := strings.TrimSpace(c.Query("domain")); domain != "" {
		known := catalog.Domains()
		if !slices.ContainsFunc(known, func(d string) bool { return strings.EqualFold(d, domain) }) {
			s.reject(c, fmt.Sprintf("Unknown domain %q, expected one of: %s", domain, strings.Join(known, ", ")))
			return
		}
		listings = intersect(listings, cat.ByDomain(domain))
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"internships": listings,
		"count":       len(listings),
		"timestamp":   s.timestamp(),
	})
}

// intersect keeps the listings of base that are also in other, in base order.
func intersect(base, other []catalog.Listing) []catalog.Listing {
	ids := make(map[int]struct{}, len(other))
	for _, l := range other {
		ids[l.ID] = struct{}{}
	}

	out := make([]catalog.Listing, 0, len(other))
	for _, l := range base {
		if _, ok := ids[l.ID]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (s *Server) internship(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}

	id, ok := s.listingID(c)
	if !ok {
		return
	}

	listing, found := e.Catalog().ByID(id)
	if !found {
		s.fail(c, http.StatusNotFound, fmt.Sprintf("Internship %d not found", id))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"internship": listing,
		"timestamp":  s.timestamp(),
	})
}

func (s *Server) similar(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}

	id, ok := s.listingID(c)
	if !ok {
		return
	}

	limit, ok := s.limit(c, matching.DefaultRelatedLimit)
	if !ok {
		return
	}

	similar, err := e.Similar(id, limit)
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"internships": similar,
		"count":       len(similar),
		"timestamp":   s.timestamp(),
	})
}

func (s *Server) trending(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}

	limit, ok := s.limit(c, matching.DefaultRelatedLimit)
	if !ok {
		return
	}

	var trending []matching.TrendingListing
	key := fmt.Sprintf("trending:%s:%d", e.Catalog().Version(), limit)

	err := s.cached(c, key, &trending, func() (any, error) {
		return e.Trending(limit)
	})
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"internships": trending,
		"count":       len(trending),
		"timestamp":   s.timestamp(),
	})
}

func (s *Server) stats(c *gin.Context) {
	e, ok := s.engine(c)
	if !ok {
		return
	}

	var stats catalog.Stats
	key := fmt.Sprintf("stats:%s", e.Catalog().Version())

	err := s.cached(c, key, &stats, func() (any, error) {
		return e.Stats()
	})
	if err != nil {
		s.internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"stats":     stats,
		"timestamp": s.timestamp(),
	})
}

// cached decodes key from the cache into dst or computes, stores and decodes it.
// Cache failures are logged and never fail the request.
func (s *Server) cached(c *gin.Context, key string, dst any, compute func() (any, error)) error {
	ctx := c.Request.Context()
	log := s.requestLogger(c).With(zap.String("cache_key", key))

	payload, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("cache read failed", zap.Error(err))
	}
	if hit {
		if err := json.Unmarshal(payload, dst); err == nil {
			log.Debug("cache hit")
			return nil
		}
		log.Warn("cached payload is unreadable, recomputing")
	}

	value, err := compute()
	if err != nil {
		return err
	}

	payload, err = json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}

	return json.Unmarshal(payload, dst)
}

func (s *Server) listingID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		s.fail(c, http.StatusBadRequest, "Internship id must be an integer")
		return 0, false
	}
	return id, true
}

func (s *Server) limit(c *gin.Context, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return fallback, true
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		s.fail(c, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return limit, true
}

// reject answers 400 in the envelope of the recommendations API.
func (s *Server) reject(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success":   false,
		"message":   msg,
		"timestamp": s.timestamp(),
	})
}

func (s *Server) internalError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := http.StatusInternalServerError
	if errors.Is(err, matching.ErrCatalogUnavailable) {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"success":   false,
		"error":     "Internal server error",
		"details":   err.Error(),
		"timestamp": s.timestamp(),
	})
}
