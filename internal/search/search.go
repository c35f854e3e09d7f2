// Package search implements the ranked keyword+vector search engine (C6):
// tokenized keyword scoring fused with cosine vector similarity from the
// embedding index, weighted 0.7 vector / 0.3 keyword per spec.md §4.6.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/nodenestor/hiveminddb/internal/capability"
	"github.com/nodenestor/hiveminddb/internal/engine"
	"github.com/nodenestor/hiveminddb/internal/model"
)

// DefaultKeywordWeight and DefaultVectorWeight are the fusion weights used
// when a caller does not override them (spec.md §4.6 step 4).
const (
	DefaultKeywordWeight = 0.3
	DefaultVectorWeight  = 0.7
)

// Engine ranks memories for a query by fusing keyword overlap with
// embedding cosine similarity.
type Engine struct {
	eng           *engine.Engine
	keywordWeight float64
	vectorWeight  float64
	defaultLimit  int
	cache         capability.Cache
}

// New creates a search Engine over eng. When keywordWeight and
// vectorWeight are both <= 0, they fall back to the package defaults.
func New(eng *engine.Engine, keywordWeight, vectorWeight float64, defaultLimit int) *Engine {
	if keywordWeight <= 0 && vectorWeight <= 0 {
		keywordWeight, vectorWeight = DefaultKeywordWeight, DefaultVectorWeight
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Engine{eng: eng, keywordWeight: keywordWeight, vectorWeight: vectorWeight, defaultLimit: defaultLimit}
}

// WithCache attaches a capability.Cache to short-circuit repeated identical
// queries against an unchanged store (SPEC_FULL.md §11). Optional: nil (the
// default) just means every call recomputes.
func (s *Engine) WithCache(c capability.Cache) *Engine {
	s.cache = c
	return s
}

// Request is one search call's parameters.
type Request struct {
	Query              string
	AgentID            *string
	UserID             *string
	Tags               []string
	Limit              int
	IncludeInvalidated bool
}

// Result is one ranked memory.
type Result struct {
	Memory model.Memory
	Score  float64
}

// Search is pure over a frozen store: identical inputs against an
// unchanged store always return the identical ranking (spec.md §8,
// "Search idempotence"), which is what makes the result cacheable by the
// plugin/cache family (SPEC_FULL.md §11).
func (s *Engine) Search(ctx context.Context, req Request) ([]Result, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	var cacheKey string
	var generation uint64
	if s.cache != nil {
		generation = s.eng.Generation()
		cacheKey = requestCacheKey(req, limit)
		if cached, ok := s.cache.Get(ctx, cacheKey, generation); ok {
			results := make([]Result, len(cached))
			for i, c := range cached {
				results[i] = Result{Memory: c.Memory, Score: c.Score}
			}
			return results, nil
		}
	}

	candidates := s.eng.List(engine.ListFilter{
		AgentID:            req.AgentID,
		UserID:             req.UserID,
		Tags:               req.Tags,
		IncludeInvalidated: req.IncludeInvalidated,
	})

	keywordScores := keywordScore(req.Query, candidates)
	vectorScores, hasVector := s.vectorScores(ctx, req.Query, candidates)

	results := make([]Result, 0, len(candidates))
	for _, m := range candidates {
		k := keywordScores[m.ID]
		var score float64
		if hasVector {
			score = s.vectorWeight*vectorScores[m.ID] + s.keywordWeight*k
		} else {
			score = k
		}
		if score <= 0 {
			continue
		}
		results = append(results, Result{Memory: m, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].Memory.UpdatedAt.Equal(results[j].Memory.UpdatedAt) {
			return results[i].Memory.UpdatedAt.After(results[j].Memory.UpdatedAt)
		}
		return results[i].Memory.ID < results[j].Memory.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	if s.cache != nil {
		cached := make([]capability.CachedSearchResult, len(results))
		for i, r := range results {
			cached[i] = capability.CachedSearchResult{Memory: r.Memory, Score: r.Score}
		}
		s.cache.Set(ctx, cacheKey, generation, cached, 0)
	}
	return results, nil
}

// requestCacheKey hashes every field that affects ranking. Tags are sorted
// first, so two requests that differ only in tag order share a key.
func requestCacheKey(req Request, limit int) string {
	tags := append([]string(nil), req.Tags...)
	sort.Strings(tags)
	h := sha256.New()
	fmt.Fprintf(h, "q=%s|agent=%s|user=%s|tags=%s|limit=%s|inv=%t",
		req.Query, ptrOr(req.AgentID), ptrOr(req.UserID), strings.Join(tags, ","),
		strconv.Itoa(limit), req.IncludeInvalidated)
	return hex.EncodeToString(h.Sum(nil))
}

func ptrOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// vectorScores embeds the query (if an Embedder is configured) and looks up
// cosine similarity for every candidate against the embedding index. The
// bool return reports whether vector scoring actually ran: embedder
// absence, an empty query, or an embedding/search failure all degrade to
// keyword-only scoring (fused weight 1.0 on k_score, spec.md §4.6 step 4),
// never an error (spec.md §7).
func (s *Engine) vectorScores(ctx context.Context, query string, candidates []model.Memory) (map[uint64]float64, bool) {
	scores := make(map[uint64]float64, len(candidates))
	embedder := s.eng.Embedder()
	if embedder == nil || strings.TrimSpace(query) == "" {
		return scores, false
	}
	vec, err := embedder.Embed(ctx, query)
	if err != nil {
		log.Warn("search: query embedding failed, falling back to keyword-only", "err", err)
		return scores, false
	}
	ranked, err := s.eng.SearchEmbeddings(vec, len(candidates))
	if err != nil {
		log.Warn("search: vector search failed, falling back to keyword-only", "err", err)
		return scores, false
	}
	for _, r := range ranked {
		scores[r.ID] = r.Score
	}
	return scores, true
}

// keywordScore scores each candidate as matched/total query tokens
// (case-insensitive, unicode-letter/number tokenization matching the
// embedding index's tokenizer so the two scoring halves agree on what a
// "word" is), plus a 0.2 bonus, capped at 1, when the full query appears
// as a literal substring of the content (spec.md §4.6 step 2).
func keywordScore(query string, candidates []model.Memory) map[uint64]float64 {
	scores := make(map[uint64]float64, len(candidates))
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return scores
	}
	qSet := make(map[string]struct{}, len(qTokens))
	for _, t := range qTokens {
		qSet[t] = struct{}{}
	}
	qLower := strings.ToLower(strings.TrimSpace(query))

	for _, m := range candidates {
		cTokens := tokenize(m.Content)
		matches := 0
		if len(cTokens) > 0 {
			cSet := make(map[string]struct{}, len(cTokens))
			for _, t := range cTokens {
				cSet[t] = struct{}{}
			}
			for t := range qSet {
				if _, ok := cSet[t]; ok {
					matches++
				}
			}
		}
		score := float64(matches) / float64(len(qSet))
		if qLower != "" && strings.Contains(strings.ToLower(m.Content), qLower) {
			score += 0.2
			if score > 1 {
				score = 1
			}
		}
		if score > 0 {
			scores[m.ID] = score
		}
	}
	return scores
}

// tokenize splits text on anything that is not a unicode letter or number,
// lowercasing first. This is the exact boundary rule decided for Open
// Question (c): word boundaries are Unicode letter/number runs, matching
// the teacher's embed/local tokenizer rather than ASCII-only splitting, so
// non-English content tokenizes sensibly.
func tokenize(text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}
	return strings.FieldsFunc(text, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r))
	})
}
