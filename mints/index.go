package mints

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/mapping"
)

// searchIndex is an in-memory full-text index over one snapshot. It is never
// written to disk; a refresh builds a new one and closes the old one once
// in-flight searches finish.
type searchIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	closed bool
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()
	textFieldMapping.Analyzer = en.AnalyzerName

	entryMapping := bleve.NewDocumentMapping()
	entryMapping.AddFieldMappingsAt("name", textFieldMapping)
	entryMapping.AddFieldMappingsAt("record", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = entryMapping
	indexMapping.DefaultAnalyzer = en.AnalyzerName
	return indexMapping
}

func newSearchIndex(entries []Entry) (*searchIndex, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("couldn't create search index: %w", err)
	}
	batch := index.NewBatch()
	for _, e := range entries {
		err := batch.Index(strconv.Itoa(e.ID), map[string]any{
			"name":   e.Name,
			"record": e.Record,
		})
		if err != nil {
			index.Close()
			return nil, fmt.Errorf("couldn't index %s: %w", e.Name, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return nil, fmt.Errorf("couldn't index entries: %w", err)
	}
	return &searchIndex{index: index}, nil
}

// search returns matching entry ids, best first. ok is false when the index
// was closed by a newer refresh and the caller should retry on the current
// snapshot.
func (s *searchIndex) search(input string, limit int) (ids []int, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, nil
	}
	matchQuery := bleve.NewMatchPhraseQuery(input)
	fuzzyQuery := bleve.NewFuzzyQuery(strings.ToLower(input))
	fuzzyQuery.Fuzziness = 1
	prefixQuery := bleve.NewPrefixQuery(strings.ToLower(input))
	query := bleve.NewDisjunctionQuery(matchQuery, fuzzyQuery, prefixQuery)
	request := bleve.NewSearchRequestOptions(query, limit, 0, false)
	result, err := s.index.Search(request)
	if err != nil {
		return nil, true, fmt.Errorf("search failed: %w", err)
	}
	for _, hit := range result.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}

func (s *searchIndex) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.index.Close()
}
