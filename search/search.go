package search

import (
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/runbookhq/core/model"
)

type Search struct {
	index bleve.Index
}

type IndexDocument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tags        string `json:"tags"`
	Category    string `json:"category"`
}

// New opens or creates the index at filename. An empty filename builds an
// in-memory index, used by the memory data store and in tests.
func New(filename string) (*Search, error) {
	s := &Search{}

	if filename == "" {
		idx, err := bleve.NewMemOnly(createMapping())
		if err != nil {
			return nil, err
		}

		s.index = idx
		return s, nil
	}

	if _, err := os.Stat(filename); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}

		idx, err := bleve.New(filename, createMapping())
		if err != nil {
			return nil, err
		}
		s.index = idx
	} else {
		idx, err := bleve.Open(filename)
		if err != nil {
			return nil, err
		}

		s.index = idx
	}

	return s, nil
}

func createMapping() mapping.IndexMapping {
	docmap := bleve.NewDocumentMapping()

	nameMap := bleve.NewKeywordFieldMapping()
	docmap.AddFieldMappingsAt("name", nameMap)

	descMap := bleve.NewTextFieldMapping()
	descMap.Analyzer = "en"
	docmap.AddFieldMappingsAt("description", descMap)

	tagsMap := bleve.NewTextFieldMapping()
	docmap.AddFieldMappingsAt("tags", tagsMap)

	catMap := bleve.NewKeywordFieldMapping()
	docmap.AddFieldMappingsAt("category", catMap)

	idxmap := bleve.NewIndexMapping()
	idxmap.AddDocumentMapping("IndexDocument", docmap)

	return idxmap
}

func (s *Search) Index(fn model.Function) error {
	doc := IndexDocument{
		Name:        fn.Name,
		Description: fn.Description,
		Tags:        strings.Join(fn.Tags, " "),
		Category:    fn.Category,
	}

	return s.index.Index(fn.Name, doc)
}

func (s *Search) Delete(name string) error {
	return s.index.Delete(name)
}

// Find returns the names of functions matching keywords, optionally scoped
// to a category.
func (s *Search) Find(keywords, category string) ([]string, error) {
	var queries []query.Query

	if category != "" {
		catQry := bleve.NewTermQuery(category)
		catQry.SetField("category")
		queries = append(queries, catQry)
	}

	var keywordQueries []query.Query
	for _, keyword := range strings.Fields(keywords) {
		fq := bleve.NewFuzzyQuery(strings.ToLower(keyword))
		keywordQueries = append(keywordQueries, fq)
	}

	if len(keywordQueries) > 0 {
		queries = append(queries, bleve.NewDisjunctionQuery(keywordQueries...))
	}

	if len(queries) == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(queries...))
	req.Size = 50

	results, err := s.index.Search(req)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, r := range results.Hits {
		names = append(names, r.ID)
	}

	return names, nil
}

func (s *Search) Close() error {
	return s.index.Close()
}
