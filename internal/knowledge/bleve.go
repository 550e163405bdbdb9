package knowledge

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const (
	docKindCourse = "course"
	docKindQA     = "qa"

	// maxBleveResults bounds one retrieval query; the context block is meant
	// to ground a single completion request, not dump the whole collection.
	maxBleveResults = 50
)

// bleveDoc is the document shape indexed for both collections. Match holds
// the lowercased primary text field so wildcard queries behave as
// case-insensitive substring matches.
type bleveDoc struct {
	Kind     string `json:"kind"`
	Match    string `json:"match"`
	Title    string `json:"title"`
	Time     string `json:"time"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// BleveIndex is a full-text Querier over an on-disk bleve index. It can stand
// in for the SQLite store when substring LIKE scans get too slow.
type BleveIndex struct {
	index bleve.Index
}

// OpenBleve opens the index at path, creating it with the collection mapping
// if it does not exist yet.
func OpenBleve(path string) (*BleveIndex, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist || os.IsNotExist(err) {
		idx, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}
	return &BleveIndex{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	kw := bleve.NewTextFieldMapping()
	kw.Analyzer = keyword.Name

	stored := bleve.NewTextFieldMapping()
	stored.Index = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("kind", kw)
	doc.AddFieldMappingsAt("match", kw)
	doc.AddFieldMappingsAt("title", stored)
	doc.AddFieldMappingsAt("time", stored)
	doc.AddFieldMappingsAt("question", stored)
	doc.AddFieldMappingsAt("answer", stored)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// IndexCourse adds a course record under the given id.
func (b *BleveIndex) IndexCourse(id string, c Course) error {
	return b.index.Index(id, bleveDoc{
		Kind:  docKindCourse,
		Match: strings.ToLower(c.Title),
		Title: c.Title,
		Time:  c.Time,
	})
}

// IndexQA adds a QA record under the given id.
func (b *BleveIndex) IndexQA(id string, q QA) error {
	return b.index.Index(id, bleveDoc{
		Kind:     docKindQA,
		Match:    strings.ToLower(q.Question),
		Question: q.Question,
		Answer:   q.Answer,
	})
}

func (b *BleveIndex) Courses(_ context.Context, f Filter) ([]Course, error) {
	hits, err := b.search(docKindCourse, f)
	if err != nil {
		return nil, err
	}
	var out []Course
	for _, fields := range hits {
		out = append(out, Course{
			Title: stringField(fields, "title"),
			Time:  stringField(fields, "time"),
		})
	}
	return out, nil
}

func (b *BleveIndex) QAs(_ context.Context, f Filter) ([]QA, error) {
	hits, err := b.search(docKindQA, f)
	if err != nil {
		return nil, err
	}
	var out []QA
	for _, fields := range hits {
		out = append(out, QA{
			Question: stringField(fields, "question"),
			Answer:   stringField(fields, "answer"),
		})
	}
	return out, nil
}

func (b *BleveIndex) search(kind string, f Filter) ([]map[string]interface{}, error) {
	if f.Empty() {
		return nil, nil
	}

	kindQuery := query.NewTermQuery(kind)
	kindQuery.SetField("kind")

	terms := make([]query.Query, 0, len(f.Terms))
	for _, term := range f.Terms {
		wq := query.NewWildcardQuery("*" + strings.ToLower(term) + "*")
		wq.SetField("match")
		terms = append(terms, wq)
	}

	q := query.NewConjunctionQuery([]query.Query{
		kindQuery,
		query.NewDisjunctionQuery(terms),
	})

	req := bleve.NewSearchRequest(q)
	req.Size = maxBleveResults
	req.Fields = []string{"*"}

	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	out := make([]map[string]interface{}, 0, len(res.Hits))
	for _, hit := range res.Hits {
		out = append(out, hit.Fields)
	}
	return out, nil
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}
