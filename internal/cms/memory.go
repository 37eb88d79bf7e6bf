package cms

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-storefront/internal/document"
)

// MemoryReader serves documents from memory. It backs tests and the demo
// mode of the server binary.
type MemoryReader struct {
	mu       sync.RWMutex
	docs     map[string]*document.Document
	order    []string
	failures map[string]error
	master   string
	calls    atomic.Int64
}

var _ Reader = (*MemoryReader)(nil)

// NewMemoryReader returns a reader holding docs. masterLang is the
// language returned by GetAllByType.
func NewMemoryReader(masterLang string, docs ...*document.Document) *MemoryReader {
	r := &MemoryReader{
		docs:     map[string]*document.Document{},
		failures: map[string]error{},
		master:   masterLang,
	}
	for _, doc := range docs {
		r.Put(doc)
	}
	return r
}

// Put stores or replaces doc.
func (r *MemoryReader) Put(doc *document.Document) {
	if doc == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := memoryKey(doc.Type, doc.UID, doc.Lang)
	if _, exists := r.docs[key]; !exists {
		r.order = append(r.order, key)
	}
	r.docs[key] = doc
}

// Fail makes lookups of uid in lang return err.
func (r *MemoryReader) Fail(docType, uid, lang string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[memoryKey(docType, uid, lang)] = err
}

// Calls reports how many lookups were served.
func (r *MemoryReader) Calls() int64 {
	return r.calls.Load()
}

func (r *MemoryReader) GetByUID(ctx context.Context, docType, uid, lang string) (*document.Document, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := memoryKey(docType, uid, lang)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.failures[key]; err != nil {
		return nil, err
	}
	if doc, ok := r.docs[key]; ok {
		return doc, nil
	}
	return nil, noDocuments(docType, uid, lang)
}

func (r *MemoryReader) GetSingle(ctx context.Context, docType, lang string) (*document.Document, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, key := range r.order {
		doc := r.docs[key]
		if doc.Type == docType && doc.Lang == lang {
			return doc, nil
		}
	}
	return nil, noDocuments(docType, "", lang)
}

func (r *MemoryReader) GetAllByType(ctx context.Context, docType string) ([]*document.Document, error) {
	r.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*document.Document
	for _, key := range r.order {
		doc := r.docs[key]
		if doc.Type == docType && (r.master == "" || doc.Lang == r.master) {
			out = append(out, doc)
		}
	}
	return slices.Clip(out), nil
}

func memoryKey(docType, uid, lang string) string {
	return strings.Join([]string{docType, uid, lang}, "|")
}
