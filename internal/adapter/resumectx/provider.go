// Package resumectx implements resume-context retrieval over Qdrant:
// chunked ingestion with per-chunk domain labels, and ranked snippet
// queries scoped to one resume.
package resumectx

import (
	"fmt"
	"strings"

	"log/slog"

	"github.com/google/uuid"

	"github.com/Raghav-madderla/AIMI/internal/adapter/vector/qdrant"
	"github.com/Raghav-madderla/AIMI/internal/domain"
	"github.com/Raghav-madderla/AIMI/pkg/jsonx"
	"github.com/Raghav-madderla/AIMI/pkg/textx"
)

// VectorStore is the slice of the Qdrant client the provider uses.
type VectorStore interface {
	UpsertPoints(ctx domain.Context, collection string, vectors [][]float32, payloads []map[string]any, ids []any) error
	Search(ctx domain.Context, collection string, vector []float32, topK int, filter qdrant.Filter) ([]map[string]any, error)
}

// Provider implements domain.ResumeContextProvider.
type Provider struct {
	store      VectorStore
	ai         domain.LanguageModelGateway
	vocab      domain.DomainVocabulary
	collection string
}

func New(store VectorStore, ai domain.LanguageModelGateway, vocab domain.DomainVocabulary, collection string) *Provider {
	return &Provider{store: store, ai: ai, vocab: vocab, collection: collection}
}

const embedBatch = 16

// IngestResume chunks, labels, embeds and upserts resume text. It returns
// the number of stored chunks. Re-ingesting the same resume overwrites the
// same points: IDs are derived from resume ID and chunk index.
func (p *Provider) IngestResume(ctx domain.Context, resumeID, text string) (int, error) {
	chunks := SplitChunks(text)
	if len(chunks) == 0 {
		return 0, nil
	}

	labels := make([][]string, len(chunks))
	for i := range chunks {
		labels[i] = p.classifyDomains(ctx, chunks[i].Text)
	}

	for i := 0; i < len(chunks); i += embedBatch {
		end := i + embedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]
		texts := make([]string, len(batch))
		for j := range batch {
			texts[j] = batch[j].Text
		}
		vecs, err := p.ai.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("op=resumectx.IngestResume: embed: %w", err)
		}
		payloads := make([]map[string]any, len(batch))
		ids := make([]any, len(batch))
		for j := range batch {
			payloads[j] = map[string]any{
				"text":        batch[j].Text,
				"resume_id":   resumeID,
				"section":     batch[j].Section,
				"chunk_index": batch[j].Index,
				"domains":     labels[i+j],
			}
			// Deterministic ID to avoid duplicate points on re-ingestion
			ids[j] = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("resume:%s:%d", resumeID, batch[j].Index))).String()
		}
		if err := p.store.UpsertPoints(ctx, p.collection, vecs, payloads, ids); err != nil {
			return 0, fmt.Errorf("op=resumectx.IngestResume: upsert: %w", err)
		}
	}

	slog.Info("resume ingested into vector store",
		slog.String("resume_id", resumeID),
		slog.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// classifyDomains labels one chunk with up to three vocabulary domains.
// Model output outside the vocabulary is discarded; when the model gives
// nothing usable a keyword scan over the labels decides.
func (p *Provider) classifyDomains(ctx domain.Context, chunk string) []string {
	available := p.vocab.Labels()
	prompt := fmt.Sprintf(`Analyze the following resume chunk and identify which domain(s) it relates to.

Resume Chunk:
%s

Available Domains:
%s

Return a JSON object with a "domains" key containing an array of domain names that this chunk is relevant to. Only include domains that are clearly mentioned or strongly related to the content.`,
		textx.TruncateRunes(chunk, 1000), strings.Join(available, ", "))

	obj, err := p.ai.GenerateJSON(ctx, domain.GenerateRequest{
		System:      "You are a domain classification expert. Return only valid JSON objects with a 'domains' key containing an array of domain names.",
		Prompt:      prompt,
		MaxTokens:   200,
		Temperature: 0.3,
	})
	var matched []string
	if err == nil {
		for _, raw := range jsonx.StringSlice(obj["domains"]) {
			if canon, ok := p.vocab.Canonical(raw); ok {
				matched = append(matched, canon)
			}
			if len(matched) == 3 {
				break
			}
		}
	}
	if len(matched) > 0 {
		return matched
	}

	// Keyword fallback
	lower := strings.ToLower(chunk)
	for _, label := range available {
		if strings.Contains(lower, strings.ToLower(label)) {
			matched = append(matched, label)
			if len(matched) == 3 {
				break
			}
		}
	}
	if len(matched) > 0 {
		return matched
	}
	if defs := p.vocab.Defaults(); len(defs) > 0 {
		return defs[:1]
	}
	return nil
}

// QueryByDomain returns ranked snippets for one domain of one resume.
func (p *Provider) QueryByDomain(ctx domain.Context, resumeID, dom, query string, topK int) ([]string, error) {
	return p.search(ctx, query, topK, qdrant.Filter{ResumeID: resumeID, Domain: dom})
}

// Query returns ranked snippets across all domains of one resume.
func (p *Provider) Query(ctx domain.Context, resumeID, query string, topK int) ([]string, error) {
	return p.search(ctx, query, topK, qdrant.Filter{ResumeID: resumeID})
}

func (p *Provider) search(ctx domain.Context, query string, topK int, filter qdrant.Filter) ([]string, error) {
	vecs, err := p.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("op=resumectx.search: embed: %w", err)
	}
	if len(vecs) == 0 {
		return nil, nil
	}
	results, err := p.store.Search(ctx, p.collection, vecs[0], topK, filter)
	if err != nil {
		return nil, fmt.Errorf("op=resumectx.search: %w", err)
	}
	snippets := make([]string, 0, len(results))
	for _, res := range results {
		payload, ok := res["payload"].(map[string]any)
		if !ok {
			continue
		}
		if text, ok := payload["text"].(string); ok && text != "" {
			snippets = append(snippets, text)
		}
	}
	return snippets, nil
}
