package api

import (
	"time"

	"veil-cli/internal/citation"
	"veil-cli/internal/state"
)

// Wire shapes for the blinder backend's REST surface. Field names follow
// the server's JSON; conversion helpers map them onto the client's state
// types.

type SessionRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`
}

func (r SessionRecord) Session() state.Session {
	return state.Session{
		ID:        r.ID,
		Title:     r.Title,
		Domain:    r.Domain,
		CreatedAt: r.CreatedAt,
	}
}

type SessionListResponse struct {
	Sessions []SessionRecord `json:"sessions"`
}

type SessionCreateRequest struct {
	Title  string `json:"title"`
	Domain string `json:"domain,omitempty"`
}

// SessionUpdateRequest is a partial update; nil fields are left untouched.
type SessionUpdateRequest struct {
	Title  *string `json:"title,omitempty"`
	Domain *string `json:"domain,omitempty"`
}

type ThreatRecord struct {
	ThreatType  string `json:"threat_type"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type CitationRecord struct {
	DocumentID     string  `json:"document_id"`
	Filename       string  `json:"filename"`
	ChunkIndex     int     `json:"chunk_index"`
	Score          float64 `json:"score"`
	SnippetBlinded string  `json:"snippet_blinded"`
	SnippetLawyer  string  `json:"snippet_lawyer"`
	Marker         *int    `json:"marker"`
}

func (r CitationRecord) Record() citation.Record {
	rec := citation.Record{
		DocumentID:        r.DocumentID,
		Filename:          r.Filename,
		Score:             r.Score,
		SnippetRedacted:   r.SnippetBlinded,
		SnippetUnredacted: r.SnippetLawyer,
	}
	if r.Marker != nil {
		rec.Marker = *r.Marker
	}
	return rec
}

// MessageRecord is one persisted message. lawyer_content is the original
// (unredacted) text, blinded_content the pseudonymized text the model saw.
type MessageRecord struct {
	ID              string           `json:"id"`
	SessionID       string           `json:"session_id"`
	Role            string           `json:"role"`
	LawyerContent   string           `json:"lawyer_content"`
	BlindedContent  string           `json:"blinded_content"`
	ThreatsDetected []ThreatRecord   `json:"threats_detected"`
	Citations       []CitationRecord `json:"citations"`
	CreatedAt       time.Time        `json:"created_at"`
}

func (r MessageRecord) Message() state.Message {
	m := state.Message{
		ID:         r.ID,
		Role:       state.Role(r.Role),
		Unredacted: r.LawyerContent,
		Redacted:   r.BlindedContent,
		CreatedAt:  r.CreatedAt,
	}
	for _, t := range r.ThreatsDetected {
		m.Threats = append(m.Threats, state.Threat{
			Type:        t.ThreatType,
			Description: t.Description,
			Severity:    t.Severity,
		})
	}
	for _, c := range r.Citations {
		m.Citations = append(m.Citations, c.Record())
	}
	return m
}

type HistoryResponse struct {
	Messages []MessageRecord `json:"messages"`
}

// Messages converts the whole history in order.
func (r HistoryResponse) StateMessages() []state.Message {
	out := make([]state.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		out = append(out, m.Message())
	}
	return out
}

type DocumentRecord struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	PIICount int    `json:"pii_count"`
}

func (r DocumentRecord) Document() state.Document {
	return state.Document{ID: r.ID, Filename: r.Filename, PIICount: r.PIICount}
}

type DocumentListResponse struct {
	Documents []DocumentRecord `json:"documents"`
}

type ModelInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Context  string `json:"context"`
	Provider string `json:"provider"`
}

type ProviderStatus struct {
	Provider  string      `json:"provider"`
	Available bool        `json:"available"`
	Models    []ModelInfo `json:"models"`
}

type ModelsResponse struct {
	Providers       []ProviderStatus `json:"providers"`
	DefaultProvider string           `json:"default_provider"`
	DefaultModel    string           `json:"default_model"`
}

func (r ModelsResponse) Catalog() state.ModelCatalog {
	cat := state.ModelCatalog{
		DefaultProvider: r.DefaultProvider,
		DefaultModel:    r.DefaultModel,
	}
	for _, p := range r.Providers {
		sp := state.Provider{Name: p.Provider, Available: p.Available}
		for _, m := range p.Models {
			sp.Models = append(sp.Models, state.ModelInfo{
				ID:       m.ID,
				Name:     m.Name,
				Provider: m.Provider,
				Context:  m.Context,
			})
		}
		cat.Providers = append(cat.Providers, sp)
	}
	return cat
}

// ChatRequest opens one streamed exchange. Provider/model are optional
// overrides; empty means the server default.
type ChatRequest struct {
	Message  string `json:"message"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}
