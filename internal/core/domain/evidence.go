package domain

// SourceKind tags which corpus produced a piece of evidence.
type SourceKind string

const (
	SourceStructured   SourceKind = "structured"
	SourceUnstructured SourceKind = "unstructured"
)

// Candidate is a raw corpus hit before admissibility filtering.
type Candidate struct {
	Content  string            `json:"content"`
	Distance float64           `json:"distance"`
	Payload  map[string]string `json:"payload,omitempty"`
}

// StructuredEvidence is an admissible hit from the Q&A answer bank.
type StructuredEvidence struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Details  string  `json:"details"`
	Category string  `json:"category"`
	Distance float64 `json:"distance"`
}

// UnstructuredEvidence is an admissible passage from the policy-document corpus.
type UnstructuredEvidence struct {
	Text         string  `json:"text"`
	DocumentName string  `json:"document_name"`
	PageNumber   string  `json:"page_number"`
	Distance     float64 `json:"distance"`
}

// Resolution is the outcome of one hybrid retrieval pass. At most one of the
// two evidence slices is populated; both empty means no admissible evidence.
type Resolution struct {
	Source          SourceKind             `json:"source,omitempty"`
	Structured      []StructuredEvidence   `json:"structured,omitempty"`
	Unstructured    []UnstructuredEvidence `json:"unstructured,omitempty"`
	WinningDistance *float64               `json:"winning_distance,omitempty"`
}

func (r Resolution) Empty() bool {
	return len(r.Structured) == 0 && len(r.Unstructured) == 0
}

// Matches returns the raw content of every admissible item in retrieval order.
func (r Resolution) Matches() []string {
	out := make([]string, 0, len(r.Structured)+len(r.Unstructured))
	for _, ev := range r.Structured {
		out = append(out, ev.Answer)
	}
	for _, ev := range r.Unstructured {
		out = append(out, ev.Text)
	}
	return out
}

// Answer is the synthesized reply for a single question. ThreadID is the
// thread the exchange was recorded on, including one created for the call;
// it stays empty when history was skipped or failed.
type Answer struct {
	Text       string     `json:"text"`
	References []string   `json:"references"`
	Confidence float64    `json:"confidence"`
	Source     SourceKind `json:"source,omitempty"`
	ThreadID   string     `json:"thread_id,omitempty"`
	AllMatches []string   `json:"all_matches"`
}

// QuestionnaireRow is one parsed row of an uploaded question sheet.
type QuestionnaireRow struct {
	ID       string `json:"id,omitempty"`
	Question string `json:"question"`
}

// BatchResultRow is the per-row outcome of questionnaire processing.
// Confidence is reported on a 0-100 scale and references are capped at two.
type BatchResultRow struct {
	ID              string   `json:"id"`
	Question        string   `json:"question"`
	SuggestedAnswer string   `json:"suggestedAnswer"`
	Confidence      float64  `json:"confidence"`
	References      []string `json:"references"`
	AllMatches      []string `json:"all_matches"`
}
