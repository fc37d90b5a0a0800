package ranker

// ScoredDoc is one retrieval result.
type ScoredDoc struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
}

// RanksBelow reports whether a sorts after b in a result list: lower score
// first, and for equal scores the larger docID.
func RanksBelow(a, b ScoredDoc) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.DocID > b.DocID
}
