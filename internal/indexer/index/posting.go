package index

// Posting records that a document contains a term Frequency times.
type Posting struct {
	DocID     string `json:"doc_id"`
	Frequency int    `json:"tf"`
}

// PostingList is ordered by DocID ascending, with no repeated DocID.
type PostingList []Posting

type TermEntry struct {
	Term     string
	Postings PostingList
}
