package index

// RawDocument is a named text as delivered by a document source.
type RawDocument struct {
	Name string
	Text string
}

// Document is an indexed document. It is immutable once Build returns and
// is shared by all concurrent queries.
type Document struct {
	ID      int
	Name    string
	Text    string
	Tokens  []string
	Counts  map[string]int
	Weights map[string]float64
}

// Len is the number of tokens in the document.
func (d *Document) Len() int {
	return len(d.Tokens)
}

// Weight returns the TF-IDF weight of term and whether the document
// contains it.
func (d *Document) Weight(term string) (float64, bool) {
	w, ok := d.Weights[term]
	return w, ok
}

func (d *Document) Contains(term string) bool {
	_, ok := d.Counts[term]
	return ok
}

// CumulativeScore is the sum over distinct terms of count * weight.
func (d *Document) CumulativeScore() float64 {
	var total float64
	for term, count := range d.Counts {
		total += float64(count) * d.Weights[term]
	}
	return total
}
