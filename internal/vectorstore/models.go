package vectorstore

// Record is a stored vector with its text and metadata.
type Record struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]string
}

// Match is a query result.
type Match struct {
	ID         string
	Content    string
	Similarity float32
	Metadata   map[string]string
}

// Filter restricts queries to records whose metadata equals every entry.
type Filter map[string]string

// Info describes a store.
type Info struct {
	Backend    string `json:"backend"`
	Collection string `json:"collection"`
	Dimension  int    `json:"dimension"`
}

// Backend names.
const (
	BackendChromem = "chromem"
	BackendQdrant  = "qdrant"
)

// isZero reports whether every component of v is zero.
func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
