package vector

// Table is a read-only word embedding table: a vocabulary with dense contiguous
// indices and one row per word.
type Table interface {
	Size() int
	Dimensions() int
	Words() []string
	Lookup(word string) (int, bool)
	Vector(word string) ([]float32, bool)
}

// Match is a single ranked neighbour.
type Match struct {
	Word  string
	Index int
	Score float64
}
