package models

type Distance string

const (
	DistanceCosine Distance = "cosine"
	DistanceDot    Distance = "dot"
	DistanceEuclid Distance = "euclid"
)

func (d Distance) Valid() bool {
	switch d {
	case DistanceCosine, DistanceDot, DistanceEuclid:
		return true
	}
	return false
}

type CollectionSpec struct {
	Name       string
	VectorSize int
	Distance   Distance
}

// SearchQuery describes a top-k similarity search. An empty ArticleID
// searches the whole collection.
type SearchQuery struct {
	Vector    []float32
	TopK      int
	ArticleID string
}
