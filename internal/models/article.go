package models

type Article struct {
	URL       string `json:"-"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Published string `json:"published"`
	Content   string `json:"content"`
	SiteName  string `json:"-"`
}

type Chunk struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// MCQ is a multiple-choice question. Answer must be one of Options.
type MCQ struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type AskResult struct {
	Answer string `json:"answer"`
}

// ChunkTexts returns the text of each chunk in order.
func ChunkTexts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
