package recognition

// Word is a single recognized word with its diarized speaker index.
type Word struct {
	Word           string  `json:"word"`
	PunctuatedWord string  `json:"punctuated_word"`
	Speaker        int     `json:"speaker"`
	Start          float64 `json:"start,omitempty"`
	End            float64 `json:"end,omitempty"`
	Confidence     float64 `json:"confidence,omitempty"`
}

// Alternative is one recognition hypothesis for a channel.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Channel holds the alternatives produced for one audio channel.
type Channel struct {
	Alternatives []Alternative `json:"alternatives"`
}

// Results is the results block of a prerecorded recognition response.
type Results struct {
	Channels []Channel `json:"channels"`
}

// Response is the decoded body of a prerecorded recognition request.
// Raw preserves the exact bytes returned by the provider so the
// orchestrator can persist them unmodified.
type Response struct {
	Results Results `json:"results"`
	Raw     []byte  `json:"-"`
}

// Words returns the word sequence of the first alternative of the first
// channel, or nil when the response carries no recognized words.
func (r *Response) Words() []Word {
	if len(r.Results.Channels) == 0 {
		return nil
	}
	alts := r.Results.Channels[0].Alternatives
	if len(alts) == 0 {
		return nil
	}
	return alts[0].Words
}
