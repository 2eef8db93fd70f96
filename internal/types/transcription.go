package types

// TranscriptionResult represents the JSON document AWS Transcribe writes to the output bucket.
type TranscriptionResult struct {
	JobName string `json:"jobName"`
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
		SpeakerLabels *SpeakerLabels `json:"speaker_labels,omitempty"`
		Items         []Item         `json:"items,omitempty"`
	} `json:"results"`
	Status string `json:"status"`
}

// SpeakerLabels contains speaker diarization information
type SpeakerLabels struct {
	Speakers int `json:"speakers"`
	Segments []struct {
		StartTime    string `json:"start_time"`
		EndTime      string `json:"end_time"`
		SpeakerLabel string `json:"speaker_label"`
	} `json:"segments"`
}

// Item represents individual words/items in the transcription
type Item struct {
	StartTime    string        `json:"start_time,omitempty"`
	EndTime      string        `json:"end_time,omitempty"`
	Type         string        `json:"type"`
	Alternatives []Alternative `json:"alternatives"`
	SpeakerLabel string        `json:"speaker_label,omitempty"`
}

// Alternative represents word alternatives
type Alternative struct {
	Confidence string `json:"confidence"`
	Content    string `json:"content"`
}

// Segment is a time-bounded span of transcribed speech.
//
// StartIdx and EndIdx locate the trimmed Text inside the assembled transcript,
// counted in runes. They are only set once the segment has been assembled.
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	StartIdx int     `json:"start_idx"`
	EndIdx   int     `json:"end_idx"`
}

// Transcript is the normalized result of a finished job. Segments is empty
// when segment extraction was disabled.
type Transcript struct {
	Text     string    `json:"text"`
	Segments []Segment `json:"segments,omitempty"`
}
