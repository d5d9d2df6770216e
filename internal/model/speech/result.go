package speech

// Fragment is one recognized utterance segment from a partial-recognition
// event. Final fragments will not be revised by the engine; interim ones are
// provisional and replaced by later events.
type Fragment struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}
