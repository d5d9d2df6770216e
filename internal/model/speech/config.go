package speech

// Config carries the credentials and tuning for the streaming speech engines.
type Config struct {
	AppID       string `json:"appId"`
	AccessToken string `json:"accessToken"`

	// Engine endpoints (websocket URLs).
	RecognizerURL  string `json:"recognizerUrl"`
	SynthesizerURL string `json:"synthesizerUrl"`

	// Recognition settings. The spoken language is fixed for the client.
	Language   string `json:"language"`
	SampleRate int    `json:"sampleRate"`

	// Synthesis settings.
	Voice  string  `json:"voice"`
	Format string  `json:"format"`
	Speed  float32 `json:"speed"`
	Volume float32 `json:"volume"`

	Timeout int `json:"timeout"` // seconds
}
