package bridge

// ============================================
// TELEPHONY COMMANDS
// JSON text frames sent to the Knowlarity media gateway
// ============================================

// PlayAudioCommand streams a chunk of agent audio to the caller.
type PlayAudioCommand struct {
	Type string        `json:"type"`
	Data PlayAudioData `json:"data"`
}

// PlayAudioData carries the audio payload and its format.
type PlayAudioData struct {
	AudioContentType string `json:"audioContentType"`
	SampleRate       int    `json:"sampleRate"`
	AudioContent     string `json:"audioContent"`
}

// StopAudioCommand halts any playback in progress on the caller's side.
type StopAudioCommand struct {
	Type string        `json:"type"`
	Data StopAudioData `json:"data"`
}

// StopAudioData names the reason playback stopped.
type StopAudioData struct {
	Reason string `json:"reason"`
}

// DisconnectCommand asks the gateway to end the call.
type DisconnectCommand struct {
	Type string `json:"type"`
}

// NewPlayAudio builds a playAudio command for a base64 raw PCM chunk.
func NewPlayAudio(base64Audio string, sampleRate int) PlayAudioCommand {
	return PlayAudioCommand{
		Type: "playAudio",
		Data: PlayAudioData{
			AudioContentType: "raw",
			SampleRate:       sampleRate,
			AudioContent:     base64Audio,
		},
	}
}

// NewStopAudio builds the stopAudio command emitted when the caller
// interrupts the agent.
func NewStopAudio() StopAudioCommand {
	return StopAudioCommand{
		Type: "stopAudio",
		Data: StopAudioData{Reason: "userInterruption"},
	}
}

// NewDisconnect builds the disconnect command.
func NewDisconnect() DisconnectCommand {
	return DisconnectCommand{Type: "disconnect"}
}

// SampleRateFromTag maps the caller-declared sampling_rate tag to Hz.
// Telephony audio defaults to 8 kHz for absent or unknown tags.
func SampleRateFromTag(tag string) int {
	switch tag {
	case "16k":
		return 16000
	case "32k":
		return 32000
	default:
		return 8000
	}
}
