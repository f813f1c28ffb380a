package voice

import "github.com/openclaw/voicehub/pkg/tts"

// unitKind discriminates the in-band markers carried on the pipeline
// channels alongside ordinary payloads.
type unitKind int

const (
	kindText unitKind = iota
	kindPCM
	kindRoute
	kindEOS
)

// sentenceUnit travels on the sentences channel from the fetch stage
// to the synthesis stage.
type sentenceUnit struct {
	kind  unitKind
	text  string
	route *Route
}

// audioUnit travels on the audio channel from the synthesis stage to
// the playback stage. Exactly one of the payload fields is set, per
// kind.
type audioUnit struct {
	kind  unitKind
	audio *tts.AudioResult
	route *Route
}
