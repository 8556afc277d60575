package convert

import (
	"context"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go"

	"ragcore/internal/errs"
)

// AudioHandler transcribes audio into a CanonicalDocument with one Section
// per speech segment whisper.cpp emits, so a segment's approximate timecode
// can be carried through as chunk metadata.
type AudioHandler struct {
	ModelPath string
}

func (h *AudioHandler) Formats() []string { return []string{"wav", "mp3", "m4a", "audio"} }

func (h *AudioHandler) Parse(_ context.Context, locator string, data []byte) (CanonicalDocument, error) {
	modelPath := h.ModelPath
	if modelPath == "" {
		return CanonicalDocument{}, errs.New(errs.ConfigInvalid, "audio converter has no whisper model configured")
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return CanonicalDocument{}, errs.Wrap(errs.DependencyUnavailable, "load whisper model", err)
	}
	defer model.Close()

	wctx, err := model.NewContext()
	if err != nil {
		return CanonicalDocument{}, errs.Wrap(errs.DependencyUnavailable, "create whisper context", err)
	}

	samples, err := decodeWAV(data)
	if err != nil {
		return CanonicalDocument{}, errs.Wrap(errs.SourceUnreadable, "decode audio: "+locator, err)
	}

	if err := wctx.Process(samples, nil, nil); err != nil {
		return CanonicalDocument{}, errs.Wrap(errs.SourceUnreadable, "transcribe audio: "+locator, err)
	}

	var sections []Section
	for {
		segment, err := wctx.NextSegment()
		if err != nil {
			break
		}
		sections = append(sections, Section{
			Content: segment.Text,
			Level:   1,
			Type:    "speech-segment",
			Metadata: map[string]string{
				"start": segment.Start.String(),
				"end":   segment.End.String(),
			},
		})
	}

	return CanonicalDocument{
		Title:   locator,
		Text:    Flatten(sections),
		Outline: sections,
	}, nil
}

// decodeWAV extracts 16kHz mono float32 PCM samples from a WAV container,
// the format whisper.cpp expects.
func decodeWAV(data []byte) ([]float32, error) {
	if len(data) < 44 {
		return nil, errs.New(errs.SourceUnreadable, "audio payload too short to be a WAV file")
	}
	pcm := data[44:]
	samples := make([]float32, len(pcm)/2)
	for i := range samples {
		lo := int16(pcm[i*2])
		hi := int16(pcm[i*2+1])
		samples[i] = float32(hi<<8|lo) / 32768.0
	}
	return samples, nil
}
