package ktx2

import (
	"errors"
	"fmt"
)

// Transcoder opens Basis Universal sessions over a whole container.
type Transcoder interface {
	// Open starts a session on the full container bytes.
	Open(data []byte) (Handle, error)
}

// TranscoderFunc adapts a function to Transcoder.
type TranscoderFunc func(data []byte) (Handle, error)

// Open implements Transcoder.
func (f TranscoderFunc) Open(data []byte) (Handle, error) {
	return f(data)
}

// LegacyTranscoder is the older session API: explicit start, then one call per
// 2D image addressed by level, layer and face.
type LegacyTranscoder interface {
	StartTranscoding() error
	LevelCount() int
	LayerCount() int
	FaceCount() int
	TranscodeImage(level, layer, face int, target TranscodeTarget) ([]byte, error)
	Close() error
}

// ContainerTranscoder is the container-aware session API: one call per level,
// returning every image of the level.
type ContainerTranscoder interface {
	LevelCount() int
	TranscodeLevel(level int, target TranscodeTarget) ([]byte, error)
	Close() error
}

// Handle is an open session. Exactly one field must be set.
type Handle struct {
	Legacy    LegacyTranscoder
	Container ContainerTranscoder
}

// session drives either API variant, chosen once at open.
type session struct {
	legacy    LegacyTranscoder
	container ContainerTranscoder
}

// openSession opens data and validates the handle.
func openSession(t Transcoder, data []byte) (*session, error) {
	h, err := t.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: open transcoder session: %w", ErrDecodeFailure, err)
	}

	switch {
	case h.Legacy != nil && h.Container != nil:
		_ = h.Legacy.Close()
		_ = h.Container.Close()
		return nil, fmt.Errorf("%w: both legacy and container sessions set", ErrInvalidTranscoderHandle)
	case h.Container != nil:
		return &session{container: h.Container}, nil
	case h.Legacy != nil:
		if err := h.Legacy.StartTranscoding(); err != nil {
			_ = h.Legacy.Close()
			return nil, fmt.Errorf("%w: start transcoding: %w", ErrDecodeFailure, err)
		}
		return &session{legacy: h.Legacy}, nil
	default:
		return nil, fmt.Errorf("%w: no session set", ErrInvalidTranscoderHandle)
	}
}

// levelCount returns the level count the transcoder reports.
func (s *session) levelCount() int {
	if s.container != nil {
		return s.container.LevelCount()
	}

	return s.legacy.LevelCount()
}

// transcodeLevel returns every image of level, layers outermost, faces inner.
func (s *session) transcodeLevel(level int, target TranscodeTarget) ([]byte, error) {
	if s.container != nil {
		return s.container.TranscodeLevel(level, target)
	}

	layers := max(s.legacy.LayerCount(), 1)
	faces := max(s.legacy.FaceCount(), 1)
	var out []byte
	for layer := range layers {
		for face := range faces {
			img, err := s.legacy.TranscodeImage(level, layer, face, target)
			if err != nil {
				return nil, fmt.Errorf("layer %d face %d: %w", layer, face, err)
			}
			out = append(out, img...)
		}
	}

	return out, nil
}

func (s *session) close() error {
	var errs []error
	if s.legacy != nil {
		errs = append(errs, s.legacy.Close())
	}
	if s.container != nil {
		errs = append(errs, s.container.Close())
	}

	return errors.Join(errs...)
}
