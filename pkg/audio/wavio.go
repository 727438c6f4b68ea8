package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	wav "github.com/youpy/go-wav"
)

// wavBitsPerSample is fixed at 16: the whole pipeline is S16LE PCM.
const wavBitsPerSample = 16

// EncodeWAV serialises a clip as an uncompressed PCM WAV file in memory.
// The WAV form exists purely as the hand-off format to out-of-process STT
// engines; nothing inside wren consumes it.
func EncodeWAV(clip *Clip) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeWAV(&buf, clip); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteWAVFile materialises a clip at path, creating or truncating the file.
func WriteWAVFile(path string, clip *Clip) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("audio: create %q: %w", path, err)
	}
	if err := writeWAV(f, clip); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("audio: close %q: %w", path, err)
	}
	return nil
}

func writeWAV(w io.Writer, clip *Clip) error {
	if clip == nil || clip.SampleRate <= 0 {
		return fmt.Errorf("audio: encode wav: invalid clip")
	}
	ww := wav.NewWriter(w, uint32(len(clip.Samples)), 1, uint32(clip.SampleRate), wavBitsPerSample)

	pcm := make([]byte, len(clip.Samples)*2)
	for i, s := range clip.Samples {
		pcm[i*2] = byte(s)
		pcm[i*2+1] = byte(uint16(s) >> 8)
	}
	if _, err := ww.Write(pcm); err != nil {
		return fmt.Errorf("audio: encode wav: %w", err)
	}
	return nil
}

// DecodeWAV parses a mono or multi-channel 16-bit PCM WAV stream into a mono
// clip, averaging channels when more than one is present. Used to read the
// synthesis output of external TTS binaries.
func DecodeWAV(r io.Reader) (*Clip, error) {
	// go-wav needs random access to walk the RIFF chunks, so buffer the
	// stream first. Synthesis output is a few seconds of PCM at most.
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: %w", err)
	}
	wr := wav.NewReader(bytes.NewReader(raw))
	format, err := wr.Format()
	if err != nil {
		return nil, fmt.Errorf("audio: decode wav: read format: %w", err)
	}
	if format.BitsPerSample != wavBitsPerSample {
		return nil, fmt.Errorf("audio: decode wav: unsupported bit depth %d", format.BitsPerSample)
	}

	var samples []int16
	for {
		batch, err := wr.ReadSamples(4096)
		for _, s := range batch {
			var sum int
			for ch := range int(format.NumChannels) {
				sum += wr.IntValue(s, uint(ch))
			}
			samples = append(samples, int16(sum/int(format.NumChannels)))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("audio: decode wav: %w", err)
		}
	}

	return &Clip{Samples: samples, SampleRate: int(format.SampleRate)}, nil
}
